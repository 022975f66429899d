package bserve

import (
	"context"
	"net/http"

	"github.com/advdv/bpipe"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const (
	ctxKeyRequestDep ctxKey = iota
	ctxKeyRequestID
)

// requestDep holds request-scoped dependencies available via context.
type requestDep struct {
	logger *zap.Logger
}

// withRequestDep injects dependencies into the request context.
func withRequestDep(d *requestDep) bpipe.Middleware {
	return func(next bpipe.BoxService) bpipe.BoxService {
		return bpipe.ServiceFunc[*bpipe.BoxBody](func(ctx context.Context, r *http.Request) bpipe.Future[bpipe.BoxResponse] {
			return next.Call(context.WithValue(ctx, ctxKeyRequestDep, d), r)
		})
	}
}

func requestDepFromContext(ctx context.Context) *requestDep {
	d, ok := ctx.Value(ctxKeyRequestDep).(*requestDep)
	if !ok {
		panic("bserve: requestDep not found in context; is the middleware configured?")
	}
	return d
}

// Log returns a logger from the context that is correlated with the request ID and the trace.
func Log(ctx context.Context) *zap.Logger {
	d := requestDepFromContext(ctx)
	return d.logger.With(requestFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// RequestID returns the ID of the request being served, or an empty string outside of a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// requestFields extracts the request ID, trace_id and span_id from the context for log correlation.
func requestFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return fields
	}

	return append(fields,
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
