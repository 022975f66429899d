package bserve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bpipe"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
)

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	t.Run("stdout exporter", func(t *testing.T) {
		exp, err := newExporter(ctx, "stdout")
		if err != nil {
			t.Fatalf("newExporter(stdout) error: %v", err)
		}
		if exp == nil {
			t.Fatal("expected non-nil exporter")
		}
	})

	t.Run("empty defaults to stdout", func(t *testing.T) {
		exp, err := newExporter(ctx, "")
		if err != nil {
			t.Fatalf("newExporter('') error: %v", err)
		}
		if exp == nil {
			t.Fatal("expected non-nil exporter")
		}
	})

	t.Run("unsupported exporter returns error", func(t *testing.T) {
		_, err := newExporter(ctx, "invalid")
		if err == nil {
			t.Fatal("expected error for unsupported exporter")
		}
		if got := err.Error(); got != `unsupported BP_OTEL_EXPORTER: "invalid" (supported: stdout, xrayudp, none)` {
			t.Errorf("unexpected error message: %s", got)
		}
	})
}

func TestNewResource(t *testing.T) {
	res, err := newResource(context.Background(), "stdout", "my-service")
	if err != nil {
		t.Fatalf("newResource error: %v", err)
	}

	found := false
	for _, attr := range res.Attributes() {
		if string(attr.Key) == "service.name" && attr.Value.AsString() == "my-service" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected service.name attribute in resource")
	}
}

func TestNewTracerProvider(t *testing.T) {
	for _, tt := range []struct {
		exporter string
		check    func(trace.TracerProvider) bool
	}{
		{"stdout", func(tp trace.TracerProvider) bool { _, ok := tp.(*sdktrace.TracerProvider); return ok }},
		{"none", func(tp trace.TracerProvider) bool { _, ok := tp.(noop.TracerProvider); return ok }},
	} {
		t.Run(tt.exporter, func(t *testing.T) {
			var tp trace.TracerProvider
			app := fx.New(
				fx.NopLogger,
				fx.Supply(fx.Annotate(testEnv{otelExp: tt.exporter}, fx.As(new(Environment)))),
				fx.Provide(NewTracerProvider),
				fx.Invoke(func(p trace.TracerProvider) { tp = p }),
			)

			ctx := context.Background()
			if err := app.Start(ctx); err != nil {
				t.Fatalf("app.Start error: %v", err)
			}
			if !tt.check(tp) {
				t.Errorf("unexpected tracer provider %T", tp)
			}
			if err := app.Stop(ctx); err != nil {
				t.Fatalf("app.Stop error: %v", err)
			}
		})
	}
}

func TestNewTracerProvider_InvalidExporter(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(fx.Annotate(testEnv{otelExp: "invalid"}, fx.As(new(Environment)))),
		fx.Provide(NewTracerProvider),
		fx.Invoke(func(trace.TracerProvider) {}),
	)

	if app.Err() == nil {
		t.Fatal("expected error for invalid exporter")
	}
}

func TestNewPropagator(t *testing.T) {
	if _, ok := NewPropagator(testEnv{otelExp: "xrayudp"}).(xray.Propagator); !ok {
		t.Error("expected x-ray propagator for xrayudp")
	}

	prop := NewPropagator(testEnv{otelExp: "stdout"})
	fields := prop.Fields()
	if len(fields) != 3 {
		t.Errorf("expected traceparent, tracestate and baggage fields, got %v", fields)
	}
}

func TestWithTracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prop := propagation.TraceContext{}

	var sawSpan bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = Span(r.Context()).SpanContext().IsValid()
		w.WriteHeader(http.StatusOK)
	})

	wrapped := withTracing(tp, prop, "test-service", "/healthz", "/metrics")(handler)

	for _, path := range []string{"/healthz", "/metrics", "/api/items"} {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("path %s: expected 200, got %d", path, w.Code)
		}
	}

	if !sawSpan {
		t.Error("expected traced request to carry a span")
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected exactly one span, got %d", len(spans))
	}
	if got := spans[0].Name(); got != "GET /api/items" {
		t.Errorf("unexpected span name: %s", got)
	}
}

func TestWithSpanErrors(t *testing.T) {
	for _, tt := range []struct {
		name       string
		res        bpipe.BoxResponse
		err        error
		wantCode   codes.Code
		wantEvents int
	}{
		{name: "ok", res: bpipe.Text(http.StatusOK, "hi"), wantCode: codes.Unset},
		{name: "server error status", res: bpipe.Status(http.StatusBadGateway).IntoResponse(), wantCode: codes.Error},
		{name: "unhandled error", err: errors.New("boom"), wantCode: codes.Error, wantEvents: 1},
		{name: "client error", err: bpipe.NewError(bpipe.CodeNotFound, errors.New("no such item")), wantCode: codes.Unset, wantEvents: 1},
		{name: "gateway error", err: bpipe.NewError(bpipe.CodeGatewayTimeout, context.DeadlineExceeded), wantCode: codes.Error, wantEvents: 1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

			svc := withSpanErrors()(bpipe.ServiceFunc[*bpipe.BoxBody](func(context.Context, *http.Request) bpipe.Future[bpipe.BoxResponse] {
				return bpipe.Ready(tt.res, tt.err)
			}))

			ctx, span := tp.Tracer("test").Start(context.Background(), "GET /items")
			res, err := bpipe.Await(ctx, svc.Call(ctx, httptest.NewRequest(http.MethodGet, "/items", nil)))
			span.End()

			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v to pass through, got %v", tt.err, err)
			}
			if err == nil {
				_ = res.Close()
			}

			spans := rec.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected exactly one span, got %d", len(spans))
			}
			if got := spans[0].Status().Code; got != tt.wantCode {
				t.Errorf("expected span status %v, got %v", tt.wantCode, got)
			}
			if got := len(spans[0].Events()); got != tt.wantEvents {
				t.Errorf("expected %d error events, got %d", tt.wantEvents, got)
			}
		})
	}

	t.Run("without span", func(t *testing.T) {
		svc := withSpanErrors()(bpipe.ServiceFunc[*bpipe.BoxBody](func(context.Context, *http.Request) bpipe.Future[bpipe.BoxResponse] {
			return bpipe.Ready(bpipe.BoxResponse{}, errors.New("boom"))
		}))

		ctx := context.Background()
		if _, err := bpipe.Await(ctx, svc.Call(ctx, httptest.NewRequest(http.MethodGet, "/items", nil))); err == nil {
			t.Fatal("expected error to pass through")
		}
	})
}
