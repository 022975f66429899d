package bserve

import (
	"context"
	"net/http"
	"time"

	"github.com/advdv/bpipe"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// withAccessLog logs one line per request once its response is known. Requests whose status matches
// isError are logged at error level, all others at info level.
func withAccessLog(logs *zap.Logger, isError StatusMatcher) bpipe.Middleware {
	logs = logs.Named("access")

	return func(next bpipe.BoxService) bpipe.BoxService {
		return bpipe.ServiceFunc[*bpipe.BoxBody](func(ctx context.Context, r *http.Request) bpipe.Future[bpipe.BoxResponse] {
			start := time.Now()

			return bpipe.Then(next.Call(ctx, r), func(res bpipe.BoxResponse, err error) (bpipe.BoxResponse, error) {
				status := statusOf(res, err)

				fields := append([]zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Duration("duration", time.Since(start)),
				}, requestFields(ctx)...)
				if err != nil {
					fields = append(fields, zap.Error(err))
				}

				lvl := zapcore.InfoLevel
				if isError(status) {
					lvl = zapcore.ErrorLevel
				}

				logs.Log(lvl, "request served", fields...)

				return res, err
			})
		})
	}
}
