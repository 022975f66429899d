package bserve

import (
	"context"
	"net/http"
	"time"
)

// DefaultWriteGrace is the time a response may still take to be written after the request timeout passed,
// so the error response of a timed out request reaches the client.
const DefaultWriteGrace = time.Second

// TimeoutConfig holds timeout configuration for the HTTP server.
type TimeoutConfig struct {
	// RequestTimeout bounds the time a request may take, zero or less disables timeouts.
	RequestTimeout time.Duration

	// WriteGrace is added to the write timeout. Defaults to DefaultWriteGrace.
	WriteGrace time.Duration
}

// ServerTimeouts returns the http.Server timeout values for the request timeout. The per-request context
// deadline set by WithRequestTimeout fires first; the server's write timeout follows after a grace period.
func (tc TimeoutConfig) ServerTimeouts() (readHeaderTimeout, readTimeout, writeTimeout, idleTimeout time.Duration) {
	if tc.RequestTimeout <= 0 {
		// always guard against slowloris, even without request timeouts
		return 5 * time.Second, 0, 0, 0
	}

	grace := tc.WriteGrace
	if grace <= 0 {
		grace = DefaultWriteGrace
	}

	readHeaderTimeout = min(tc.RequestTimeout, 5*time.Second)
	readTimeout = tc.RequestTimeout
	writeTimeout = tc.RequestTimeout + grace
	idleTimeout = tc.RequestTimeout

	return
}

// WithRequestTimeout returns a handler wrapper that sets a deadline on the request context. The deadline
// covers the whole exchange: the response body is streamed before the context is canceled.
func WithRequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestRemainingTime returns the duration until the request context deadline.
// Returns 0 if no deadline is set or if the deadline has passed.
func RequestRemainingTime(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	remaining := time.Until(deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}
