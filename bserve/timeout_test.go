package bserve_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advdv/bpipe/bserve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutConfig_ServerTimeouts(t *testing.T) {
	tests := []struct {
		name                  string
		requestTimeout        time.Duration
		writeGrace            time.Duration
		wantReadHeaderTimeout time.Duration
		wantReadTimeout       time.Duration
		wantWriteTimeout      time.Duration
		wantIdleTimeout       time.Duration
	}{
		{
			name:                  "disabled keeps the header guard",
			requestTimeout:        0,
			wantReadHeaderTimeout: 5 * time.Second,
		},
		{
			name:                  "short timeout bounds header read",
			requestTimeout:        3 * time.Second,
			wantReadHeaderTimeout: 3 * time.Second,
			wantReadTimeout:       3 * time.Second,
			wantWriteTimeout:      3*time.Second + bserve.DefaultWriteGrace,
			wantIdleTimeout:       3 * time.Second,
		},
		{
			name:                  "typical timeout (30s) uses default grace",
			requestTimeout:        30 * time.Second,
			wantReadHeaderTimeout: 5 * time.Second, // capped at 5s
			wantReadTimeout:       30 * time.Second,
			wantWriteTimeout:      31 * time.Second,
			wantIdleTimeout:       30 * time.Second,
		},
		{
			name:                  "custom grace",
			requestTimeout:        30 * time.Second,
			writeGrace:            5 * time.Second,
			wantReadHeaderTimeout: 5 * time.Second,
			wantReadTimeout:       30 * time.Second,
			wantWriteTimeout:      35 * time.Second,
			wantIdleTimeout:       30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := bserve.TimeoutConfig{
				RequestTimeout: tt.requestTimeout,
				WriteGrace:     tt.writeGrace,
			}
			rht, rt, wt, it := tc.ServerTimeouts()

			assert.Equal(t, tt.wantReadHeaderTimeout, rht, "ReadHeaderTimeout")
			assert.Equal(t, tt.wantReadTimeout, rt, "ReadTimeout")
			assert.Equal(t, tt.wantWriteTimeout, wt, "WriteTimeout")
			assert.Equal(t, tt.wantIdleTimeout, it, "IdleTimeout")
		})
	}
}

func TestWithRequestTimeout(t *testing.T) {
	t.Run("zero timeout passes through unchanged", func(t *testing.T) {
		var hasDeadline bool
		handler := bserve.WithRequestTimeout(0)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			_, hasDeadline = r.Context().Deadline()
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.False(t, hasDeadline)
	})

	t.Run("sets deadline", func(t *testing.T) {
		var remaining time.Duration
		var reqCtx context.Context
		handler := bserve.WithRequestTimeout(10 * time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			reqCtx = r.Context()
			remaining = bserve.RequestRemainingTime(r.Context())
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Greater(t, remaining, 9*time.Second)
		assert.LessOrEqual(t, remaining, 10*time.Second)
		require.ErrorIs(t, reqCtx.Err(), context.Canceled, "context is released once the handler returned")
	})

	t.Run("expires while serving", func(t *testing.T) {
		var err error
		handler := bserve.WithRequestTimeout(10 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			err = r.Context().Err()
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRequestRemainingTime(t *testing.T) {
	assert.Zero(t, bserve.RequestRemainingTime(context.Background()))

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	assert.Zero(t, bserve.RequestRemainingTime(ctx))
}
