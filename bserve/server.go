package bserve

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/advdv/bpipe"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServerConfig holds optional configuration for the HTTP server.
type ServerConfig struct {
	HealthHandler func(http.ResponseWriter, *http.Request)
}

// ServerParams holds the dependencies for creating an HTTP server.
type ServerParams struct {
	fx.In

	Env        Environment
	Mux        *Mux
	Logger     *zap.Logger
	Metrics    *Metrics
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// NewServer creates an HTTP server with all middleware and the built-in routes configured.
func NewServer(params ServerParams, cfg ServerConfig) (*http.Server, error) {
	isError, err := ParseErrorStatusCodes(params.Env.errorStatusCodes())
	if err != nil {
		return nil, err
	}

	d := &requestDep{
		logger: params.Logger,
	}

	params.Mux.Use(withRequestDep(d))
	params.Mux.Use(withAccessLog(params.Logger, isError))
	params.Mux.Use(withSpanErrors())
	params.Mux.Use(params.Metrics.Middleware())

	// The health check is served for GET and HEAD, load balancers use either. Its handler can be customized
	// via ServerConfig.HealthHandler and defaults to 200 OK. Tracing is disabled for this path to avoid
	// noisy traces from probes.
	healthPath := params.Env.healthPath()
	healthHandler := cfg.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	params.Mux.Route(healthPath, bpipe.GetFunc(func(_ context.Context, w bpipe.ResponseWriter, r *http.Request) error {
		healthHandler(w, r)
		return nil
	}), "health")

	metricsPath := params.Env.metricsPath()
	params.Mux.Route(metricsPath, bpipe.Get(bpipe.FromStd(params.Metrics.Handler(), -1)), "metrics")

	var handler http.Handler = params.Mux
	handler = WithRequestTimeout(params.Env.requestTimeout())(handler)
	handler = withRequestID(params.Env.requestIDHeader())(handler)
	handler = withTracing(params.TracerProv, params.Propagator, params.Env.serviceName(), healthPath, metricsPath)(handler)

	tc := TimeoutConfig{RequestTimeout: params.Env.requestTimeout()}
	readHeaderTimeout, readTimeout, writeTimeout, idleTimeout := tc.ServerTimeouts()

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", params.Env.port()),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}, nil
}

// startServerHook registers lifecycle hooks for the HTTP server. The listener is opened on start so that
// a port that is already taken fails the start instead of being logged later.
func startServerHook(lc fx.Lifecycle, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := new(net.ListenConfig).Listen(ctx, "tcp", server.Addr)
			if err != nil {
				return errors.Wrapf(err, "listen on %s", server.Addr)
			}

			logger.Info("starting server", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
