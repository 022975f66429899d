package bserve

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/advdv/bpipe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the request metrics of a server and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the request metrics on a fresh registry, together with the Go runtime and process
// collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpipe",
			Name:      "requests_total",
			Help:      "Number of served requests by method and status code.",
		}, []string{"method", "code"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bpipe",
			Name:      "request_duration_seconds",
			Help:      "Time until the response of a request was ready, by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Registry returns the registry the metrics are registered with, so applications can add their own.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records every request once its response is known.
func (m *Metrics) Middleware() bpipe.Middleware {
	return func(next bpipe.BoxService) bpipe.BoxService {
		return bpipe.ServiceFunc[*bpipe.BoxBody](func(ctx context.Context, r *http.Request) bpipe.Future[bpipe.BoxResponse] {
			start := time.Now()

			return bpipe.Then(next.Call(ctx, r), func(res bpipe.BoxResponse, err error) (bpipe.BoxResponse, error) {
				m.requests.WithLabelValues(r.Method, strconv.Itoa(statusOf(res, err))).Inc()
				m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())

				return res, err
			})
		})
	}
}
