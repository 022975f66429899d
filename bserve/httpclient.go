package bserve

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/advdv/bpipe"
	"github.com/carlmjohnson/requests"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// NewHTTPTransport creates an HTTP RoundTripper instrumented with OpenTelemetry tracing.
// The TracerProvider and Propagator are explicitly injected to avoid global state.
func NewHTTPTransport(tp trace.TracerProvider, prop propagation.TextMapPropagator) http.RoundTripper {
	return otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithTracerProvider(tp),
		otelhttp.WithPropagators(prop),
	)
}

// NewHTTPClient creates an *http.Client that uses the instrumented transport.
// Outbound requests automatically create child spans and propagate trace context.
func NewHTTPClient(t http.RoundTripper) *http.Client {
	return &http.Client{Transport: t}
}

// newRequestBuilder creates a base [requests.Builder] with the instrumented transport.
// Handlers access it via [Runtime.NewRequest].
func newRequestBuilder(t http.RoundTripper) *requests.Builder {
	return requests.New().Transport(t)
}

// Upstream forwards requests to the target URL and streams the upstream response back. The "path" path value
// of the route, if any, is appended to the target's path. The upstream body is held open until the response
// has been written, or closed early when the response is dropped or normalized for HEAD.
func Upstream(client *http.Client, target *url.URL) bpipe.Service[io.ReadCloser] {
	return bpipe.ServiceFunc[io.ReadCloser](func(ctx context.Context, r *http.Request) bpipe.Future[bpipe.Response[io.ReadCloser]] {
		u := *target
		if p := r.PathValue("path"); p != "" {
			u.Path = strings.TrimSuffix(target.Path, "/") + "/" + p
		}
		u.RawQuery = r.URL.RawQuery

		return bpipe.Spawn(ctx, func(ctx context.Context) (bpipe.Response[io.ReadCloser], error) {
			req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), r.Body)
			if err != nil {
				return bpipe.Response[io.ReadCloser]{}, errors.Wrap(err, "create upstream request")
			}

			req.ContentLength = r.ContentLength
			req.Header = r.Header.Clone()
			removeHopHeaders(req.Header)

			resp, err := client.Do(req) //nolint:bodyclose
			if err != nil {
				return bpipe.Response[io.ReadCloser]{}, bpipe.NewError(bpipe.CodeBadGateway, errors.Wrap(err, "upstream"))
			}

			hdr := resp.Header.Clone()
			removeHopHeaders(hdr)

			return bpipe.Response[io.ReadCloser]{Status: resp.StatusCode, Header: hdr, Body: resp.Body}, nil
		})
	})
}

// See RFC 7230, section 6.1
func removeHopHeaders(h http.Header) {
	for _, f := range h["Connection"] {
		for _, sf := range strings.Split(f, ",") {
			if sf = strings.TrimSpace(sf); sf != "" {
				h.Del(sf)
			}
		}
	}

	for _, name := range hopHeaders {
		h.Del(name)
	}
}

var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}
