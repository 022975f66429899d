package bpipe

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
)

// ResponseWriter implements the http.ResponseWriter but the underlying bytes are buffered. This allows
// handlers and middleware to reset the writer and formulate a completely new response.
type ResponseWriter interface {
	http.ResponseWriter
	Reset()
}

// Handler mirrors http.Handler but it writes to a buffered response and may return an error.
type Handler interface {
	ServeBuffered(ctx context.Context, w ResponseWriter, r *http.Request) error
}

// HandlerFunc allow casting a function to implement [Handler].
type HandlerFunc func(context.Context, ResponseWriter, *http.Request) error

// ServeBuffered implements the [Handler] interface.
func (f HandlerFunc) ServeBuffered(ctx context.Context, w ResponseWriter, r *http.Request) error {
	return f(ctx, w, r)
}

// ToService converts a buffered handler into a service. Each call runs the handler on its own goroutine. If
// the handler returns an error whatever it wrote is discarded and the future fails with that error.
func ToService(h Handler, bufLimit int) BoxService {
	return ServiceFunc[*BoxBody](func(ctx context.Context, r *http.Request) Future[BoxResponse] {
		return Spawn(ctx, func(ctx context.Context) (BoxResponse, error) {
			w := NewResponseBuffer(bufLimit)
			if err := h.ServeBuffered(ctx, w, r.WithContext(ctx)); err != nil {
				w.Free()
				return BoxResponse{}, err
			}

			return w.Response(), nil
		})
	})
}

// FromStd converts a standard library handler into a service. The handler writes into a response buffer, it
// owns its error responses since it cannot return an error.
func FromStd(h http.Handler, bufLimit int) BoxService {
	return ToService(HandlerFunc(func(_ context.Context, w ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}), bufLimit)
}

// ToStd converts a service into a standard library http.Handler. It awaits the service's response and writes
// it. Errors that carry a [Code] are rendered with that code and an exceeded deadline becomes a 504. Any other
// error is logged and turned into a 500 response.
func ToStd(s BoxService, logs Logger) http.Handler {
	return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		res, err := Await(req.Context(), s.Call(req.Context(), req))
		if err != nil {
			herr, ok := asError(err)
			if !ok && errors.Is(err, context.DeadlineExceeded) {
				herr, ok = NewError(CodeGatewayTimeout, err), true
			}

			if !ok {
				logs.LogUnhandledServeError(err)

				// if all fails we don't want the client to end up with a white screen so
				// we render a 500 error with the standard text.
				http.Error(resp,
					http.StatusText(http.StatusInternalServerError),
					http.StatusInternalServerError)

				return
			}

			res = herr.IntoResponse()
		}

		if err := writeResponse(resp, res); err != nil {
			logs.LogBodyWriteError(err)
		}
	})
}

func writeResponse(w http.ResponseWriter, res BoxResponse) error {
	defer res.Close()

	hdr := w.Header()
	for k, vs := range res.Header {
		hdr[k] = vs
	}

	w.WriteHeader(res.StatusCode())
	if res.Body == nil {
		return nil
	}

	_, err := res.Body.WriteTo(w)

	return err
}
