package bpipe

import (
	"net/http"
)

// OnMethodResponseFuture is the response future of a [MethodRouter]. It drives the selected route and makes
// sure HEAD responses never carry a body, whichever handler produced them.
type OnMethodResponseFuture struct {
	f      *RouteFuture
	method string
}

// NewOnMethodResponseFuture wraps the route future for a request with the given method.
func NewOnMethodResponseFuture(f *RouteFuture, method string) *OnMethodResponseFuture {
	return &OnMethodResponseFuture{f: f, method: method}
}

// Poll implements [Future].
func (f *OnMethodResponseFuture) Poll() (BoxResponse, bool, error) {
	res, ok, err := f.f.Poll()
	if !ok || err != nil {
		return res, ok, err
	}

	// HEAD must not contain a body, RFC 9110 9.3.2.
	if f.method == http.MethodHead {
		res = stripBody(res)
	}

	return res, true, nil
}

// Ready implements [Future].
func (f *OnMethodResponseFuture) Ready() <-chan struct{} { return f.f.Ready() }

// Drop implements [Future].
func (f *OnMethodResponseFuture) Drop() { f.f.Drop() }

// stripBody sets the content length to zero and replaces the body with an empty one. The old body is never
// read, it is closed so whatever it holds on to is released.
func stripBody(res BoxResponse) BoxResponse {
	if res.Header == nil {
		res.Header = http.Header{}
	}

	res.Header.Set("Content-Length", "0")
	_ = res.Body.Close()
	res.Body = Empty()

	return res
}

var _ Future[BoxResponse] = &OnMethodResponseFuture{}
