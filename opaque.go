package bpipe

import (
	"context"
	"net/http"
)

// ResponseFuture is the response future of services returned by [Opaque]. It hides whatever chain of futures
// produces the response behind one stable type.
type ResponseFuture struct {
	inner Future[BoxResponse]
}

// Poll implements [Future].
func (f *ResponseFuture) Poll() (BoxResponse, bool, error) { return f.inner.Poll() }

// Ready implements [Future].
func (f *ResponseFuture) Ready() <-chan struct{} { return f.inner.Ready() }

// Drop implements [Future].
func (f *ResponseFuture) Drop() { f.inner.Drop() }

// Opaque wraps a service so that its futures are always of type *ResponseFuture.
func Opaque(s BoxService) OpaqueService {
	return OpaqueService{s}
}

// OpaqueService is a service whose response futures are of a fixed, named type.
type OpaqueService struct{ inner BoxService }

// CallOpaque calls the service and returns the concretely typed future.
func (s OpaqueService) CallOpaque(ctx context.Context, r *http.Request) *ResponseFuture {
	return &ResponseFuture{inner: s.inner.Call(ctx, r)}
}

// Call implements [Service].
func (s OpaqueService) Call(ctx context.Context, r *http.Request) Future[BoxResponse] {
	return s.CallOpaque(ctx, r)
}

var (
	_ Future[BoxResponse] = &ResponseFuture{}
	_ BoxService          = OpaqueService{}
)
