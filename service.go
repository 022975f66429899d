package bpipe

import (
	"context"
	"io"
	"net/http"
)

// Service asynchronously turns a request into a response with a body of type B.
type Service[B io.Reader] interface {
	Call(ctx context.Context, r *http.Request) Future[Response[B]]
}

// ServiceFunc allows a function to implement [Service].
type ServiceFunc[B io.Reader] func(context.Context, *http.Request) Future[Response[B]]

// Call implements the [Service] interface.
func (f ServiceFunc[B]) Call(ctx context.Context, r *http.Request) Future[Response[B]] {
	return f(ctx, r)
}

// BoxService is a service that produces responses with a boxed body. Routes, middleware and the transport
// adapter all operate on box services.
type BoxService = Service[*BoxBody]

// Boxed erases the body type of the responses of s.
func Boxed[B io.Reader](s Service[B]) BoxService {
	if bs, ok := any(s).(BoxService); ok {
		return bs
	}

	return ServiceFunc[*BoxBody](func(ctx context.Context, r *http.Request) Future[BoxResponse] {
		return Then(s.Call(ctx, r), func(res Response[B], err error) (BoxResponse, error) {
			if err != nil {
				return BoxResponse{}, err
			}

			return res.Boxed(), nil
		})
	})
}
