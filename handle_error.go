package bpipe

import (
	"context"
	"io"
	"net/http"
)

// RecoverFunc turns the error of a service into a response, or into another error.
type RecoverFunc[R IntoResponse] func(error) (R, error)

// HandleErrorFuture is the response future of [HandleError]. On failure of the inner future it calls the
// recovery function exactly once.
type HandleErrorFuture[B io.Reader, R IntoResponse] struct {
	inner Future[Response[B]]
	f     RecoverFunc[R]
}

// NewHandleErrorFuture wraps a fallible response future with a recovery function.
func NewHandleErrorFuture[B io.Reader, R IntoResponse](inner Future[Response[B]], f RecoverFunc[R]) *HandleErrorFuture[B, R] {
	return &HandleErrorFuture[B, R]{inner: inner, f: f}
}

// Poll implements [Future].
func (f *HandleErrorFuture[B, R]) Poll() (BoxResponse, bool, error) {
	res, ok, err := f.inner.Poll()
	if !ok {
		return BoxResponse{}, false, nil
	}

	if err == nil {
		return res.Boxed(), true, nil
	}

	recoverFn := f.f
	if recoverFn == nil {
		panic("bpipe: recovery function already taken")
	}

	f.f = nil

	out, err := recoverFn(err)
	if err != nil {
		return BoxResponse{}, true, err
	}

	return out.IntoResponse(), true, nil
}

// Ready implements [Future].
func (f *HandleErrorFuture[B, R]) Ready() <-chan struct{} { return f.inner.Ready() }

// Drop implements [Future].
func (f *HandleErrorFuture[B, R]) Drop() {
	f.f = nil
	f.inner.Drop()
}

// HandleError wraps a service such that its errors are passed to the recovery function f. Whatever f returns
// is turned into a response; if f fails its error is surfaced to the caller.
func HandleError[B io.Reader, R IntoResponse](inner Service[B], f RecoverFunc[R]) BoxService {
	return ServiceFunc[*BoxBody](func(ctx context.Context, r *http.Request) Future[BoxResponse] {
		return NewHandleErrorFuture(inner.Call(ctx, r), f)
	})
}

var _ Future[BoxResponse] = &HandleErrorFuture[*BoxBody, Status]{}
