package bpipe

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// Future is the pending result of an asynchronous computation. Futures are driven by polling: Poll never
// blocks, it reports false while the result is not available yet. Ready returns a channel that is closed once
// polling can make progress. A future must not be polled again after it resolved.
//
// Futures that are abandoned before they resolve, or whose result is never taken, must be dropped. Dropping
// releases everything the future still owns: inner futures, response bodies and recovery functions.
type Future[T any] interface {
	Poll() (T, bool, error)
	Ready() <-chan struct{}
	Drop()
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}()

// Ready returns a future that is resolved from the start.
func Ready[T any](v T, err error) Future[T] {
	return &readyFuture[T]{v: v, err: err}
}

type readyFuture[T any] struct {
	v     T
	err   error
	taken bool
}

func (f *readyFuture[T]) Poll() (T, bool, error) {
	f.taken = true

	return f.v, true, f.err
}

func (f *readyFuture[T]) Ready() <-chan struct{} { return closedCh }

func (f *readyFuture[T]) Drop() {
	if !f.taken {
		f.taken = true
		release(f.v)
	}
}

// Spawn runs fn on its own goroutine and returns a future for its result. The context passed to fn is
// canceled when the future is dropped. A panic in fn resolves the future with an error. When the future is
// dropped, a result that is produced after the fact is released instead of leaked.
func Spawn[T any](ctx context.Context, fn func(context.Context) (T, error)) Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &spawnFuture[T]{done: make(chan struct{}), cancel: cancel}

	go f.run(ctx, fn)

	return f
}

type spawnFuture[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	val      T
	err      error
	resolved bool
	taken    bool
	dropped  bool
}

func (f *spawnFuture[T]) run(ctx context.Context, fn func(context.Context) (T, error)) {
	v, err := call(ctx, fn)

	f.mu.Lock()
	f.val, f.err, f.resolved = v, err, true
	dropped := f.dropped
	f.mu.Unlock()

	close(f.done)

	if dropped {
		release(v)
	}
}

func (f *spawnFuture[T]) Poll() (T, bool, error) {
	select {
	case <-f.done:
	default:
		var zero T
		return zero, false, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.taken = true

	return f.val, true, f.err
}

func (f *spawnFuture[T]) Ready() <-chan struct{} { return f.done }

func (f *spawnFuture[T]) Drop() {
	f.mu.Lock()
	if f.taken || f.dropped {
		f.mu.Unlock()
		return
	}

	f.dropped = true
	resolved, v := f.resolved, f.val
	f.mu.Unlock()

	f.cancel()
	if resolved {
		release(v)
	}
}

func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("bpipe: recovered from panic: %v", r)
		}
	}()

	return fn(ctx)
}

// release closes values that own resources, such as responses with a body.
func release(v any) {
	if c, ok := v.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

// Await drives the future to completion. If ctx is done first the future is dropped and the context's error
// is returned.
func Await[T any](ctx context.Context, f Future[T]) (T, error) {
	for {
		if v, ok, err := f.Poll(); ok {
			return v, err
		}

		select {
		case <-f.Ready():
		case <-ctx.Done():
			f.Drop()

			var zero T
			return zero, errors.Wrap(ctx.Err(), "await")
		}
	}
}

// Then returns a future that resolves with the result of calling fn on the outcome of f. It allows middleware
// to post-process a response, or an error, without blocking.
func Then[T, U any](f Future[T], fn func(T, error) (U, error)) Future[U] {
	return &thenFuture[T, U]{inner: f, fn: fn}
}

type thenFuture[T, U any] struct {
	inner Future[T]
	fn    func(T, error) (U, error)
}

func (f *thenFuture[T, U]) Poll() (U, bool, error) {
	v, ok, err := f.inner.Poll()
	if !ok {
		var zero U
		return zero, false, nil
	}

	fn := f.fn
	if fn == nil {
		panic("bpipe: future polled after completion")
	}

	f.fn = nil
	u, err := fn(v, err)

	return u, true, err
}

func (f *thenFuture[T, U]) Ready() <-chan struct{} { return f.inner.Ready() }

func (f *thenFuture[T, U]) Drop() {
	if f.fn != nil {
		f.fn = nil
		f.inner.Drop()
	}
}
