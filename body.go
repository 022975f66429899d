package bpipe

import (
	"io"
	"reflect"

	"github.com/cockroachdb/errors"
)

// ErrBodyClosed is returned when a boxed body is read after it was closed.
var ErrBodyClosed = errors.New("bpipe: read on closed body")

// BoxBody is a type-erased streaming response body. It is consumed at most once: either by reading it to
// the end, or by closing it. Closing runs the cleanup of the wrapped body exactly once.
type BoxBody struct {
	r      io.Reader
	c      io.Closer
	closed bool
}

// Box erases the concrete type of a response body. Boxing a body that is already boxed returns it as-is and
// a nil body boxes into an empty one. If the body implements io.Closer it is closed when the boxed body is.
func Box[B io.Reader](b B) *BoxBody {
	switch v := any(b).(type) {
	case nil:
		return Empty()
	case *BoxBody:
		if v == nil {
			return Empty()
		}

		return v
	}

	if isNil(b) {
		return Empty()
	}

	switch v := any(b).(type) {
	case io.Closer:
		return &BoxBody{r: b, c: v}
	default:
		return &BoxBody{r: b}
	}
}

// isNil reports whether b holds a nil pointer, map, func or chan, such as the body of a zero Response.
func isNil(b any) bool {
	switch v := reflect.ValueOf(b); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// Empty returns a body without any content.
func Empty() *BoxBody {
	return &BoxBody{}
}

// Read implements io.Reader by delegating to the wrapped body.
func (b *BoxBody) Read(p []byte) (int, error) {
	if b.closed {
		return 0, ErrBodyClosed
	}

	if b.r == nil {
		return 0, io.EOF
	}

	return b.r.Read(p)
}

// WriteTo copies the remaining body into w.
func (b *BoxBody) WriteTo(w io.Writer) (int64, error) {
	if b.closed {
		return 0, ErrBodyClosed
	}

	if b.r == nil {
		return 0, nil
	}

	n, err := io.Copy(w, b.r)
	if err != nil {
		return n, errors.Wrap(err, "copy body")
	}

	return n, nil
}

// Close releases the wrapped body. It is safe to call more than once.
func (b *BoxBody) Close() error {
	if b == nil || b.closed {
		return nil
	}

	b.closed = true
	if b.c == nil {
		return nil
	}

	if err := b.c.Close(); err != nil {
		return errors.Wrap(err, "close body")
	}

	return nil
}

var (
	_ io.ReadCloser = &BoxBody{}
	_ io.WriterTo   = &BoxBody{}
)
