package bpipe

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Response is an HTTP response whose body is of type B. A zero Status means 200 OK.
type Response[B io.Reader] struct {
	Status int
	Header http.Header
	Body   B
}

// BoxResponse is a response with a type-erased body. It is what every route eventually resolves to.
type BoxResponse = Response[*BoxBody]

// IntoResponse is implemented by values that can be turned into a response, such as the values returned by a
// recovery function.
type IntoResponse interface {
	IntoResponse() BoxResponse
}

// StatusCode returns the response status, defaulting to 200 OK.
func (r Response[B]) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}

	return r.Status
}

// Boxed returns the response with its body boxed.
func (r Response[B]) Boxed() BoxResponse {
	return BoxResponse{Status: r.Status, Header: r.Header, Body: Box(r.Body)}
}

// IntoResponse implements [IntoResponse].
func (r Response[B]) IntoResponse() BoxResponse {
	return r.Boxed()
}

// Close closes the response body if it can be closed.
func (r Response[B]) Close() error {
	if c, ok := any(r.Body).(io.Closer); ok && !isNil(c) {
		return c.Close()
	}

	return nil
}

// Text creates a plain text response.
func Text(status int, s string) BoxResponse {
	hdr := http.Header{}
	hdr.Set("Content-Type", "text/plain; charset=utf-8")
	hdr.Set("Content-Length", strconv.Itoa(len(s)))

	return BoxResponse{Status: status, Header: hdr, Body: Box(strings.NewReader(s))}
}

// Status is a response that consists only of a status code.
type Status int

// IntoResponse implements [IntoResponse].
func (s Status) IntoResponse() BoxResponse {
	return BoxResponse{Status: int(s), Header: http.Header{}, Body: Empty()}
}

var (
	_ IntoResponse = Status(0)
	_ IntoResponse = BoxResponse{}
)
