package bpipe

import (
	"bytes"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrBufferLimitExceeded is returned when a handler writes more bytes than the buffer allows.
var ErrBufferLimitExceeded = errors.New("bpipe: response buffer limit exceeded")

var bufPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// ResponseBuffer is the [ResponseWriter] that buffered handlers write to. Nothing reaches the client until the
// handler returned, so the response can be reset and rewritten at any point.
type ResponseBuffer struct {
	header http.Header
	status int
	buf    *bytes.Buffer
	limit  int
}

// NewResponseBuffer creates a response buffer that holds at most limit bytes. A negative limit means no
// limit.
func NewResponseBuffer(limit int) *ResponseBuffer {
	buf, _ := bufPool.Get().(*bytes.Buffer)
	buf.Reset()

	return &ResponseBuffer{header: http.Header{}, buf: buf, limit: limit}
}

// Header implements http.ResponseWriter.
func (w *ResponseBuffer) Header() http.Header { return w.header }

// WriteHeader implements http.ResponseWriter. Only the first call has effect.
func (w *ResponseBuffer) WriteHeader(statusCode int) {
	if w.status != 0 {
		return
	}

	w.status = statusCode
}

// Write implements http.ResponseWriter.
func (w *ResponseBuffer) Write(p []byte) (int, error) {
	if w.buf == nil {
		return 0, errors.New("bpipe: write to freed response buffer")
	}

	if w.limit >= 0 && w.buf.Len()+len(p) > w.limit {
		return 0, errors.Wrapf(ErrBufferLimitExceeded, "writing %d bytes to %d buffered of %d", len(p), w.buf.Len(), w.limit)
	}

	if w.status == 0 {
		w.status = http.StatusOK
	}

	return w.buf.Write(p)
}

// Reset discards the status, headers and body written so far.
func (w *ResponseBuffer) Reset() {
	w.status = 0
	w.header = http.Header{}
	if w.buf != nil {
		w.buf.Reset()
	}
}

// Free returns the buffer to the pool. The response buffer must not be used afterwards.
func (w *ResponseBuffer) Free() {
	if w.buf == nil {
		return
	}

	bufPool.Put(w.buf)
	w.buf = nil
}

// Response turns what was written into a response. The buffered bytes move into the response body, closing
// the body returns them to the pool.
func (w *ResponseBuffer) Response() BoxResponse {
	if w.buf == nil {
		return BoxResponse{Status: w.status, Header: w.header, Body: Empty()}
	}

	body := &pooledBody{buf: w.buf}
	w.buf = nil

	return BoxResponse{Status: w.status, Header: w.header, Body: Box(body)}
}

type pooledBody struct{ buf *bytes.Buffer }

func (b *pooledBody) Read(p []byte) (int, error) { return b.buf.Read(p) }

func (b *pooledBody) Close() error {
	if b.buf != nil {
		bufPool.Put(b.buf)
		b.buf = nil
	}

	return nil
}

var _ ResponseWriter = &ResponseBuffer{}
