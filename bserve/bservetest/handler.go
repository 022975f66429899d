package bservetest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bpipe"
)

// CallHandler invokes a [bpipe.HandlerFunc] the way a mux would and returns the recorded response. Errors the
// handler returns are rendered by the transport; errors it does not code are counted on the returned logger.
func CallHandler(tb testing.TB, handler bpipe.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, *bpipe.TestLogger) {
	tb.Helper()

	rec := httptest.NewRecorder()
	logs := bpipe.NewTestLogger(tb)
	bpipe.ToStd(bpipe.ToService(handler, -1), logs).ServeHTTP(rec, req)

	return rec, logs
}
