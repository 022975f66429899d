package bpipe

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about errors at the transport edge. The response pipeline itself
// never logs, errors travel up to [ToStd] which reports them here.
type Logger interface {
	LogUnhandledServeError(err error)
	LogBodyWriteError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(err error) {
	l.Logger.Printf("bpipe: unhandled server error: %s", err)
}

func (l stdLogger) LogBodyWriteError(err error) {
	l.Logger.Printf("bpipe: error while writing response body: %s", err)
}

// NewStdLogger creates a logger that prints to l, or to the standard logger if l is nil.
func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}

	return stdLogger{l}
}

// TestLogger reports to the test log and counts what it was told.
type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogBodyWriteError      int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.tb.Logf("bpipe: unhandled server error: %s", err)
}

func (l *TestLogger) LogBodyWriteError(err error) {
	atomic.AddInt64(&l.NumLogBodyWriteError, 1)
	l.tb.Logf("bpipe: error while writing response body: %s", err)
}

var _ Logger = &TestLogger{}
