package bpipe

import (
	"net/http"
)

// ServeMux is an HTTP multiplexer that routes requests into response pipelines. Path matching is left to the
// standard library's http.ServeMux, method dispatch and response shaping to [MethodRouter].
type ServeMux struct {
	logs        Logger
	bufLimit    int
	reverser    *Reverser
	mux         *http.ServeMux
	middlewares struct {
		captured bool
		layers   []Middleware
	}
}

// NewServeMux creates a new ServeMux with default settings.
func NewServeMux() *ServeMux {
	return NewServeMuxWith(-1, NewStdLogger(nil), http.NewServeMux(), NewReverser())
}

// NewServeMuxWith creates a ServeMux with custom settings. The buffer limit applies to handlers registered
// through [ServeMux.HandleFunc] and [ServeMux.HandleStd].
func NewServeMuxWith(bufLimit int, logger Logger, baseMux *http.ServeMux, reverser *Reverser) *ServeMux {
	return &ServeMux{
		bufLimit: bufLimit,
		logs:     logger,
		reverser: reverser,
		mux:      baseMux,
	}
}

// Reverse returns the url based on the name and parameter values.
func (m *ServeMux) Reverse(name string, vals ...string) (string, error) {
	return m.reverser.Reverse(name, vals...)
}

// Use allows providing of middleware.
func (m *ServeMux) Use(mw ...Middleware) {
	m.ensureNoUseAfterHandle()
	m.middlewares.layers = append(m.middlewares.layers, mw...)
}

// Route registers a method router for a path pattern. The pattern must not contain a method, the router
// decides over methods.
func (m *ServeMux) Route(pattern string, mr *MethodRouter, name ...string) {
	m.Handle(pattern, mr, name...)
}

// Handle registers a service for the pattern. Unlike [ServeMux.Route] the service sees every request as-is,
// HEAD responses are not stripped of their body here.
func (m *ServeMux) Handle(pattern string, s BoxService, name ...string) {
	m.handle(pattern, ToStd(Wrap(s, m.middlewares.layers...), m.logs), name...)
}

// HandleFunc handles the request given the pattern using a buffered handler function.
func (m *ServeMux) HandleFunc(pattern string, handler HandlerFunc, name ...string) {
	m.Handle(pattern, ToService(handler, m.bufLimit), name...)
}

// HandleStd registers a standard library [http.Handler] for the given pattern. Middleware registered via
// [ServeMux.Use] is applied. The handler owns its error responses since it cannot return errors.
func (m *ServeMux) HandleStd(pattern string, handler http.Handler, name ...string) {
	m.Handle(pattern, FromStd(handler, m.bufLimit), name...)
}

// ServeHTTP makes the server mux implement the http.Handler interface.
func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

func (m *ServeMux) handle(pattern string, handler http.Handler, name ...string) {
	m.middlewares.captured = true

	if len(name) > 0 {
		pattern = m.reverser.Named(name[0], pattern)
	}

	m.mux.Handle(pattern, handler)
}

func (m *ServeMux) ensureNoUseAfterHandle() {
	if m.middlewares.captured {
		panic("bpipe: cannot call Use() after calling Handle")
	}
}
