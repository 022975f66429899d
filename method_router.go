package bpipe

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// MethodRouter dispatches the requests of a single route to the service registered for the request's method.
// HEAD requests are served by the GET service unless a HEAD service is registered explicitly, and HEAD
// responses never carry a body. Methods without a service are served by the fallback, which defaults to a
// 405 Method Not Allowed response.
type MethodRouter struct {
	services map[string]BoxService
	fallback BoxService
}

// NewMethodRouter creates a method router without any services.
func NewMethodRouter() *MethodRouter {
	return &MethodRouter{services: map[string]BoxService{}}
}

// On registers the service for requests with the given method. Registering a method twice panics.
func (m *MethodRouter) On(method string, s BoxService) *MethodRouter {
	if _, exists := m.services[method]; exists {
		panic("bpipe: service for method " + method + " already registered")
	}

	m.services[method] = s

	return m
}

// OnFunc registers a buffered handler function for requests with the given method.
func (m *MethodRouter) OnFunc(method string, h HandlerFunc) *MethodRouter {
	return m.On(method, ToService(h, -1))
}

// Fallback sets the service for requests whose method has no registration.
func (m *MethodRouter) Fallback(s BoxService) *MethodRouter {
	m.fallback = s
	return m
}

func (m *MethodRouter) Get(s BoxService) *MethodRouter     { return m.On(http.MethodGet, s) }
func (m *MethodRouter) Head(s BoxService) *MethodRouter    { return m.On(http.MethodHead, s) }
func (m *MethodRouter) Post(s BoxService) *MethodRouter    { return m.On(http.MethodPost, s) }
func (m *MethodRouter) Put(s BoxService) *MethodRouter     { return m.On(http.MethodPut, s) }
func (m *MethodRouter) Patch(s BoxService) *MethodRouter   { return m.On(http.MethodPatch, s) }
func (m *MethodRouter) Delete(s BoxService) *MethodRouter  { return m.On(http.MethodDelete, s) }
func (m *MethodRouter) Options(s BoxService) *MethodRouter { return m.On(http.MethodOptions, s) }

func (m *MethodRouter) GetFunc(h HandlerFunc) *MethodRouter    { return m.OnFunc(http.MethodGet, h) }
func (m *MethodRouter) HeadFunc(h HandlerFunc) *MethodRouter   { return m.OnFunc(http.MethodHead, h) }
func (m *MethodRouter) PostFunc(h HandlerFunc) *MethodRouter   { return m.OnFunc(http.MethodPost, h) }
func (m *MethodRouter) PutFunc(h HandlerFunc) *MethodRouter    { return m.OnFunc(http.MethodPut, h) }
func (m *MethodRouter) PatchFunc(h HandlerFunc) *MethodRouter  { return m.OnFunc(http.MethodPatch, h) }
func (m *MethodRouter) DeleteFunc(h HandlerFunc) *MethodRouter { return m.OnFunc(http.MethodDelete, h) }

// Get creates a method router that serves GET (and thereby HEAD) requests with s.
func Get(s BoxService) *MethodRouter { return NewMethodRouter().Get(s) }

// Head creates a method router that serves HEAD requests with s.
func Head(s BoxService) *MethodRouter { return NewMethodRouter().Head(s) }

// Post creates a method router that serves POST requests with s.
func Post(s BoxService) *MethodRouter { return NewMethodRouter().Post(s) }

// Put creates a method router that serves PUT requests with s.
func Put(s BoxService) *MethodRouter { return NewMethodRouter().Put(s) }

// Delete creates a method router that serves DELETE requests with s.
func Delete(s BoxService) *MethodRouter { return NewMethodRouter().Delete(s) }

// GetFunc creates a method router that serves GET (and thereby HEAD) requests with h.
func GetFunc(h HandlerFunc) *MethodRouter { return NewMethodRouter().GetFunc(h) }

// HeadFunc creates a method router that serves HEAD requests with h.
func HeadFunc(h HandlerFunc) *MethodRouter { return NewMethodRouter().HeadFunc(h) }

// PostFunc creates a method router that serves POST requests with h.
func PostFunc(h HandlerFunc) *MethodRouter { return NewMethodRouter().PostFunc(h) }

// Allowed returns the methods the router serves, sorted. HEAD is included whenever GET is.
func (m *MethodRouter) Allowed() []string {
	methods := lo.Keys(m.services)
	if _, ok := m.services[http.MethodGet]; ok && !lo.Contains(methods, http.MethodHead) {
		methods = append(methods, http.MethodHead)
	}

	slices.Sort(methods)

	return methods
}

// Call implements [Service]. The service is selected once, the returned future only drives it.
func (m *MethodRouter) Call(ctx context.Context, r *http.Request) Future[BoxResponse] {
	var rf *RouteFuture
	if s, ok := m.lookup(r.Method); ok {
		rf = PrimaryRoute(s.Call(ctx, r))
	} else {
		rf = FallbackRoute(m.fallbackService().Call(ctx, r))
	}

	return NewOnMethodResponseFuture(rf, r.Method)
}

func (m *MethodRouter) lookup(method string) (BoxService, bool) {
	if s, ok := m.services[method]; ok {
		return s, true
	}

	if method == http.MethodHead {
		s, ok := m.services[http.MethodGet]
		return s, ok
	}

	return nil, false
}

func (m *MethodRouter) fallbackService() BoxService {
	if m.fallback != nil {
		return m.fallback
	}

	allow := strings.Join(m.Allowed(), ", ")

	return ServiceFunc[*BoxBody](func(context.Context, *http.Request) Future[BoxResponse] {
		res := Status(http.StatusMethodNotAllowed).IntoResponse()
		res.Header.Set("Allow", allow)

		return Ready(res, nil)
	})
}

var _ BoxService = &MethodRouter{}
