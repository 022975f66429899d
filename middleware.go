package bpipe

// Middleware for cross-cutting concerns. Middleware wraps the service and usually post-processes its future
// with [Then].
type Middleware func(BoxService) BoxService

// Wrap takes the inner service s and wraps it with middleware. The order is that of the Gorilla and Chi router.
// That is: the middleware provided first is called first and is the "outer" most wrapping, the middleware
// provided last will be the "inner most" wrapping (closest to the handler).
func Wrap(s BoxService, m ...Middleware) BoxService {
	if len(m) < 1 {
		return s
	}

	wrapped := s
	for i := len(m) - 1; i >= 0; i-- {
		wrapped = m[i](wrapped)
	}

	return wrapped
}
