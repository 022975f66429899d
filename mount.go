package bpipe

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Mount mounts a service on a sub-path pattern. The mounted service receives requests with the mount prefix
// stripped from the path. Middleware registered via [ServeMux.Use] sees the original path; the strip happens
// after middleware.
func (m *ServeMux) Mount(pattern string, s BoxService) {
	method, path := splitMethodPattern(pattern)

	stripped := stripPrefix(path, s)
	handler := ToStd(Wrap(stripped, m.middlewares.layers...), m.logs)

	m.handle(method+path, handler)
	m.handle(method+path+"/", handler)
}

// MountFunc mounts a buffered handler function on a sub-path pattern.
func (m *ServeMux) MountFunc(pattern string, handler HandlerFunc) {
	m.Mount(pattern, ToService(handler, m.bufLimit))
}

// MountStd mounts a standard library [http.Handler] on a sub-path pattern. The mounted handler receives
// requests with the mount prefix stripped from the path.
func (m *ServeMux) MountStd(pattern string, handler http.Handler) {
	m.Mount(pattern, FromStd(handler, m.bufLimit))
}

func splitMethodPattern(pattern string) (method, path string) {
	if idx := strings.LastIndex(pattern, "/"); idx > 0 {
		prefix := pattern[:idx]
		if spaceIdx := strings.Index(prefix, " "); spaceIdx >= 0 {
			return pattern[:spaceIdx+1], pattern[spaceIdx+1:]
		}
	}

	return "", pattern
}

func stripPrefix(prefix string, s BoxService) BoxService {
	return ServiceFunc[*BoxBody](func(ctx context.Context, r *http.Request) Future[BoxResponse] {
		p := strings.TrimPrefix(r.URL.Path, prefix)
		if p == "" {
			p = "/"
		}

		rp := ""
		if r.URL.RawPath != "" {
			rp = strings.TrimPrefix(r.URL.RawPath, prefix)
			if rp == "" {
				rp = "/"
			}
		}

		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = p
		r2.URL.RawPath = rp

		return s.Call(ctx, r2)
	})
}
