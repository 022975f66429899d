// Package pathpattern parses the route patterns of the standard library's http.ServeMux and builds paths
// from them.
package pathpattern

import (
	"go/token"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

// Pattern is a parsed "[METHOD ][HOST]/[PATH]" route pattern.
type Pattern struct {
	Method string
	Host   string

	segments []segment
}

type segment struct {
	s     string // literal text, or the wildcard name
	wild  bool
	multi bool // {name...}
	end   bool // {$}
}

// Parse parses a route pattern with the syntax of http.ServeMux.
func Parse(s string) (*Pattern, error) {
	if s == "" {
		return nil, errors.New("empty pattern")
	}

	p := &Pattern{}
	rest := s
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		p.Method, rest = rest[:i], strings.TrimLeft(rest[i+1:], " \t")
	}

	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return nil, errors.Newf("host/path missing /: %q", s)
	}

	p.Host, rest = rest[:i], rest[i+1:]

	parts := strings.Split(rest, "/")
	for n, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %q", s)
		}

		last := n == len(parts)-1
		if (seg.multi || seg.end) && !last {
			return nil, errors.Newf("pattern %q: %q must be the final segment", s, part)
		}

		p.segments = append(p.segments, seg)
	}

	return p, nil
}

func parseSegment(part string) (segment, error) {
	if !strings.Contains(part, "{") && !strings.Contains(part, "}") {
		return segment{s: part}, nil
	}

	if !strings.HasPrefix(part, "{") || !strings.HasSuffix(part, "}") {
		return segment{}, errors.Newf("bad wildcard segment %q: must occupy the whole segment", part)
	}

	name := part[1 : len(part)-1]
	if name == "$" {
		return segment{end: true}, nil
	}

	seg := segment{wild: true}
	if strings.HasSuffix(name, "...") {
		seg.multi = true
		name = strings.TrimSuffix(name, "...")
	}

	if !token.IsIdentifier(name) {
		return segment{}, errors.Newf("bad wildcard name %q", name)
	}

	seg.s = name

	return seg, nil
}

// Wildcards returns the names of the pattern's wildcards, in order.
func (p *Pattern) Wildcards() []string {
	var names []string
	for _, seg := range p.segments {
		if seg.wild {
			names = append(names, seg.s)
		}
	}

	return names
}

// Build substitutes the values for the wildcards of the pattern, in order, and returns the path.
func Build(p *Pattern, vals ...string) (string, error) {
	if n := len(p.Wildcards()); n != len(vals) {
		if n > len(vals) {
			return "", errors.Newf("not enough values: pattern has %d wildcards, got %d", n, len(vals))
		}

		return "", errors.Newf("too many values: pattern has %d wildcards, got %d", n, len(vals))
	}

	parts := make([]string, 0, len(p.segments))
	for _, seg := range p.segments {
		switch {
		case seg.end:
			parts = append(parts, "")
		case seg.multi:
			elems := strings.Split(vals[0], "/")
			for i, e := range elems {
				elems[i] = url.PathEscape(e)
			}

			parts, vals = append(parts, strings.Join(elems, "/")), vals[1:]
		case seg.wild:
			parts, vals = append(parts, url.PathEscape(vals[0])), vals[1:]
		default:
			parts = append(parts, seg.s)
		}
	}

	return "/" + strings.Join(parts, "/"), nil
}
