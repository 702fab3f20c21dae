package mock

import (
	"net/http"
	"strings"
)

// HandlerFunc serves a matched route. Params holds the named path segments.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string)

type Route struct {
	Method      string
	PathPattern string
	Name        string
	Handler     HandlerFunc

	segments []string
}

// Router matches a request path segment by segment. A "{{name}}" segment
// matches any single non-empty segment.
type Router struct {
	routes []*Route
}

func NewRouter() *Router {
	return &Router{}
}

// Handle registers handler for method and a pattern such as
// "/posts/{{id}}". Routes are tried in registration order.
func (r *Router) Handle(method, pattern, name string, handler HandlerFunc) {
	r.routes = append(r.routes, &Route{
		Method:      strings.ToUpper(method),
		PathPattern: pattern,
		Name:        name,
		Handler:     handler,
		segments:    splitPath(pattern),
	})
}

func (r *Router) Routes() []*Route {
	return r.routes
}

// Match finds the route for method and path. The last result reports
// whether the path matched a route registered under another method.
func (r *Router) Match(method, path string) (*Route, map[string]string, bool) {
	segs := splitPath(path)
	pathMatched := false
	for _, route := range r.routes {
		params, ok := route.match(segs)
		if !ok {
			continue
		}
		if route.Method == strings.ToUpper(method) {
			return route, params, true
		}
		pathMatched = true
	}
	return nil, nil, pathMatched
}

func (rt *Route) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(rt.segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, want := range rt.segments {
		if name, ok := paramName(want); ok {
			if segs[i] == "" {
				return nil, false
			}
			params[name] = segs[i]
			continue
		}
		if want != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func paramName(seg string) (string, bool) {
	inner, ok := strings.CutPrefix(seg, "{{")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(inner, "}}")
}

// splitPath ignores leading and trailing slashes, so "/posts/" and "posts"
// are the same path.
func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
