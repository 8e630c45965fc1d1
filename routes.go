package reqlog

import (
	"strings"
	"sync"
)

type routeConfig struct {
	excludeResponse *bool
	mws             []Middleware
}

// RouteOption configures a route or a group of routes.
type RouteOption func(*routeConfig)

// ExcludeResponseLogger leaves the response body out of the request record.
func ExcludeResponseLogger() RouteOption {
	return func(c *routeConfig) {
		v := true
		c.excludeResponse = &v
	}
}

// IncludeResponseLogger logs the response body, overriding an exclusion set
// on an enclosing group.
func IncludeResponseLogger() RouteOption {
	return func(c *routeConfig) {
		v := false
		c.excludeResponse = &v
	}
}

// WithMiddleware adds middleware to a route or to every route of a group.
func WithMiddleware(mws ...Middleware) RouteOption {
	return func(c *routeConfig) {
		c.mws = append(c.mws, mws...)
	}
}

func newRouteConfig(opts []RouteOption) routeConfig {
	var c routeConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// routeFlags resolves the response logging flag of a route at dispatch time.
// A flag set on the route wins, then the flag of the longest group prefix
// containing the route, then the default of logging responses.
type routeFlags struct {
	mu     sync.RWMutex
	routes map[string]bool
	groups map[string]bool
}

func newRouteFlags() *routeFlags {
	return &routeFlags{routes: map[string]bool{}, groups: map[string]bool{}}
}

func routeKey(method, path string) string { return method + " " + path }

func (f *routeFlags) setRoute(method, path string, exclude bool) {
	f.mu.Lock()
	f.routes[routeKey(method, path)] = exclude
	f.mu.Unlock()
}

func (f *routeFlags) setGroup(prefix string, exclude bool) {
	f.mu.Lock()
	f.groups[prefix] = exclude
	f.mu.Unlock()
}

func (f *routeFlags) excluded(method, path string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if v, ok := f.routes[routeKey(method, path)]; ok {
		return v
	}
	best, found, exclude := -1, false, false
	for prefix, v := range f.groups {
		if len(prefix) > best && hasPathPrefix(path, prefix) {
			best, found, exclude = len(prefix), true, v
		}
	}
	return found && exclude
}

// hasPathPrefix matches whole path segments: /api matches /api and /api/x,
// not /apix.
func hasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == emptyString {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
