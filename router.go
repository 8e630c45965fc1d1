package reqlog

import (
	"context"
	"net/http"
	"runtime/debug"
	"slices"

	"github.com/julienschmidt/httprouter"
)

// Handler is the application-style handler used by this router.
//
// It returns a response payload (that will be wrapped in a Response and JSON
// encoded) or an error (handled by the ExceptionHandler). Returning a *Stream
// writes it unwrapped.
type Handler func(ctx context.Context, r *http.Request) (any, error)

// Router is an http.Handler that wraps httprouter, binds a correlation scope
// to every request and logs every response.
type Router struct {
	hr         *httprouter.Router
	logger     RequestLogger
	exceptions *ExceptionHandler
	flags      *routeFlags
	mws        []Middleware
	gen        IDGenerator
	notifier   Notifier
	handler    http.Handler
}

// RouterOption configures NewRouter.
type RouterOption func(*Router)

// WithNotifier sends the readable record of every failed request to n.
func WithNotifier(n Notifier) RouterOption {
	return func(r *Router) { r.notifier = n }
}

// WithIDGenerator replaces the UUID generator for new correlation ids.
func WithIDGenerator(g IDGenerator) RouterOption {
	return func(r *Router) { r.gen = g }
}

// NewRouter builds a router logging through logger. GET /health-check is
// registered and answered without being logged.
func NewRouter(logger RequestLogger, opts ...RouterOption) *Router {
	ro := &Router{
		logger: logger,
		flags:  newRouteFlags(),
		gen:    UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(ro)
	}
	ro.exceptions = NewExceptionHandler(logger, ro.notifier)

	ro.hr = &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ro.exceptions.Handle(w, r, nil, NewHTTPError(http.StatusNotFound, "endpoint not found"))
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ro.exceptions.Handle(w, r, nil, NewHTTPError(http.StatusMethodNotAllowed, "method not allowed"))
		}),
	}
	ro.handler = Chain(ro.hr, Correlation(WithGenerator(ro.gen)))

	ro.GET(healthCheckPath, func(context.Context, *http.Request) (any, error) {
		return "OK", nil
	})

	return ro
}

// Use appends middleware for routes registered afterwards.
func (r *Router) Use(mws ...Middleware) {
	r.mws = append(r.mws, mws...)
}

// GET registers a GET endpoint using the application Handler signature.
func (r *Router) GET(path string, h Handler, opts ...RouteOption) {
	r.endpoint(http.MethodGet, path, h, newRouteConfig(opts))
}

// POST registers a POST endpoint using the application Handler signature.
func (r *Router) POST(path string, h Handler, opts ...RouteOption) {
	r.endpoint(http.MethodPost, path, h, newRouteConfig(opts))
}

// PUT registers a PUT endpoint using the application Handler signature.
func (r *Router) PUT(path string, h Handler, opts ...RouteOption) {
	r.endpoint(http.MethodPut, path, h, newRouteConfig(opts))
}

// PATCH registers a PATCH endpoint using the application Handler signature.
func (r *Router) PATCH(path string, h Handler, opts ...RouteOption) {
	r.endpoint(http.MethodPatch, path, h, newRouteConfig(opts))
}

// DELETE registers a DELETE endpoint using the application Handler signature.
func (r *Router) DELETE(path string, h Handler, opts ...RouteOption) {
	r.endpoint(http.MethodDelete, path, h, newRouteConfig(opts))
}

// Handle registers a raw http.Handler with the router. It is neither
// wrapped nor logged.
func (r *Router) Handle(method, path string, h http.Handler, mws ...Middleware) {
	r.hr.Handler(method, path, Chain(h, append(slices.Clone(r.mws), mws...)...))
}

// Group returns a registrar for routes below prefix. Options given here
// apply to every route of the group.
func (r *Router) Group(prefix string, opts ...RouteOption) *Group {
	cfg := newRouteConfig(opts)
	if cfg.excludeResponse != nil {
		r.flags.setGroup(prefix, *cfg.excludeResponse)
	}
	return &Group{router: r, prefix: prefix, mws: cfg.mws}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) endpoint(method, path string, h Handler, cfg routeConfig) {
	if cfg.excludeResponse != nil {
		r.flags.setRoute(method, path, *cfg.excludeResponse)
	}

	r.hr.Handler(method, path, Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		info := CaptureRequest(req)

		resp, err := call(h, req)
		if err != nil {
			r.exceptions.Handle(w, req, info, err)
			return
		}

		if s, ok := resp.(*Stream); ok {
			status := s.Status
			if status == 0 {
				status = http.StatusOK
			}
			r.logger.LogAPIRequestResponse(ctx, info, emptyString, status, nil)
			if werr := s.writeTo(w); werr != nil {
				r.logger.Warn(ctx, "failed to write stream", Fields{"cause": werr.Error()})
			}
			return
		}

		code := http.StatusOK
		if sc, ok := resp.(interface{ StatusCode() int }); ok {
			code = sc.StatusCode()
		}
		body := Success(resp)

		var logged any = body
		if r.flags.excluded(method, path) {
			logged = nil
		}
		r.logger.LogAPIRequestResponse(ctx, info, body.Status, code, logged)

		if werr := writeJSON(w, body, code); werr != nil {
			r.logger.Warn(ctx, "failed to write response", Fields{"cause": werr.Error()})
		}
	}), append(slices.Clone(r.mws), cfg.mws...)...))
}

// call runs h, turning a panic into a *panicError.
func call(h Handler, req *http.Request) (resp any, err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			//nolint:errorlint // this must compare directly
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			resp, err = nil, &panicError{value: rvr, stack: string(debug.Stack())}
		}
	}()
	return h(req.Context(), req)
}

// Group registers routes below a common prefix.
type Group struct {
	router *Router
	prefix string
	mws    []Middleware
}

func (g *Group) GET(path string, h Handler, opts ...RouteOption) {
	g.handle(http.MethodGet, path, h, opts)
}

func (g *Group) POST(path string, h Handler, opts ...RouteOption) {
	g.handle(http.MethodPost, path, h, opts)
}

func (g *Group) PUT(path string, h Handler, opts ...RouteOption) {
	g.handle(http.MethodPut, path, h, opts)
}

func (g *Group) PATCH(path string, h Handler, opts ...RouteOption) {
	g.handle(http.MethodPatch, path, h, opts)
}

func (g *Group) DELETE(path string, h Handler, opts ...RouteOption) {
	g.handle(http.MethodDelete, path, h, opts)
}

// Group nests a group below g. Its options override those of g.
func (g *Group) Group(prefix string, opts ...RouteOption) *Group {
	sub := g.router.Group(g.prefix+prefix, opts...)
	sub.mws = append(slices.Clone(g.mws), sub.mws...)
	return sub
}

func (g *Group) handle(method, path string, h Handler, opts []RouteOption) {
	cfg := newRouteConfig(opts)
	cfg.mws = append(slices.Clone(g.mws), cfg.mws...)
	g.router.endpoint(method, g.prefix+path, h, cfg)
}

// PathParam returns the value of the named path parameter of r, or "".
func PathParam(r *http.Request, name string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(name)
}
