package internal

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Router is the interface handlers use to declare routes.
type Router interface {
	// GET registers a handler for GET requests.
	GET(path string, h HandlerFunc, mw ...Middleware)

	// POST registers a handler for POST requests.
	POST(path string, h HandlerFunc, mw ...Middleware)

	// PUT registers a handler for PUT requests.
	PUT(path string, h HandlerFunc, mw ...Middleware)

	// PATCH registers a handler for PATCH requests.
	PATCH(path string, h HandlerFunc, mw ...Middleware)

	// DELETE registers a handler for DELETE requests.
	DELETE(path string, h HandlerFunc, mw ...Middleware)

	// HEAD registers a handler for HEAD requests.
	// GET routes answer HEAD automatically.
	HEAD(path string, h HandlerFunc, mw ...Middleware)

	// OPTIONS registers a handler for OPTIONS requests.
	OPTIONS(path string, h HandlerFunc, mw ...Middleware)

	// Group creates an inline route group that shares middleware but no prefix.
	Group(fn func(r Router))

	// Route creates a route group under a pattern prefix.
	Route(pattern string, fn func(r Router))

	// Use appends middleware for routes registered afterwards on this router.
	Use(mw ...Middleware)
}

// MatchStatus is the outcome of binding a request to the route table.
type MatchStatus int

const (
	// MatchFound means a handler is registered for the path and method.
	MatchFound MatchStatus = iota
	// MatchNotFound means no route matches the path.
	MatchNotFound
	// MatchMethodNotAllowed means the path exists under other methods.
	MatchMethodNotAllowed
)

func (s MatchStatus) String() string {
	switch s {
	case MatchFound:
		return "found"
	case MatchNotFound:
		return "not_found"
	case MatchMethodNotAllowed:
		return "method_not_allowed"
	default:
		return "unknown"
	}
}

// MatchResult is the explicit result of Bind.
type MatchResult struct {
	Handler  HandlerFunc
	Params   map[string]string
	routeCtx *chi.Context
	Pattern  string
	Allowed  []string
	Status   MatchStatus
}

var routableMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// routeTable keeps a flat chi tree for path matching and the handlers keyed
// by method and pattern.
type routeTable struct {
	mux      *chi.Mux
	handlers map[string]HandlerFunc
}

func newRouteTable() *routeTable {
	return &routeTable{
		mux:      chi.NewMux(),
		handlers: make(map[string]HandlerFunc),
	}
}

func routeKey(method, pattern string) string {
	return method + " " + pattern
}

func (t *routeTable) add(method, pattern string, h HandlerFunc) {
	t.mux.Method(method, pattern, http.NotFoundHandler())
	t.handlers[routeKey(method, pattern)] = h
}

// Bind resolves r against the table. It never invokes a handler.
func (t *routeTable) Bind(r *http.Request) MatchResult {
	path := r.URL.RawPath
	if path == "" {
		path = r.URL.Path
	}
	if path == "" {
		path = "/"
	}

	if res, ok := t.match(r.Method, path); ok {
		return res
	}
	if r.Method == http.MethodHead {
		if res, ok := t.match(http.MethodGet, path); ok {
			return res
		}
	}

	var allowed []string
	for _, m := range routableMethods {
		if m == r.Method {
			continue
		}
		if t.mux.Match(chi.NewRouteContext(), m, path) {
			allowed = append(allowed, m)
		}
	}
	if len(allowed) == 0 {
		return MatchResult{Status: MatchNotFound}
	}
	if slices.Contains(allowed, http.MethodGet) && !slices.Contains(allowed, http.MethodHead) && r.Method != http.MethodHead {
		allowed = append(allowed, http.MethodHead)
	}
	return MatchResult{Status: MatchMethodNotAllowed, Allowed: allowed}
}

func (t *routeTable) match(method, path string) (MatchResult, bool) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, method, path) || len(rctx.RoutePatterns) == 0 {
		return MatchResult{}, false
	}
	pattern := rctx.RoutePatterns[len(rctx.RoutePatterns)-1]
	h, ok := t.handlers[routeKey(method, pattern)]
	if !ok {
		return MatchResult{}, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return MatchResult{
		Status:   MatchFound,
		Pattern:  pattern,
		Handler:  h,
		Params:   params,
		routeCtx: rctx,
	}, true
}

// routerAdapter registers HandlerFuncs into a routeTable.
type routerAdapter struct {
	table  *routeTable
	prefix string
	mw     []Middleware
}

func (r *routerAdapter) GET(path string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodGet, path, h, mw)
}

func (r *routerAdapter) POST(path string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPost, path, h, mw)
}

func (r *routerAdapter) PUT(path string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPut, path, h, mw)
}

func (r *routerAdapter) PATCH(path string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodPatch, path, h, mw)
}

func (r *routerAdapter) DELETE(path string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodDelete, path, h, mw)
}

func (r *routerAdapter) HEAD(path string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodHead, path, h, mw)
}

func (r *routerAdapter) OPTIONS(path string, h HandlerFunc, mw ...Middleware) {
	r.handle(http.MethodOptions, path, h, mw)
}

func (r *routerAdapter) Group(fn func(Router)) {
	fn(r.child(r.prefix))
}

func (r *routerAdapter) Route(pattern string, fn func(Router)) {
	fn(r.child(joinPattern(r.prefix, pattern)))
}

func (r *routerAdapter) Use(mw ...Middleware) {
	r.mw = append(r.mw, mw...)
}

func (r *routerAdapter) child(prefix string) *routerAdapter {
	return &routerAdapter{
		table:  r.table,
		prefix: prefix,
		mw:     slices.Clone(r.mw),
	}
}

func (r *routerAdapter) handle(method, path string, h HandlerFunc, mw []Middleware) {
	// First listed middleware runs outermost; router-level before route-level.
	chain := append(slices.Clone(r.mw), mw...)
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	r.table.add(method, joinPattern(r.prefix, path), h)
}

func joinPattern(prefix, path string) string {
	if prefix == "" {
		return path
	}
	if path == "/" || path == "" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(path, "/")
}
