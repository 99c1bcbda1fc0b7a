package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/isso/pkg/logger"
)

// stackSize bounds the stack captured for a panicking handler.
const stackSize = 4 << 10

// Dispatcher binds each request to a registered handler, invokes it and
// turns its outcome into exactly one response.
//
// Routing failures become 404 or 405 without logging. *HTTPError results
// keep their status and message. Any other error, including a panic, is
// logged once with the request method and path and answered with a generic
// 500 that leaks no detail.
type Dispatcher struct {
	table        *routeTable
	logger       *slog.Logger
	origins      Origins
	healthConfig *healthConfig
	middlewares  []Middleware
	handlers     []Handler
	invocations  atomic.Int64
}

// NewDispatcher builds a Dispatcher and registers all handlers.
// The route table is fixed after this call.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		table:  newRouteTable(),
		logger: logger.NewNope(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.setupRoutes()
	return d
}

func (d *Dispatcher) setupRoutes() {
	r := &routerAdapter{table: d.table}
	r.Use(d.middlewares...)

	if d.healthConfig != nil {
		d.healthConfig.Routes(r)
	}

	for _, h := range d.handlers {
		h.Routes(r)
	}
}

// Bind resolves r to a route without invoking anything.
func (d *Dispatcher) Bind(r *http.Request) MatchResult {
	return d.table.Bind(r)
}

// Origins returns the configured origin set.
func (d *Dispatcher) Origins() Origins {
	return d.origins
}

// Invocations returns how many handlers have been invoked so far.
func (d *Dispatcher) Invocations() int64 {
	return d.invocations.Load()
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	local := LocalFrom(r.Context())
	if local == nil {
		local = &Local{}
		defer local.reset()
		r = r.WithContext(withLocal(r.Context(), local))
	}
	local.set(r, resolveHost(r), d.origins.Resolve(r))

	rw := NewResponseWriter(w)
	defer func() {
		_ = rw.commit(r.Method)
	}()

	m := d.table.Bind(r)
	switch m.Status {
	case MatchNotFound:
		writeHTTPError(rw, ErrNotFound(""))
		return
	case MatchMethodNotAllowed:
		rw.Header().Set("Allow", strings.Join(m.Allowed, ", "))
		writeHTTPError(rw, ErrMethodNotAllowed(""))
		return
	}

	local.setRoute(m.Pattern)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, m.routeCtx))
	c := newContext(rw, r, d.logger, local, m.Params)

	if err := d.invoke(m.Handler, c); err != nil {
		d.handleError(c, err)
	}
}

func (d *Dispatcher) invoke(h HandlerFunc, c *requestContext) (err error) {
	d.invocations.Add(1)
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			stack := make([]byte, stackSize)
			stack = stack[:runtime.Stack(stack, false)]
			err = &PanicError{Value: v, Stack: stack}
		}
	}()
	return h(c)
}

func (d *Dispatcher) handleError(c *requestContext, err error) {
	// Whatever the handler wrote is discarded; the error is the response.
	c.response.reset()

	if httpErr := AsHTTPError(err); httpErr != nil {
		if httpErr.Code >= http.StatusInternalServerError && httpErr.Err != nil {
			c.LogError("handler failed",
				slog.String("method", c.request.Method),
				slog.String("path", c.request.URL.Path),
				slog.Int("status", httpErr.Code),
				logger.Error(httpErr.Err),
			)
		}
		writeHTTPError(c.response, httpErr)
		return
	}

	attrs := []any{
		slog.String("method", c.request.Method),
		slog.String("path", c.request.URL.Path),
		logger.Error(err),
	}
	if pe, ok := AsPanicError(err); ok {
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}
	c.LogError("unhandled error while serving request", attrs...)
	writeHTTPError(c.response, ErrInternal(""))
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeHTTPError answers with the status of e and a JSON body {"error": msg}.
func writeHTTPError(w http.ResponseWriter, e *HTTPError) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.Code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: e.Message})
}
