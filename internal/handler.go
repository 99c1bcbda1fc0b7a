package internal

import "net/http"

// Handler declares routes on a router.
// View collaborators implement it and are registered once at bootstrap.
//
// Example:
//
//	type InfoView struct{}
//
//	func (v *InfoView) Routes(r internal.Router) {
//	    r.GET("/info", v.show)
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the signature for route handlers.
// Returning an *HTTPError surfaces that status to the client; any other
// non-nil error (or a panic) becomes a logged 500.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add route-level behavior.
type Middleware func(next HandlerFunc) HandlerFunc

// Stage wraps a whole application handler. Stages form the middleware chain
// around the Dispatcher.
type Stage = func(next http.Handler) http.Handler

// Chain wraps h with stages, innermost first: Chain(h, a, b) serves requests
// through b(a(h)).
func Chain(h http.Handler, stages ...Stage) http.Handler {
	for _, s := range stages {
		if s != nil {
			h = s(h)
		}
	}
	return h
}

// WrapHTTP adapts a plain http.Handler to a HandlerFunc.
func WrapHTTP(h http.Handler) HandlerFunc {
	return func(c Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
