package isso

import (
	"github.com/dmitrymomot/isso/internal"
)

// Version is stamped at build time.
var Version = "dev"

// Type aliases - public API
type (
	// Router is the interface handlers use to declare routes.
	Router = internal.Router

	// Context provides request/response access and helper methods.
	Context = internal.Context

	// Handler declares routes on a router.
	Handler = internal.Handler

	// HandlerFunc is the signature for route handlers.
	HandlerFunc = internal.HandlerFunc

	// Middleware wraps a HandlerFunc to add cross-cutting concerns.
	Middleware = internal.Middleware

	// Stage wraps the whole application as an http.Handler.
	Stage = internal.Stage

	// HTTPError is an error that carries its response status.
	HTTPError = internal.HTTPError

	// Kind identifies a deployment model.
	Kind = internal.Kind
)

// Deployment models.
const (
	Threaded     = internal.Threaded
	MultiProcess = internal.MultiProcess
	Embedded     = internal.Embedded
	UnixSocket   = internal.UnixSocket
)
