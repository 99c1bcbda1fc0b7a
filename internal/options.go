package internal

import (
	"log/slog"
)

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithMiddleware adds route-level middleware applied to every handler.
// Middleware executes in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) {
		d.middlewares = append(d.middlewares, mw...)
	}
}

// WithHandlers registers handlers that declare routes.
func WithHandlers(h ...Handler) Option {
	return func(d *Dispatcher) {
		d.handlers = append(d.handlers, h...)
	}
}

// WithOrigins sets the sites allowed to embed the service.
func WithOrigins(hosts ...string) Option {
	return func(d *Dispatcher) {
		d.origins = NewOrigins(hosts)
	}
}

// WithHealthChecks enables liveness and readiness endpoints.
func WithHealthChecks(opts ...HealthOption) Option {
	return func(d *Dispatcher) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
			checks:        make(map[string]CheckFunc),
			timeout:       defaultHealthTimeout,
		}
		for _, opt := range opts {
			opt(cfg)
		}
		d.healthConfig = cfg
	}
}

// WithLogger sets the logger used for handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}
