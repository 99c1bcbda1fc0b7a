package isso

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/isso/internal/storage"
)

// Option configures the application.
type Option func(*App)

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithStore uses s instead of opening general.dbpath. The App closes it on
// shutdown.
func WithStore(s storage.Store) Option {
	return func(a *App) {
		if s != nil {
			a.store = s
		}
	}
}

// WithAssets serves /js/ and /css/ from fsys instead of server.assets.
func WithAssets(fsys fs.FS) Option {
	return func(a *App) {
		if fsys != nil {
			a.assets = fsys
		}
	}
}

// WithHTTPClient sets the client used to probe the configured hosts.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		if c != nil {
			a.client = c
		}
	}
}

// WithShutdownHook registers a cleanup function run after the server stops.
func WithShutdownHook(fn func(ctx context.Context) error) Option {
	return func(a *App) {
		if fn != nil {
			a.shutdownHooks = append(a.shutdownHooks, fn)
		}
	}
}
