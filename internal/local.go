package internal

import (
	"context"
	"net/http"
	"sync"
)

type localKey struct{}

type scriptNameKey struct{}

// Local holds the state of the request currently being served: the request
// itself, the resolved service host and the permitted origin. One Local is
// scoped to one request by the LocalContext stage and cleared when the
// request completes.
type Local struct {
	request *http.Request
	host    string
	origin  string
	route   string
	mu      sync.RWMutex
}

// LocalContext is the innermost stage of the chain, wrapping the dispatcher
// directly. It attaches an empty Local to every request and resets it once
// the response is done.
func LocalContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := &Local{}
		defer l.reset()
		next.ServeHTTP(w, r.WithContext(withLocal(r.Context(), l)))
	})
}

// LocalFrom returns the Local attached to ctx, or nil.
func LocalFrom(ctx context.Context) *Local {
	l, _ := ctx.Value(localKey{}).(*Local)
	return l
}

func withLocal(ctx context.Context, l *Local) context.Context {
	return context.WithValue(ctx, localKey{}, l)
}

// Request returns the request bound to this Local, or nil once reset.
func (l *Local) Request() *http.Request {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.request
}

// Host returns the externally visible base URL of the service.
func (l *Local) Host() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.host
}

// Origin returns the configured origin the request came from.
func (l *Local) Origin() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.origin
}

// Route returns the pattern of the route the request was bound to.
// It is empty until binding succeeds.
func (l *Local) Route() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.route
}

func (l *Local) setRoute(pattern string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.route = pattern
}

func (l *Local) set(r *http.Request, host, origin string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.request = r
	l.host = host
	l.origin = origin
	l.route = ""
}

func (l *Local) reset() {
	l.set(nil, "", "")
}

// WithScriptName records the mount prefix the service is served under.
func WithScriptName(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, scriptNameKey{}, prefix)
}

// ScriptName returns the mount prefix recorded by WithScriptName.
func ScriptName(ctx context.Context) string {
	s, _ := ctx.Value(scriptNameKey{}).(string)
	return s
}

// resolveHost builds the public base URL of the service for r.
func resolveHost(r *http.Request) string {
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	return scheme + "://" + r.Host + ScriptName(r.Context())
}
