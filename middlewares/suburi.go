package middlewares

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/isso/internal"
)

// ScriptNameHeader carries the prefix a reverse proxy mounts the service at.
const ScriptNameHeader = "X-Script-Name"

// SubURI lets the service run below a path prefix. The prefix announced by
// the proxy is removed from the request path and recorded for building
// public URLs.
func SubURI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := strings.TrimRight(r.Header.Get(ScriptNameHeader), "/")
		if prefix == "" || !strings.HasPrefix(prefix, "/") {
			next.ServeHTTP(w, r)
			return
		}

		r2 := r.WithContext(internal.WithScriptName(r.Context(), prefix))
		if p, ok := strings.CutPrefix(r.URL.Path, prefix); ok && (p == "" || p[0] == '/') {
			u := *r.URL
			u.Path = p
			if u.Path == "" {
				u.Path = "/"
			}
			u.RawPath = ""
			r2.URL = &u
		}
		next.ServeHTTP(w, r2)
	})
}
