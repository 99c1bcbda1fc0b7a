package middlewares

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// ProxyFix trusts the forwarding headers set by a reverse proxy: the client
// address (X-Forwarded-For, X-Real-IP), scheme (X-Forwarded-Proto) and host
// (X-Forwarded-Host).
func ProxyFix(next http.Handler) http.Handler {
	return middleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proto := firstForwarded(r.Header.Get("X-Forwarded-Proto"))
		host := firstForwarded(r.Header.Get("X-Forwarded-Host"))
		if proto == "" && host == "" {
			next.ServeHTTP(w, r)
			return
		}

		r2 := r.Clone(r.Context())
		if proto == "http" || proto == "https" {
			r2.URL.Scheme = proto
		}
		if host != "" {
			r2.Host = host
		}
		next.ServeHTTP(w, r2)
	}))
}

func firstForwarded(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.ToLower(strings.TrimSpace(first))
}
