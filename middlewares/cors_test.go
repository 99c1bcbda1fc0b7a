package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/isso/internal"
	"github.com/dmitrymomot/isso/middlewares"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	origins := internal.NewOrigins([]string{"http://example.com"})
	h := middlewares.CORS(
		middlewares.WithAllowOriginFunc(origins.Allowed),
		middlewares.WithAllowCredentials(),
	)(okHandler())

	t.Run("permitted origin gets headers", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/?uri=/post", nil)
		req.Header.Set("Origin", "http://example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "http://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		require.Equal(t, "X-Set-Cookie, Date", rec.Header().Get("Access-Control-Expose-Headers"))
		require.Equal(t, "HEAD, GET, POST, PUT, DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
		require.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("other origin gets nothing", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("no origin header", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight is answered here", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodOptions, "/new", nil)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "Origin, Referer, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
		require.Equal(t, "43200", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("preflight from other origin falls through", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodOptions, "/new", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
	})
}

func TestCORSStaticOrigins(t *testing.T) {
	t.Parallel()

	h := middlewares.CORS(
		middlewares.WithAllowOrigins("http://allowed.com"),
		middlewares.WithAllowMethods(http.MethodGet),
		middlewares.WithAllowHeaders("Content-Type"),
		middlewares.WithExposeHeaders(),
		middlewares.WithMaxAge(time.Minute),
	)(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://allowed.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "GET", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "60", rec.Header().Get("Access-Control-Max-Age"))
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	require.Empty(t, rec.Header().Get("Access-Control-Expose-Headers"))
}
