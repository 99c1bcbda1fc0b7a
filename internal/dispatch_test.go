package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/isso/internal"
	"github.com/dmitrymomot/isso/pkg/logger"
)

type routes func(r internal.Router)

func (fn routes) Routes(r internal.Router) { fn(r) }

func newDispatcher(t *testing.T, fn routes, opts ...internal.Option) (*internal.Dispatcher, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]internal.Option{
		internal.WithLogger(logger.New(logger.WithOutput(&buf))),
		internal.WithHandlers(fn),
	}, opts...)
	return internal.NewDispatcher(opts...), &buf
}

func TestDispatcherBind(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, func(r internal.Router) {
		r.GET("/id/{id}", func(c internal.Context) error { return nil })
		r.PUT("/id/{id}", func(c internal.Context) error { return nil })
		r.Route("/api", func(r internal.Router) {
			r.GET("/", func(c internal.Context) error { return nil })
			r.POST("/count", func(c internal.Context) error { return nil })
		})
	})

	t.Run("found with params", func(t *testing.T) {
		t.Parallel()
		m := d.Bind(httptest.NewRequest(http.MethodGet, "/id/42", nil))
		require.Equal(t, internal.MatchFound, m.Status)
		require.Equal(t, "/id/{id}", m.Pattern)
		require.Equal(t, "42", m.Params["id"])
		require.NotNil(t, m.Handler)
	})

	t.Run("head falls back to get", func(t *testing.T) {
		t.Parallel()
		m := d.Bind(httptest.NewRequest(http.MethodHead, "/id/42", nil))
		require.Equal(t, internal.MatchFound, m.Status)
	})

	t.Run("method not allowed lists methods", func(t *testing.T) {
		t.Parallel()
		m := d.Bind(httptest.NewRequest(http.MethodPost, "/id/42", nil))
		require.Equal(t, internal.MatchMethodNotAllowed, m.Status)
		require.ElementsMatch(t, []string{"GET", "HEAD", "PUT"}, m.Allowed)
		require.Nil(t, m.Handler)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		m := d.Bind(httptest.NewRequest(http.MethodGet, "/nope", nil))
		require.Equal(t, internal.MatchNotFound, m.Status)
		require.Equal(t, "not_found", m.Status.String())
	})

	t.Run("route prefix", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, internal.MatchFound, d.Bind(httptest.NewRequest(http.MethodGet, "/api", nil)).Status)
		m := d.Bind(httptest.NewRequest(http.MethodPost, "/api/count", nil))
		require.Equal(t, internal.MatchFound, m.Status)
		require.Equal(t, "/api/count", m.Pattern)
	})
}

func TestDispatcherRoutingFailures(t *testing.T) {
	t.Parallel()

	d, logs := newDispatcher(t, func(r internal.Router) {
		r.GET("/info", func(c internal.Context) error {
			return c.String(http.StatusOK, "ok")
		})
	})

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"Not Found"}`, w.Body.String())

	w = httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/info", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, "GET, HEAD", w.Header().Get("Allow"))
	require.JSONEq(t, `{"error":"Method Not Allowed"}`, w.Body.String())

	require.Zero(t, d.Invocations())
	require.Zero(t, logs.Len())
}

func TestDispatcherHandlerSignaledError(t *testing.T) {
	t.Parallel()

	d, logs := newDispatcher(t, func(r internal.Router) {
		r.PUT("/id/{id}", func(c internal.Context) error {
			c.SetHeader("X-Set-Cookie", "1=token")
			_, _ = c.Response().Write([]byte("partial"))
			return internal.ErrForbidden("not your comment")
		})
	})

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/id/1", nil))

	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"error":"not your comment"}`, w.Body.String())
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	require.Empty(t, w.Header().Get("X-Set-Cookie"))
	require.Zero(t, logs.Len())
	require.EqualValues(t, 1, d.Invocations())
}

func TestDispatcherUnexpectedFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		handler internal.HandlerFunc
		name    string
	}{
		{
			name: "error",
			handler: func(c internal.Context) error {
				_, _ = c.Response().Write([]byte("partial"))
				return errors.New("dial tcp: password=hunter2")
			},
		},
		{
			name: "panic",
			handler: func(c internal.Context) error {
				_, _ = c.Response().Write([]byte("partial"))
				panic("password=hunter2")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, logs := newDispatcher(t, func(r internal.Router) {
				r.POST("/new", tt.handler)
			})

			w := httptest.NewRecorder()
			d.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/new?uri=/post", nil))

			require.Equal(t, http.StatusInternalServerError, w.Code)
			require.JSONEq(t, `{"error":"Internal Server Error"}`, w.Body.String())
			require.NotContains(t, w.Body.String(), "hunter2")

			lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
			require.Len(t, lines, 1)

			var rec map[string]any
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
			require.Equal(t, "ERROR", rec["level"])
			require.Equal(t, "POST", rec["method"])
			require.Equal(t, "/new", rec["path"])
			require.Contains(t, rec["error"], "hunter2")
		})
	}
}

func TestDispatcherMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) internal.Middleware {
		return func(next internal.HandlerFunc) internal.HandlerFunc {
			return func(c internal.Context) error {
				order = append(order, name)
				return next(c)
			}
		}
	}

	d, _ := newDispatcher(t, func(r internal.Router) {
		r.Group(func(r internal.Router) {
			r.Use(mark("group"))
			r.GET("/x", func(c internal.Context) error {
				order = append(order, "handler")
				return c.NoContent(http.StatusNoContent)
			}, mark("route"))
		})
	}, internal.WithMiddleware(mark("global")))

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, []string{"global", "group", "route", "handler"}, order)
}

func TestDispatcherRequestLocal(t *testing.T) {
	t.Parallel()

	var captured *internal.Local
	d, _ := newDispatcher(t, func(r internal.Router) {
		r.GET("/info", func(c internal.Context) error {
			captured = internal.LocalFrom(c)
			require.Equal(t, "/info", captured.Request().URL.Path)
			return c.JSON(http.StatusOK, map[string]string{
				"host":   c.Host(),
				"origin": c.Origin(),
				"route":  captured.Route(),
			})
		})
	}, internal.WithOrigins("https://blog.example.com", "http://example.com"))

	h := internal.Chain(d, internal.LocalContext)

	req := httptest.NewRequest(http.MethodGet, "http://comments.example.com/info", nil)
	req.Header.Set("Origin", "http://example.com")
	req = req.WithContext(internal.WithScriptName(req.Context(), "/isso"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "http://comments.example.com/isso", body["host"])
	require.Equal(t, "http://example.com", body["origin"])
	require.Equal(t, "/info", body["route"])

	require.NotNil(t, captured)
	require.Nil(t, captured.Request())
	require.Empty(t, captured.Host())
}

func TestDispatcherConcurrentRequestsAreIsolated(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, func(r internal.Router) {
		r.GET("/host", func(c internal.Context) error {
			return c.String(http.StatusOK, c.Host())
		})
	})
	h := internal.Chain(d, internal.LocalContext)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			host := fmt.Sprintf("site%d.example", i)
			req := httptest.NewRequest(http.MethodGet, "/host", nil)
			req.Host = host
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, "http://"+host, w.Body.String())
		}()
	}
	wg.Wait()
}

func TestDispatcherHealthChecks(t *testing.T) {
	t.Parallel()

	d, _ := newDispatcher(t, func(r internal.Router) {},
		internal.WithHealthChecks(
			internal.WithReadinessCheck("db", func(ctx context.Context) error {
				return errors.New("down")
			}),
		),
	)

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy"}`, w.Body.String())

	w = httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.JSONEq(t, `{"status":"unhealthy","checks":{"db":{"status":"unhealthy","error":"down"}}}`, w.Body.String())
}
