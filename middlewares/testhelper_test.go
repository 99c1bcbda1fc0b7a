package middlewares_test

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/isso/internal"
)

type testContext struct {
	response http.ResponseWriter
	request  *http.Request
	params   map[string]string
	values   map[any]any
}

var _ internal.Context = (*testContext)(nil)

func newTestContext(w http.ResponseWriter, r *http.Request) *testContext {
	return &testContext{
		response: w,
		request:  r,
		params:   make(map[string]string),
		values:   make(map[any]any),
	}
}

func (c *testContext) withParam(name, value string) *testContext {
	c.params[name] = value
	return c
}

func (c *testContext) Request() *http.Request        { return c.request }
func (c *testContext) Response() http.ResponseWriter { return c.response }
func (c *testContext) Param(name string) string      { return c.params[name] }
func (c *testContext) Query(name string) string      { return c.request.URL.Query().Get(name) }
func (c *testContext) Header(name string) string     { return c.request.Header.Get(name) }
func (c *testContext) SetHeader(name, value string)  { c.response.Header().Set(name, value) }
func (c *testContext) Host() string                  { return "http://" + c.request.Host }
func (c *testContext) Origin() string                { return c.request.Header.Get("Origin") }
func (c *testContext) RemoteAddr() string            { return c.request.RemoteAddr }
func (c *testContext) BindJSON(v any) error          { return nil }
func (c *testContext) JSON(code int, v any) error    { c.response.WriteHeader(code); return nil }
func (c *testContext) String(code int, s string) error {
	c.response.WriteHeader(code)
	_, err := c.response.Write([]byte(s))
	return err
}
func (c *testContext) NoContent(code int) error          { c.response.WriteHeader(code); return nil }
func (c *testContext) SetCookie(cookie *http.Cookie)     { http.SetCookie(c.response, cookie) }
func (c *testContext) Written() bool                     { return false }
func (c *testContext) Logger() *slog.Logger              { return slog.Default() }
func (c *testContext) LogDebug(msg string, attrs ...any) {}
func (c *testContext) LogInfo(msg string, attrs ...any)  {}
func (c *testContext) LogWarn(msg string, attrs ...any)  {}
func (c *testContext) LogError(msg string, attrs ...any) {}

func (c *testContext) Cookie(name string) (string, error) {
	cookie, err := c.request.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

func (c *testContext) Set(key, value any) {
	c.values[key] = value
	// Also store in request context for context extractors
	c.request = c.request.WithContext(context.WithValue(c.request.Context(), key, value))
}

func (c *testContext) Get(key any) any             { return c.values[key] }
func (c *testContext) Deadline() (time.Time, bool) { return c.request.Context().Deadline() }
func (c *testContext) Done() <-chan struct{}       { return c.request.Context().Done() }
func (c *testContext) Err() error                  { return c.request.Context().Err() }
func (c *testContext) Value(key any) any           { return c.request.Context().Value(key) }
