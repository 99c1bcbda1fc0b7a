package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/isso/middlewares"
)

func TestStatic(t *testing.T) {
	t.Parallel()

	var passed int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		passed++
		w.WriteHeader(http.StatusTeapot)
	})
	h := middlewares.Static(os.DirFS("testdata/assets"))(next)

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := serve(http.MethodGet, "/js/embed.min.js")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `console.log("isso")`)

	rec = serve(http.MethodGet, "/css/isso.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	require.Equal(t, http.StatusNotFound, serve(http.MethodGet, "/js/missing.js").Code)
	require.Equal(t, http.StatusNotFound, serve(http.MethodGet, "/js/../css").Code)
	require.Zero(t, passed)

	require.Equal(t, http.StatusTeapot, serve(http.MethodGet, "/js/").Code)
	require.Equal(t, http.StatusTeapot, serve(http.MethodPost, "/js/embed.min.js").Code)
	require.Equal(t, http.StatusTeapot, serve(http.MethodGet, "/info").Code)
	require.Equal(t, 3, passed)
}
