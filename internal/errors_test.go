package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/isso/internal"
)

func TestIsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("direct HTTPError", func(t *testing.T) {
		t.Parallel()
		err := internal.NewHTTPError(http.StatusNotFound, "not found")
		require.True(t, internal.IsHTTPError(err))
	})

	t.Run("double-wrapped HTTPError", func(t *testing.T) {
		t.Parallel()
		httpErr := internal.ErrForbidden("forbidden")
		err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", httpErr))
		require.True(t, internal.IsHTTPError(err))
	})

	t.Run("unrelated error", func(t *testing.T) {
		t.Parallel()
		require.False(t, internal.IsHTTPError(errors.New("something went wrong")))
	})

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		require.False(t, internal.IsHTTPError(nil))
	})
}

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("wrapped HTTPError preserves fields", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("row missing")
		err := fmt.Errorf("view: %w", internal.ErrNotFound("no such comment", internal.WithError(cause)))

		got := internal.AsHTTPError(err)
		require.NotNil(t, got)
		require.Equal(t, http.StatusNotFound, got.Code)
		require.Equal(t, "no such comment", got.Message)
		require.ErrorIs(t, got, cause)
	})

	t.Run("empty message defaults to status text", func(t *testing.T) {
		t.Parallel()
		got := internal.NewHTTPError(http.StatusMethodNotAllowed, "")
		require.Equal(t, "Method Not Allowed", got.Message)
		require.Equal(t, http.StatusMethodNotAllowed, got.StatusCode())
	})

	t.Run("unrelated error returns nil", func(t *testing.T) {
		t.Parallel()
		require.Nil(t, internal.AsHTTPError(errors.New("plain error")))
	})
}

func TestAsPanicError(t *testing.T) {
	t.Parallel()

	pe := &internal.PanicError{Value: "kaboom", Stack: []byte("goroutine 1")}
	require.Equal(t, "panic: kaboom", pe.Error())

	got, ok := internal.AsPanicError(fmt.Errorf("handler: %w", pe))
	require.True(t, ok)
	require.Same(t, pe, got)

	_, ok = internal.AsPanicError(errors.New("plain"))
	require.False(t, ok)
}
