package signer_test

import (
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/isso/pkg/signer"
)

const secret = "0123456789abcdef0123456789abcdef"

func newMockClock() *clock.Mock {
	mc := clock.NewMock()
	mc.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return mc
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("empty secret", func(t *testing.T) {
		t.Parallel()
		_, err := signer.New("")
		require.ErrorIs(t, err, signer.ErrEmptySecret)
	})

	t.Run("valid secret", func(t *testing.T) {
		t.Parallel()
		s, err := signer.New(secret)
		require.NoError(t, err)
		require.NotNil(t, s)
	})
}

func TestIssueVerify(t *testing.T) {
	t.Parallel()

	t.Run("roundtrip within max age", func(t *testing.T) {
		t.Parallel()

		mc := newMockClock()
		s, err := signer.New(secret, signer.WithClock(mc))
		require.NoError(t, err)

		token, err := s.Issue([]any{1, "abc"})
		require.NoError(t, err)

		mc.Add(14 * time.Minute)

		var payload []any
		require.NoError(t, s.Verify(token, 15*time.Minute, &payload))
		require.Equal(t, []any{float64(1), "abc"}, payload)
	})

	t.Run("sub-second issue time keeps the full max age", func(t *testing.T) {
		t.Parallel()

		mc := clock.NewMock()
		mc.Set(time.Date(2024, 5, 1, 12, 0, 0, 900*int(time.Millisecond), time.UTC))
		s, err := signer.New(secret, signer.WithClock(mc))
		require.NoError(t, err)

		token, err := s.Issue("payload")
		require.NoError(t, err)

		mc.Add(600 * time.Millisecond)
		require.NoError(t, s.Verify(token, time.Second, nil))

		mc.Add(time.Second)
		require.ErrorIs(t, s.Verify(token, time.Second, nil), signer.ErrExpired)
	})

	t.Run("struct payload", func(t *testing.T) {
		t.Parallel()

		type session struct {
			ID   int64  `json:"id"`
			Hash string `json:"hash"`
		}

		s, err := signer.New(secret)
		require.NoError(t, err)

		token, err := s.Issue(session{ID: 7, Hash: "h"})
		require.NoError(t, err)

		var got session
		require.NoError(t, s.Verify(token, time.Minute, &got))
		require.Equal(t, session{ID: 7, Hash: "h"}, got)
	})

	t.Run("expired after max age", func(t *testing.T) {
		t.Parallel()

		mc := newMockClock()
		s, err := signer.New(secret, signer.WithClock(mc))
		require.NoError(t, err)

		token, err := s.Issue("payload")
		require.NoError(t, err)

		mc.Add(15*time.Minute + time.Second)

		var payload string
		err = s.Verify(token, 15*time.Minute, &payload)
		require.ErrorIs(t, err, signer.ErrInvalidToken)
		require.ErrorIs(t, err, signer.ErrExpired)
	})

	t.Run("zero max age disables expiry", func(t *testing.T) {
		t.Parallel()

		mc := newMockClock()
		s, err := signer.New(secret, signer.WithClock(mc))
		require.NoError(t, err)

		token, err := s.Issue("payload")
		require.NoError(t, err)

		mc.Add(24 * 365 * time.Hour)
		require.NoError(t, s.Verify(token, 0, nil))
	})

	t.Run("different key rejects", func(t *testing.T) {
		t.Parallel()

		s1, err := signer.New(secret)
		require.NoError(t, err)
		s2, err := signer.New("another-secret-another-secret-00")
		require.NoError(t, err)

		for _, payload := range []any{"x", 1, []any{1, "h"}, map[string]any{"a": true}} {
			token, err := s1.Issue(payload)
			require.NoError(t, err)

			err = s2.Verify(token, time.Hour, nil)
			require.ErrorIs(t, err, signer.ErrInvalidToken)
		}
	})

	t.Run("different salt rejects", func(t *testing.T) {
		t.Parallel()

		s1, err := signer.New(secret)
		require.NoError(t, err)
		s2, err := signer.New(secret, signer.WithSalt("other"))
		require.NoError(t, err)

		token, err := s1.Issue("x")
		require.NoError(t, err)
		require.ErrorIs(t, s2.Verify(token, time.Hour, nil), signer.ErrInvalidToken)
	})

	t.Run("tampered token rejects", func(t *testing.T) {
		t.Parallel()

		s, err := signer.New(secret)
		require.NoError(t, err)

		token, err := s.Issue("x")
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		parts[1] = parts[1] + "AA"

		require.ErrorIs(t, s.Verify(strings.Join(parts, "."), time.Hour, nil), signer.ErrInvalidToken)
	})

	t.Run("garbage rejects", func(t *testing.T) {
		t.Parallel()

		s, err := signer.New(secret)
		require.NoError(t, err)

		require.ErrorIs(t, s.Verify("", time.Hour, nil), signer.ErrInvalidToken)
		require.ErrorIs(t, s.Verify("not-a-token", time.Hour, nil), signer.ErrInvalidToken)
	})

	t.Run("equal payloads issue distinct tokens", func(t *testing.T) {
		t.Parallel()

		mc := newMockClock()
		s, err := signer.New(secret, signer.WithClock(mc))
		require.NoError(t, err)

		a, err := s.Issue([]any{1, "h"})
		require.NoError(t, err)
		b, err := s.Issue([]any{1, "h"})
		require.NoError(t, err)
		mc.Add(time.Second)
		c, err := s.Issue([]any{1, "h"})
		require.NoError(t, err)

		require.NotEqual(t, a, b)
		require.NotEqual(t, b, c)
	})
}
