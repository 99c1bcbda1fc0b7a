package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/isso/internal/config"
)

const sample = `
general:
  dbpath: postgres://isso@localhost/isso
  host:
    - https://example.com/
    - http://example.com/
  max-age: 1h
  Notify: smtp
server:
  listen: unix:///run/isso.sock
  profile: on
  workers: "8"
moderation:
  purge-after: 3d
custom:
  flag: yes
`

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	require.Equal(t, "postgres://isso@localhost/isso", cfg.String("general", "dbpath"))
	require.Equal(t, []string{"https://example.com/", "http://example.com/"}, cfg.List("general", "host"))
	require.Equal(t, time.Hour, cfg.Duration("general", "max-age"))
	require.Equal(t, "smtp", cfg.String("general", "notify"))
	require.Equal(t, "unix:///run/isso.sock", cfg.String("server", "listen"))
	require.True(t, cfg.Bool("server", "profile"))
	require.Equal(t, 8, cfg.Int("server", "workers"))
	require.Equal(t, 72*time.Hour, cfg.Duration("moderation", "purge-after"))
	require.True(t, cfg.Bool("custom", "flag"))

	t.Run("defaults survive partial sections", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "goroutines", cfg.String("server", "execution"))
		require.Equal(t, 30*time.Second, cfg.Duration("server", "shutdown-timeout"))
		require.NotEmpty(t, cfg.String("general", "session-key"))
	})
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte("general: [unterminated"))
	require.ErrorIs(t, err, config.ErrParseConfig)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		require.Equal(t, "http://localhost:8080", cfg.String("server", "listen"))
	})

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "isso.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

		cfg, err := config.Load(path)
		require.NoError(t, err)
		require.Equal(t, "smtp", cfg.String("general", "notify"))
	})
}

func TestWith(t *testing.T) {
	t.Parallel()

	base := config.Default()
	require.True(t, base.Bool("guard", "enabled"))

	changed := base.With("guard", "enabled", "off")
	require.False(t, changed.Bool("guard", "enabled"))
	require.True(t, base.Bool("guard", "enabled"), "original must not change")

	added := base.With("extra", "key", 3)
	require.True(t, added.Has("extra", "key"))
	require.False(t, base.Has("extra", "key"))
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	cfg := config.Default().
		With("t", "csv", "a, b,,c\nd").
		With("t", "secs", 90).
		With("t", "weeks", "2w").
		With("t", "bad", "soon").
		With("t", "num", 2.0)

	require.Equal(t, []string{"a", "b", "c", "d"}, cfg.List("t", "csv"))
	require.Equal(t, 90*time.Second, cfg.Duration("t", "secs"))
	require.Equal(t, 14*24*time.Hour, cfg.Duration("t", "weeks"))
	require.Zero(t, cfg.Duration("t", "bad"))
	require.Equal(t, 2, cfg.Int("t", "num"))
	require.Empty(t, cfg.String("t", "missing"))
	require.False(t, cfg.Bool("t", "missing"))
	require.Nil(t, cfg.List("t", "missing"))
}
