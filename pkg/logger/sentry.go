package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig enables error reporting to Sentry.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	// MinLevel is the lowest level kept as a Sentry log entry. Errors always
	// open an issue.
	MinLevel slog.Level
}

// NewWithSentry builds a logger like New that also reports to Sentry when a
// DSN is configured. If the SDK cannot start, the failure is logged and the
// plain logger is returned.
func NewWithSentry(cfg SentryConfig, opts ...Option) *slog.Logger {
	o := buildOptions(opts)
	out := o.handler()

	if cfg.DSN == "" {
		return slog.New(withContext(out, o.extractors))
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		EnableLogs:  true,
	})
	if err != nil {
		l := slog.New(withContext(out, o.extractors))
		l.Error("sentry disabled", Component("logger"), Error(err))
		return l
	}

	report := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   sentryLevels(cfg.MinLevel),
	}.NewSentryHandler(context.Background())

	return slog.New(withContext(fanout{out, report}, o.extractors))
}

func sentryLevels(lowest slog.Level) []slog.Level {
	var levels []slog.Level
	for _, l := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l >= lowest {
			levels = append(levels, l)
		}
	}
	return levels
}

// FlushSentry waits up to timeout for buffered Sentry events. It is a no-op
// when Sentry was never initialized.
func FlushSentry(timeout time.Duration) func(context.Context) error {
	return func(context.Context) error {
		sentry.Flush(timeout)
		return nil
	}
}
