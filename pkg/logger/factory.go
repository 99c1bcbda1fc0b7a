package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type options struct {
	output     io.Writer
	format     Format
	level      slog.Level
	extractors []ContextExtractor
}

// Option configures a logger built by New or NewWithSentry.
type Option func(*options)

// WithLevel sets the minimum level written to the output.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithFormat selects JSON or text output. Unknown formats fall back to JSON.
func WithFormat(format Format) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithOutput redirects log output. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithExtractors adds context extractors applied on every log call.
func WithExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, extractors...)
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		output: os.Stdout,
		format: FormatJSON,
		level:  slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) handler() slog.Handler {
	ho := &slog.HandlerOptions{Level: o.level}
	if o.format == FormatText {
		return slog.NewTextHandler(o.output, ho)
	}
	return slog.NewJSONHandler(o.output, ho)
}

// New creates a structured logger. JSON to stdout at info level by default.
func New(opts ...Option) *slog.Logger {
	o := buildOptions(opts)
	return slog.New(withContext(o.handler(), o.extractors))
}

// ParseLevel maps a config string to a slog level.
// Unknown values yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseFormat maps a config string to a Format.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatText)) {
		return FormatText
	}
	return FormatJSON
}
