package logger

import "log/slog"

// NewNope returns a logger that drops every record.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
