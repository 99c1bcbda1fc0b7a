package logger

import "log/slog"

// Error returns the conventional attribute for an error value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Component tags records with the subsystem that produced them.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
