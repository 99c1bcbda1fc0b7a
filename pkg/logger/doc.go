// Package logger builds the service's structured loggers on top of log/slog.
//
// Loggers write JSON (or text) to stdout by default, can enrich every record
// with values pulled from the request context, and optionally forward
// warnings and errors to Sentry.
//
//	requestID := func(ctx context.Context) (slog.Attr, bool) {
//		if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
//			return slog.String("request_id", id), true
//		}
//		return slog.Attr{}, false
//	}
//
//	log := logger.New(
//		logger.WithLevel(logger.ParseLevel("debug")),
//		logger.WithFormat(logger.FormatText),
//		logger.WithExtractors(requestID),
//	)
//
// NewWithSentry accepts the same options. With an empty DSN it behaves like
// New, so the same code path serves development and production.
//
// NewNope returns a logger that discards everything and is the default for
// components that were not given one.
package logger
