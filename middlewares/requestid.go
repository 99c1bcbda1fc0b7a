package middlewares

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/isso/internal"
	"github.com/dmitrymomot/isso/pkg/logger"
)

// RequestIDHeader is echoed on every response.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds IDs accepted from upstream proxies.
const maxRequestIDLen = 128

type requestIDKey struct{}

type requestIDOptions struct {
	generate func() string
	trusted  []string
}

// RequestIDOption configures RequestID.
type RequestIDOption func(*requestIDOptions)

// WithRequestIDHeaders lists the inbound headers, in order, whose value is
// reused as the request ID. An empty list always generates a fresh ID.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(o *requestIDOptions) {
		o.trusted = headers
	}
}

// WithRequestIDGenerator replaces the uuid generator.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(o *requestIDOptions) {
		if gen != nil {
			o.generate = gen
		}
	}
}

// RequestID tags each request with an ID for log correlation. An ID set by
// a proxy in X-Request-ID or X-Correlation-ID is kept when it is short and
// printable; otherwise a new one is generated.
func RequestID(opts ...RequestIDOption) internal.Middleware {
	o := &requestIDOptions{
		generate: uuid.NewString,
		trusted:  []string{RequestIDHeader, "X-Correlation-ID"},
	}
	for _, opt := range opts {
		opt(o)
	}

	return func(next internal.HandlerFunc) internal.HandlerFunc {
		return func(c internal.Context) error {
			id := o.inbound(c)
			if id == "" {
				id = o.generate()
			}
			c.Set(requestIDKey{}, id)
			c.SetHeader(RequestIDHeader, id)
			return next(c)
		}
	}
}

func (o *requestIDOptions) inbound(c internal.Context) string {
	for _, h := range o.trusted {
		if v := c.Header(h); v != "" && validRequestID(v) {
			return v
		}
	}
	return ""
}

func validRequestID(id string) bool {
	if len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetRequestID returns the ID assigned by RequestID, or "".
func GetRequestID(c internal.Context) string {
	id, _ := c.Get(requestIDKey{}).(string)
	return id
}

// RequestIDExtractor adds request_id to records logged with a request context.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := ctx.Value(requestIDKey{}).(string)
		if !ok || id == "" {
			return slog.Attr{}, false
		}
		return slog.String("request_id", id), true
	}
}
