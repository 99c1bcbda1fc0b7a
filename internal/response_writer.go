package internal

import (
	"bytes"
	"net/http"
)

// ResponseWriter buffers a handler's response so that a failing handler
// never leaves a partially written reply behind. The buffered response is
// sent once, when the dispatcher commits it.
type ResponseWriter struct {
	w       http.ResponseWriter
	header  http.Header
	body    bytes.Buffer
	status  int
	written bool
	sent    bool
}

// NewResponseWriter creates a new ResponseWriter around w.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		w:      w,
		header: make(http.Header),
		status: http.StatusOK,
	}
}

// Header returns the buffered header map.
func (w *ResponseWriter) Header() http.Header {
	return w.header
}

// WriteHeader records the status code. Only the first call has effect.
func (w *ResponseWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.written = true
	w.status = code
}

// Write appends b to the buffered body.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.body.Write(b)
}

// Status returns the HTTP status code of the response.
func (w *ResponseWriter) Status() int {
	return w.status
}

// Size returns the number of buffered body bytes.
func (w *ResponseWriter) Size() int {
	return w.body.Len()
}

// Written reports whether the handler produced any response.
func (w *ResponseWriter) Written() bool {
	return w.written
}

// Unwrap returns the original http.ResponseWriter.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.w
}

// reset discards everything the handler wrote.
func (w *ResponseWriter) reset() {
	w.header = make(http.Header)
	w.body.Reset()
	w.status = http.StatusOK
	w.written = false
}

// commit sends the buffered response to the client. Later calls are no-ops.
func (w *ResponseWriter) commit(method string) error {
	if w.sent {
		return nil
	}
	w.sent = true

	dst := w.w.Header()
	for k, v := range w.header {
		dst[k] = v
	}
	w.w.WriteHeader(w.status)
	if method == http.MethodHead || !bodyAllowed(w.status) {
		return nil
	}
	_, err := w.w.Write(w.body.Bytes())
	return err
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
