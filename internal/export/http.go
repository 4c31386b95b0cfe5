package export

import (
	"context"
	"errors"
	"net/http"
)

// SetStreamHeaders sets the response headers of a streamed export.
func SetStreamHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("Transfer-Encoding", "chunked")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// HTTPWriter adapts an http.ResponseWriter to Writer. Headers and the 200
// status are sent on the first Write, so an export that fails before writing
// leaves the response untouched.
type HTTPWriter struct {
	w         http.ResponseWriter
	rc        *http.ResponseController
	committed bool
}

// NewHTTPWriter wraps w.
func NewHTTPWriter(w http.ResponseWriter) *HTTPWriter {
	return &HTTPWriter{w: w, rc: http.NewResponseController(w)}
}

func (h *HTTPWriter) commit() {
	if h.committed {
		return
	}
	h.committed = true
	SetStreamHeaders(h.w.Header())
	h.w.WriteHeader(http.StatusOK)
}

// Write sends p as part of the chunked body.
func (h *HTTPWriter) Write(p []byte) (int, error) {
	h.commit()
	return h.w.Write(p)
}

// Flush pushes buffered bytes to the client. Writers without flush support
// are tolerated.
func (h *HTTPWriter) Flush() error {
	h.commit()
	if err := h.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Committed reports whether headers have been sent.
func (h *HTTPWriter) Committed() bool {
	return h.committed
}

// ServeHTTP runs an export session against w using the request context, so
// a client disconnect cancels the query.
func ServeHTTP(ctx context.Context, w http.ResponseWriter, src Source, env Envelope, opts Options) (Result, error) {
	return Run(ctx, src, NewHTTPWriter(w), env, opts)
}
