package core

import (
	"net/http"
	"time"
)

// ResponseRecorder wraps the ResponseWriter of a request so middleware
// running after the handler can read what was written.
type ResponseRecorder struct {
	http.ResponseWriter
	Status       int       // HTTP status code
	WroteHeader  bool      // Flag to track if headers were written
	BytesWritten int64     // Total bytes written to response
	StartTime    time.Time // When the request started
}

// WriteHeader captures the status code and marks headers as written
func (r *ResponseRecorder) WriteHeader(status int) {
	if !r.WroteHeader {
		r.Status = status
		r.WroteHeader = true
		r.ResponseWriter.WriteHeader(status)
	}
}

// Write captures bytes written and ensures headers are written first
func (r *ResponseRecorder) Write(b []byte) (int, error) {
	if !r.WroteHeader {
		r.WriteHeader(http.StatusOK)
	}

	n, err := r.ResponseWriter.Write(b)
	r.BytesWritten += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *ResponseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Duration returns the time elapsed since the request started
func (r *ResponseRecorder) Duration() time.Duration {
	return time.Since(r.StartTime)
}
