package internal

import (
	"fmt"
	"net/http"
)

// SecurityHeaders selects the headers ApplySecurityHeaders sets.
type SecurityHeaders struct {
	ContentTypeOptions    bool
	FrameOptions          bool
	ReferrerPolicy        bool
	StrictTransportSec    bool
	HSTSMaxAge            int
	ContentSecurityPolicy string
}

// ApplySecurityHeaders sets the selected headers on w.
func ApplySecurityHeaders(w http.ResponseWriter, h SecurityHeaders) {
	hdr := w.Header()
	if h.ContentTypeOptions {
		hdr.Set("X-Content-Type-Options", "nosniff")
	}
	if h.FrameOptions {
		hdr.Set("X-Frame-Options", "DENY")
	}
	if h.ReferrerPolicy {
		hdr.Set("Referrer-Policy", "same-origin")
	}
	if h.StrictTransportSec {
		hdr.Set("Strict-Transport-Security", fmt.Sprintf("max-age=%d; includeSubDomains", h.HSTSMaxAge))
	}
	if h.ContentSecurityPolicy != "" {
		hdr.Set("Content-Security-Policy", h.ContentSecurityPolicy)
	}
}

// StatusRecorder remembers the status and size written through it.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
	Bytes  int
}

// NewStatusRecorder wraps w; Status defaults to 200.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader records status.
func (r *StatusRecorder) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

// Write counts bytes.
func (r *StatusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.Bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
