package core

import (
	"net/http"
	"strconv"
)

// ExportHandler serves the normalized block list of the serving snapshot.
// Endpoint: GET {prefix}/export
// Authenticated: No
// Allowed Mimetype: text/plain
//
// The snapshot ID is the ETag.
func (a *App) ExportHandler(w http.ResponseWriter, r *http.Request) {
	s := a.registry.Current()
	if s == nil {
		writeJsonError(w, errorNoSnapshot)
		return
	}

	etag := strconv.Quote(s.ID)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	setHeaders(w, HeadersExport)
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := s.WriteTo(w); err != nil {
		a.logger.Warn("Export interrupted", "snapshot", s.ID, "err", err)
	}
}
