package core

import (
	"net/http"
)

// HeadersJson are set on every JSON API response.
var HeadersJson = map[string]string{
	"Content-Type": "application/json; charset=utf-8",

	// no MIME sniffing
	"X-Content-Type-Options": "nosniff",

	// Lookup answers change with every rebuild. no-store alone prevents
	// caching, the rest is for misbehaving intermediaries.
	"Cache-Control": "no-store, no-cache, must-revalidate",

	"X-Frame-Options":         "DENY",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

// HeadersExport are set on the plain text block list export.
var HeadersExport = map[string]string{
	"Content-Type":           "text/plain; charset=utf-8",
	"X-Content-Type-Options": "nosniff",
	// The export is tied to one snapshot; clients revalidate with the ETag.
	"Cache-Control": "no-cache",
}

// setHeaders applies one or more sets of headers to the response writer.
// Headers from later maps overwrite earlier ones.
func setHeaders(w http.ResponseWriter, headers ...map[string]string) {
	for _, headerMap := range headers {
		for key, value := range headerMap {
			w.Header().Set(key, value)
		}
	}
}
