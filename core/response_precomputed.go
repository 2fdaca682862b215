package core

import (
	"encoding/json"
	"net/http"
)

// Standard response codes
const (
	// oks
	CodeOkReloadStarted = "ok_reload_started"

	// errors
	CodeErrorMissingIp          = "err_missing_ip"
	CodeErrorMalformedAddress   = "err_malformed_address"
	CodeErrorFamilyMismatch     = "err_family_mismatch"
	CodeErrorNoSnapshot         = "err_no_snapshot"
	CodeErrorBusy               = "err_busy"
	CodeErrorReloadUnavailable  = "err_reload_unavailable"
	CodeErrorNotFound           = "err_not_found"
	CodeErrorMethodNotAllowed   = "err_method_not_allowed"
	CodeErrorIpBlocked          = "err_ip_blocked"
	CodeErrorJournalUnavailable = "err_journal_unavailable"
	CodeErrorInvalidLimit       = "err_invalid_limit"
)

// precomputeBasicResponse runs during package initialization and stores
// the fully encoded JSON body, so handlers write bytes instead of
// marshaling on every request.
func precomputeBasicResponse(status int, code, message string) jsonResponse {
	basic := JsonBasic{
		Status:  status,
		Code:    code,
		Message: message,
	}
	body, _ := json.Marshal(basic)
	return jsonResponse{status: status, body: body}
}

// Precomputed error and ok responses with status codes
var (
	// errors
	errorMissingIp          = precomputeBasicResponse(http.StatusBadRequest, CodeErrorMissingIp, "Query parameter ip is required")
	errorMalformedAddress   = precomputeBasicResponse(http.StatusBadRequest, CodeErrorMalformedAddress, "The ip parameter is not a valid IPv4 or IPv6 address")
	errorFamilyMismatch     = precomputeBasicResponse(http.StatusBadRequest, CodeErrorFamilyMismatch, "The address family of ip is not indexed")
	errorNoSnapshot         = precomputeBasicResponse(http.StatusServiceUnavailable, CodeErrorNoSnapshot, "No block list loaded yet")
	errorBusy               = precomputeBasicResponse(http.StatusLocked, CodeErrorBusy, "already currently loading")
	errorReloadUnavailable  = precomputeBasicResponse(http.StatusServiceUnavailable, CodeErrorReloadUnavailable, "No source configured for reloading")
	errorNotFound           = precomputeBasicResponse(http.StatusNotFound, CodeErrorNotFound, "Requested resource not found")
	errorMethodNotAllowed   = precomputeBasicResponse(http.StatusMethodNotAllowed, CodeErrorMethodNotAllowed, "Method not allowed for this resource")
	errorIpBlocked          = precomputeBasicResponse(http.StatusTooManyRequests, CodeErrorIpBlocked, "IP address has been blocked due to excessive requests. Please try again later")
	errorJournalUnavailable = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorJournalUnavailable, "Rebuild journal could not be read")
	errorInvalidLimit       = precomputeBasicResponse(http.StatusBadRequest, CodeErrorInvalidLimit, "limit must be a non negative integer")

	// oks
	okReloadStarted = precomputeBasicResponse(http.StatusAccepted, CodeOkReloadStarted, "Reload started")
)

// WriteErrorIpBlocked answers a throttled request. It is used by the
// prerouter middleware.
func WriteErrorIpBlocked(w http.ResponseWriter) {
	writeJsonError(w, errorIpBlocked)
}

// WriteErrorNotFound answers unknown routes.
func WriteErrorNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJsonError(w, errorNotFound)
}

// WriteErrorMethodNotAllowed answers known routes hit with the wrong method.
func WriteErrorMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeJsonError(w, errorMethodNotAllowed)
}

// For successful precomputed responses
func writeJsonOk(w http.ResponseWriter, resp jsonResponse) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.status)
	w.Write(resp.body)
}

// writeJsonError writes a precomputed JSON error response
func writeJsonError(w http.ResponseWriter, resp jsonResponse) {
	setHeaders(w, HeadersJson)
	w.WriteHeader(resp.status)
	w.Write(resp.body)
}
