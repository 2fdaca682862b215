package core

import (
	"errors"
	"net/http"

	"github.com/devilelephant/blacklist/addr"
	"github.com/devilelephant/blacklist/index"
	"github.com/devilelephant/blacklist/registry"
)

// LookupHandler answers whether an address is covered by the block list.
// Endpoint: GET {prefix}?ip=
// Authenticated: No
// Allowed Mimetype: application/json
//
// 200 listed, 404 not listed, both with the match as data. 400 for a
// missing or invalid ip, 503 before the first snapshot.
func (a *App) LookupHandler(w http.ResponseWriter, r *http.Request) {
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		a.observeLookup(LookupInvalid)
		writeJsonError(w, errorMissingIp)
		return
	}

	m, err := a.registry.Lookup(ip)
	a.observeLookup(LookupResult(m.Matched, err))
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrNoSnapshot):
			writeJsonError(w, errorNoSnapshot)
		case errors.Is(err, index.ErrAddressFamilyMismatch):
			writeJsonError(w, errorFamilyMismatch)
		case errors.Is(err, addr.ErrMalformedAddress):
			writeJsonError(w, errorMalformedAddress)
		default:
			a.logger.Error("Lookup failed", "ip", ip, "err", err)
			writeJsonError(w, errorMalformedAddress)
		}
		return
	}

	if m.Matched {
		writeJsonWithData(w, JsonWithData{
			JsonBasic: JsonBasic{Status: http.StatusOK, Code: CodeOkListed, Message: "Address is listed"},
			Data:      m,
		})
		return
	}
	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{Status: http.StatusNotFound, Code: CodeOkNotListed, Message: "Address is not listed"},
		Data:      m,
	})
}

func (a *App) observeLookup(result string) {
	if a.metrics != nil {
		a.metrics.ObserveLookup(result)
	}
}
