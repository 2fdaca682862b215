package core

import (
	"context"
	"errors"
	"net/http"

	"github.com/devilelephant/blacklist/index"
	"github.com/devilelephant/blacklist/registry"
)

// TriggerApi names rebuilds requested through the HTTP API.
const TriggerApi = "api"

// ReloadHandler starts a rebuild in the background.
// Endpoint: POST {prefix}/reload
// Authenticated: No
// Allowed Mimetype: application/json
//
// 202 when the rebuild started, 423 when one is already running.
func (a *App) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	src := a.Source()
	if src == nil {
		writeJsonError(w, errorReloadUnavailable)
		return
	}

	// The rebuild outlives the request.
	ctx := registry.WithTrigger(context.WithoutCancel(r.Context()), TriggerApi)
	err := a.registry.Start(ctx, src, func(s *index.Snapshot, err error) {
		if err != nil {
			a.logger.Warn("Reload requested through the api failed", "err", err)
		}
	})
	if errors.Is(err, registry.ErrBusy) {
		a.logger.Info("Reload rejected, a rebuild is running")
		a.RecordBusy(TriggerApi)
		writeJsonError(w, errorBusy)
		return
	}

	writeJsonOk(w, okReloadStarted)
}
