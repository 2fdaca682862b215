package blacklist

import (
	"net/http"

	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/core"
)

func route(cfg *config.Config, ap *core.App) {
	prefix := cfg.Api.Prefix

	ap.Router().HandleFunc(http.MethodGet+" "+prefix, ap.LookupHandler)
	ap.Router().HandleFunc(http.MethodPost+" "+prefix+"/reload", ap.ReloadHandler)
	ap.Router().HandleFunc(http.MethodGet+" "+prefix+"/status", ap.StatusHandler)
	ap.Router().HandleFunc(http.MethodGet+" "+prefix+"/export", ap.ExportHandler)
	ap.Router().HandleFunc(http.MethodHead+" "+prefix+"/export", ap.ExportHandler)

	if cfg.Metrics.Activated {
		ap.Router().HandleFunc(http.MethodGet+" "+cfg.Metrics.Path, ap.MetricsHandler)
	}
}
