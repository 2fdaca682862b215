package core

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves Prometheus metrics in the standard format
// Endpoint: GET /metrics
// Authenticated: No
// Allowed Mimetype: text/plain
func (a *App) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if !a.Config().Metrics.Activated || a.metrics == nil {
		writeJsonError(w, errorNotFound)
		return
	}

	h := promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{
		ErrorLog: slogAdapter{a},
	})
	h.ServeHTTP(w, r)
}

// slogAdapter lets promhttp report encoding errors through the App logger.
type slogAdapter struct{ a *App }

func (s slogAdapter) Println(v ...any) {
	s.a.logger.Error("Metrics handler error", "err", v)
}
