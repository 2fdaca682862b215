package prerouter

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/devilelephant/blacklist/core"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	requestsMetricName = "http_server_requests_total"
	requestsMetricHelp = "Total number of HTTP requests handled by the server, labeled by status code."
	durationMetricName = "http_server_request_duration_seconds"
	durationMetricHelp = "Duration of HTTP requests, labeled by status code."
)

// Metrics counts requests by status code. It reads the status from the
// core.ResponseRecorder installed by Recorder.
type Metrics struct {
	app             *core.App
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the request collectors on the App metrics registry.
// It panics if registration fails, which only happens when called twice
// for the same App.
func NewMetrics(app *core.App) *Metrics {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: requestsMetricName,
			Help: requestsMetricHelp,
		},
		[]string{"code"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    durationMetricName,
			Help:    durationMetricHelp,
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"code"},
	)

	reg := app.Metrics().Registry()
	if err := reg.Register(requests); err != nil {
		panic("metrics: failed to register requests_total counter vec: " + err.Error())
	}
	if err := reg.Register(duration); err != nil {
		panic("metrics: failed to register request duration histogram: " + err.Error())
	}

	return &Metrics{
		app:             app,
		requestsTotal:   requests,
		requestDuration: duration,
	}
}

func (m *Metrics) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.app.Config().Metrics.Activated {
			next.ServeHTTP(w, r)
			return
		}

		rec, ok := w.(*core.ResponseRecorder)
		if !ok {
			m.app.Logger().Error("metrics middleware: expected core.ResponseRecorder but got different type",
				"got", fmt.Sprintf("%T", w),
			)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.Status)
		m.requestsTotal.WithLabelValues(code).Inc()
		m.requestDuration.WithLabelValues(code).Observe(rec.Duration().Seconds())
	})
}
