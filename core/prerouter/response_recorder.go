// Package prerouter holds the middleware that runs before routing: every
// request goes through it, whatever the endpoint.
package prerouter

import (
	"net/http"
	"time"

	"github.com/devilelephant/blacklist/core"
)

type Recorder struct {
	app *core.App
}

func NewRecorder(app *core.App) *Recorder {
	return &Recorder{
		app: app,
	}
}

// Execute wraps the writer in a core.ResponseRecorder shared by the rest
// of the chain. It must be the outermost middleware.
func (rc *Recorder) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &core.ResponseRecorder{
			ResponseWriter: w,
			Status:         http.StatusOK, // implicit 200 when the handler only writes a body
			StartTime:      time.Now(),
		}
		next.ServeHTTP(recorder, r)
	})
}
