package prerouter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devilelephant/blacklist/core"
)

func TestRecorderMiddleware(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		handler    func(w http.ResponseWriter)
		wantStatus int
		wantBytes  int64
	}{
		{
			name:       "explicit status",
			handler:    func(w http.ResponseWriter) { w.WriteHeader(http.StatusAccepted) },
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "implicit 200 on write",
			handler:    func(w http.ResponseWriter) { w.Write([]byte("10.0.0.0/8\n")) },
			wantStatus: http.StatusOK,
			wantBytes:  11,
		},
		{
			name: "second WriteHeader ignored",
			handler: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusLocked)
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusLocked,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var recorder *core.ResponseRecorder
			finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var ok bool
				recorder, ok = w.(*core.ResponseRecorder)
				if !ok {
					t.Fatalf("Expected http.ResponseWriter to be a *core.ResponseRecorder, but it was not")
				}
				if recorder.StartTime.IsZero() || time.Since(recorder.StartTime) > time.Second {
					t.Errorf("StartTime not initialized to now: %v", recorder.StartTime)
				}
				tc.handler(w)
			})

			rr := httptest.NewRecorder()
			NewRecorder(&core.App{}).Execute(finalHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

			if rr.Code != tc.wantStatus {
				t.Errorf("final status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if recorder.Status != tc.wantStatus {
				t.Errorf("recorded status = %d, want %d", recorder.Status, tc.wantStatus)
			}
			if recorder.BytesWritten != tc.wantBytes {
				t.Errorf("BytesWritten = %d, want %d", recorder.BytesWritten, tc.wantBytes)
			}
		})
	}
}
