package prerouter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/core"
)

// lastRecord decodes the single JSON record written to b.
func lastRecord(t *testing.T, b *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &record); err != nil {
		t.Fatalf("Failed to parse log output %q: %v", b.String(), err)
	}
	return record
}

func newLogApp(requests bool, proxyHeader string) (*core.App, *bytes.Buffer) {
	app := &core.App{}
	logBuffer := new(bytes.Buffer)
	app.SetLogger(slog.New(slog.NewJSONHandler(logBuffer, nil)))
	cfg := config.NewDefaultConfig()
	cfg.Log.Requests = requests
	cfg.Server.ClientIpProxyHeader = proxyHeader
	app.SetConfigProvider(config.NewProvider(cfg))
	return app, logBuffer
}

func TestRequestLog_SuccessfulRequest(t *testing.T) {
	t.Parallel()

	app, logBuffer := newLogApp(true, "")
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not listed"))
	})
	handlerChain := NewRecorder(app).Execute(NewRequestLog(app).Execute(finalHandler))

	req := httptest.NewRequest("GET", "/blacklist/api?ip=192.0.2.9", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	handlerChain.ServeHTTP(httptest.NewRecorder(), req)

	logRecord := lastRecord(t, logBuffer)
	if logRecord["msg"] != "http_request" {
		t.Errorf("Expected log message 'http_request', got '%v'", logRecord["msg"])
	}
	if status, _ := logRecord["status"].(float64); status != http.StatusNotFound {
		t.Errorf("Expected status %d, got %v", http.StatusNotFound, logRecord["status"])
	}
	if n, _ := logRecord["bytes"].(float64); n != float64(len("not listed")) {
		t.Errorf("Expected bytes %d, got %v", len("not listed"), logRecord["bytes"])
	}
	if ip, _ := logRecord["remote_ip"].(string); ip != "192.0.2.1" {
		t.Errorf("Expected remote_ip '192.0.2.1', got '%v'", logRecord["remote_ip"])
	}
	if uri, _ := logRecord["uri"].(string); uri != "/blacklist/api?ip=192.0.2.9" {
		t.Errorf("Expected uri with query, got '%v'", uri)
	}
}

func TestRequestLog_ProxyHeader(t *testing.T) {
	t.Parallel()

	app, logBuffer := newLogApp(true, "X-Forwarded-For")
	handlerChain := NewRecorder(app).Execute(NewRequestLog(app).Execute(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:8080"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	handlerChain.ServeHTTP(httptest.NewRecorder(), req)

	if ip, _ := lastRecord(t, logBuffer)["remote_ip"].(string); ip != "203.0.113.5" {
		t.Errorf("Expected remote_ip from the proxy header, got '%v'", ip)
	}
}

// TestRequestLog_Deactivated ensures no log is written when the middleware is disabled.
func TestRequestLog_Deactivated(t *testing.T) {
	t.Parallel()

	app, logBuffer := newLogApp(false, "")
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handlerChain := NewRecorder(app).Execute(NewRequestLog(app).Execute(finalHandler))

	handlerChain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if logBuffer.Len() > 0 {
		t.Errorf("Expected no log output, but got: %s", logBuffer.String())
	}
}

// TestRequestLog_FieldTruncation verifies that long fields are correctly truncated.
func TestRequestLog_FieldTruncation(t *testing.T) {
	t.Parallel()

	app, logBuffer := newLogApp(true, "")
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handlerChain := NewRecorder(app).Execute(NewRequestLog(app).Execute(finalHandler))

	longString := strings.Repeat("a", 1000)
	req := httptest.NewRequest("POST", "/"+longString, nil)
	req.Header.Set("User-Agent", longString)
	handlerChain.ServeHTTP(httptest.NewRecorder(), req)

	logRecord := lastRecord(t, logBuffer)
	if got, _ := logRecord["uri"].(string); len(got) != maxURILength+len("...") {
		t.Errorf("uri length = %d, want %d", len(got), maxURILength+len("..."))
	}
	if got, _ := logRecord["user_agent"].(string); got != strings.Repeat("a", maxHeaderLength)+"..." {
		t.Errorf("user_agent not truncated: %d chars", len(got))
	}
}

// TestRequestLog_Robustness_MissingResponseRecorder ensures the middleware doesn't panic
// and logs an error if the recorder is missing.
func TestRequestLog_Robustness_MissingResponseRecorder(t *testing.T) {
	t.Parallel()

	app, logBuffer := newLogApp(true, "")
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler-Called", "true")
	})
	handlerChain := NewRequestLog(app).Execute(finalHandler)

	rr := httptest.NewRecorder()
	handlerChain.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	logRecord := lastRecord(t, logBuffer)
	if level, _ := logRecord["level"].(string); level != "ERROR" {
		t.Errorf("Expected log level to be ERROR, got %s", level)
	}
	if msg, _ := logRecord["msg"].(string); !strings.Contains(msg, "expected core.ResponseRecorder") {
		t.Errorf("Expected error message about ResponseRecorder, got %s", msg)
	}
	if rr.Header().Get("X-Handler-Called") != "true" {
		t.Error("The next handler was not called when the recorder was missing")
	}
}
