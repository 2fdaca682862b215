package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/db/mock"
	"github.com/devilelephant/blacklist/index"
	"github.com/devilelephant/blacklist/registry"
)

// gateSource blocks Fetch until release is closed.
type gateSource struct {
	entered chan struct{}
	release chan struct{}
}

func (g *gateSource) Fetch(ctx context.Context) (index.Input, error) {
	close(g.entered)
	<-g.release
	return index.Input{Files: map[string]string{"firehol_level1.netset": "198.51.100.0/24\n"}}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func decodeBasic(t *testing.T, rr *httptest.ResponseRecorder) JsonBasic {
	t.Helper()
	var body JsonBasic
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not json: %v (%s)", err, rr.Body.String())
	}
	return body
}

func TestReloadHandler_Started(t *testing.T) {
	t.Parallel()

	journal := &mock.Journal{}
	app := newTestApp(t, journal)

	rr := httptest.NewRecorder()
	app.ReloadHandler(rr, httptest.NewRequest(http.MethodPost, "/blacklist/api/reload", nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rr.Code)
	}
	if body := decodeBasic(t, rr); body.Code != CodeOkReloadStarted {
		t.Errorf("code = %q", body.Code)
	}

	waitFor(t, func() bool { return len(journal.Rows()) == 1 })
	if app.Registry().State() != registry.StateReady {
		t.Errorf("State() = %v, want ready", app.Registry().State())
	}
	row := journal.Rows()[0]
	if row.Trigger != TriggerApi || row.Outcome != db.OutcomeSuccess || row.SnapshotID != app.Registry().Current().ID {
		t.Errorf("journal row = %+v", row)
	}
}

func TestReloadHandler_Busy(t *testing.T) {
	t.Parallel()

	journal := &mock.Journal{}
	app := newTestApp(t, journal)
	gate := &gateSource{entered: make(chan struct{}), release: make(chan struct{})}
	app.SetSource(func() registry.Source { return gate })

	first := httptest.NewRecorder()
	app.ReloadHandler(first, httptest.NewRequest(http.MethodPost, "/blacklist/api/reload", nil))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first reload status = %d, want 202", first.Code)
	}
	<-gate.entered

	second := httptest.NewRecorder()
	app.ReloadHandler(second, httptest.NewRequest(http.MethodPost, "/blacklist/api/reload", nil))
	if second.Code != http.StatusLocked {
		t.Fatalf("second reload status = %d, want 423", second.Code)
	}
	body := decodeBasic(t, second)
	if body.Code != CodeErrorBusy || body.Message != "already currently loading" {
		t.Errorf("body = %+v", body)
	}

	close(gate.release)
	waitFor(t, func() bool { return len(journal.Rows()) == 2 })

	rows := journal.Rows()
	if rows[0].Outcome != db.OutcomeBusy || rows[1].Outcome != db.OutcomeSuccess {
		t.Errorf("outcomes = %q, %q, want busy then success", rows[0].Outcome, rows[1].Outcome)
	}
	if m, _ := app.Registry().Lookup("198.51.100.1"); !m.Matched {
		t.Error("snapshot from the first reload not published")
	}
}

func TestReloadHandler_NoSource(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, nil)
	app.SetSource(nil)

	rr := httptest.NewRecorder()
	app.ReloadHandler(rr, httptest.NewRequest(http.MethodPost, "/blacklist/api/reload", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}
