package blacklist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/core"
	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/db/mock"
	"github.com/devilelephant/blacklist/registry"
)

const testList = "# firehol level1\n10.0.0.0/8\n192.0.2.0/24\n2001:db8::/32\n"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTestConfig lays out a source directory with one list and a config
// file pointing at it. extra is appended to the file.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	lists := filepath.Join(dir, "lists")
	if err := os.MkdirAll(lists, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lists, "firehol_level1.netset"), []byte(testList), 0o644); err != nil {
		t.Fatal(err)
	}

	content := fmt.Sprintf("[sources]\ndir = %q\nfilters = [\"firehol_level1\"]\n\n[journal]\ndb_path = %q\n%s",
		lists, filepath.Join(dir, "journal.db"), extra)
	path := filepath.Join(dir, "blacklist.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// closeJournal releases the SQLite journal opened by New.
func closeJournal(t *testing.T, app *core.App) {
	t.Cleanup(func() {
		if c, ok := app.Journal().(io.Closer); ok {
			c.Close()
		}
	})
}

func TestNew_ServesApi(t *testing.T) {
	t.Parallel()

	app, srv, err := New(writeTestConfig(t, ""), WithLogger(newTestLogger()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	closeJournal(t, app)

	if _, err := app.Registry().TryRebuild(context.Background(), app.Source()); err != nil {
		t.Fatalf("TryRebuild: %v", err)
	}

	testCases := []struct {
		method     string
		target     string
		wantStatus int
		wantBody   string
	}{
		{http.MethodGet, "/blacklist/api?ip=10.1.2.3", http.StatusOK, core.CodeOkListed},
		{http.MethodGet, "/blacklist/api?ip=172.16.0.1", http.StatusNotFound, core.CodeOkNotListed},
		{http.MethodGet, "/blacklist/api?ip=nope", http.StatusBadRequest, core.CodeErrorMalformedAddress},
		{http.MethodGet, "/blacklist/api/status", http.StatusOK, `"state":"ready"`},
		{http.MethodGet, "/blacklist/api/export", http.StatusOK, "192.0.2.0/24"},
		{http.MethodHead, "/blacklist/api/export", http.StatusOK, ""},
		{http.MethodGet, "/metrics", http.StatusOK, "blacklist_snapshot_entries 3"},
		{http.MethodDelete, "/blacklist/api", http.StatusMethodNotAllowed, core.CodeErrorMethodNotAllowed},
		{http.MethodGet, "/unknown", http.StatusNotFound, core.CodeErrorNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, httptest.NewRequest(tc.method, tc.target, nil))
			if rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d, body %s", rr.Code, tc.wantStatus, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tc.wantBody) {
				t.Errorf("body %q does not contain %q", rr.Body.String(), tc.wantBody)
			}
		})
	}

	rows, err := app.Journal().ListRebuilds(10)
	if err != nil {
		t.Fatalf("ListRebuilds: %v", err)
	}
	if len(rows) != 1 || rows[0].Outcome != db.OutcomeSuccess {
		t.Errorf("journal rows = %+v, want one success", rows)
	}
}

func TestNew_Daemons(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		extra string
		want  []string
	}{
		{
			name: "defaults",
			want: []string{"refresh", "journal", "throttle-cache"},
		},
		{
			name:  "dnsbl on, throttle off",
			extra: "\n[dnsbl]\nactivated = true\naddr = \"127.0.0.1:0\"\n\n[throttle]\nactivated = false\n",
			want:  []string{"refresh", "dnsbl", "journal"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app, srv, err := New(writeTestConfig(t, tc.extra), WithLogger(newTestLogger()))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			closeJournal(t, app)
			if got := srv.DaemonNames(); !slices.Equal(got, tc.want) {
				t.Errorf("daemons = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		extra string
	}{
		{"unknown key", "\n[index]\nfamiles = [\"ipv4\"]\n"},
		{"bad family", "\n[index]\nfamilies = [\"ipx\"]\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := New(writeTestConfig(t, tc.extra), WithLogger(newTestLogger())); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, _, err := New(filepath.Join(t.TempDir(), "missing.toml"), WithLogger(newTestLogger())); err == nil {
		t.Error("missing config file accepted")
	}
}

func TestReloadFunc_RebuildsWithSighupTrigger(t *testing.T) {
	t.Parallel()

	journal := &mock.Journal{}
	app, _, err := New(writeTestConfig(t, ""),
		WithLogger(newTestLogger()),
		WithJournal(journal),
		WithSource(func() registry.Source { return registry.Static{"firehol_level1.netset": testList} }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	reload := reloadFunc("", config.NewProvider(app.Config()), app)
	if err := reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(journal.Rows()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	rows := journal.Rows()
	if len(rows) != 1 || rows[0].Trigger != TriggerSighup || rows[0].Outcome != db.OutcomeSuccess {
		t.Errorf("journal rows = %+v, want one sighup success", rows)
	}
	if app.Registry().Current() == nil {
		t.Error("no snapshot after reload")
	}
}

func TestBuildSnapshot(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(writeTestConfig(t, "\n[index]\nfamilies = [\"ipv4\"]\n"), newTestLogger())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	snap, err := BuildSnapshot(context.Background(), cfg, newTestLogger())
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	if snap.Entries != 2 {
		t.Errorf("entries = %d, want 2 ipv4 prefixes", snap.Entries)
	}

	cfg.Sources.Dir = filepath.Join(t.TempDir(), "absent")
	if _, err := BuildSnapshot(context.Background(), cfg, newTestLogger()); err == nil {
		t.Error("missing source dir accepted")
	}
}

func TestLoadConfig_Example(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("blacklist.example.toml", newTestLogger())
	if err != nil {
		t.Fatalf("example config rejected: %v", err)
	}
	if len(cfg.Sources.Filters) != 2 || cfg.Dnsbl.Zone != "bl.example.org." {
		t.Errorf("example config decoded as %+v", cfg.Sources)
	}
}
