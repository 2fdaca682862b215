package core

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/index"
	"github.com/devilelephant/blacklist/ingest"
	"github.com/devilelephant/blacklist/registry"
	"github.com/devilelephant/blacklist/router/httprouter"
)

const testList = "# firehol level1\n10.0.0.0/8\n192.0.2.0/24 ; documentation\n2001:db8::/32\n"

func nullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApp returns an App with an empty registry whose rebuilds are
// recorded by the App hook. journal may be nil.
func newTestApp(t *testing.T, journal db.DbJournal) *App {
	t.Helper()
	app, err := NewApp(
		WithConfigProvider(config.NewProvider(config.NewDefaultConfig())),
		WithRouter(httprouter.New(nil, nil)),
		WithLogger(nullLogger()),
		WithJournal(journal),
		WithSource(func() registry.Source {
			return registry.Static{"firehol_level1.netset": testList}
		}),
	)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	f, err := ingest.NewFilter([]string{"firehol_level1"}, nil)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	app.SetRegistry(registry.New(index.Options{Filter: f},
		registry.WithLogger(nullLogger()),
		registry.WithHook(app.RecordRebuild),
	))
	return app
}

// loaded is newTestApp with a first snapshot published.
func loaded(t *testing.T, journal db.DbJournal) *App {
	t.Helper()
	app := newTestApp(t, journal)
	if _, err := app.Registry().TryRebuild(context.Background(), app.Source()); err != nil {
		t.Fatalf("TryRebuild: %v", err)
	}
	return app
}
