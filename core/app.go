package core

import (
	"log/slog"

	"github.com/devilelephant/blacklist/cache"
	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/notify"
	"github.com/devilelephant/blacklist/registry"
	"github.com/devilelephant/blacklist/router"
)

// App is the application wide context.
// Long lived components the handlers need go here.
//
// All handlers and middleware have App as receiver.
type App struct {
	registry       *registry.Registry
	source         func() registry.Source
	journal        db.DbJournal
	router         router.Router
	cache          cache.Cache[string, bool] // blocked clients
	configProvider *config.Provider
	logger         *slog.Logger
	metrics        *Metrics
	notifier       notify.Notifier
}

func (a *App) Router() router.Router {
	return a.router
}

func (a *App) SetRouter(r router.Router) {
	a.router = r
}

func (a *App) Registry() *registry.Registry {
	return a.registry
}

// SetRegistry sets the snapshot registry. It panics on nil.
func (a *App) SetRegistry(r *registry.Registry) {
	if r == nil {
		panic("registry cannot be nil")
	}
	a.registry = r
}

// Source returns the source a manual reload reads from, built from the
// current configuration.
func (a *App) Source() registry.Source {
	if a.source == nil {
		return nil
	}
	return a.source()
}

func (a *App) SetSource(f func() registry.Source) {
	a.source = f
}

// Journal returns the rebuild journal. It is nil when the journal is
// deactivated.
func (a *App) Journal() db.DbJournal {
	return a.journal
}

func (a *App) SetJournal(j db.DbJournal) {
	a.journal = j
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) SetLogger(l *slog.Logger) {
	a.logger = l
}

func (a *App) SetCache(c cache.Cache[string, bool]) {
	a.cache = c
}

func (a *App) Cache() cache.Cache[string, bool] {
	return a.cache
}

func (a *App) Metrics() *Metrics {
	return a.metrics
}

func (a *App) SetMetrics(m *Metrics) {
	a.metrics = m
}

func (a *App) Config() *config.Config {
	return a.configProvider.Get()
}

func (a *App) SetConfigProvider(provider *config.Provider) {
	a.configProvider = provider
}

func (a *App) Notifier() notify.Notifier {
	return a.notifier
}

func (a *App) SetNotifier(n notify.Notifier) {
	a.notifier = n
}
