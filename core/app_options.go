package core

import (
	"errors"
	"log/slog"

	"github.com/devilelephant/blacklist/cache"
	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/notify"
	"github.com/devilelephant/blacklist/registry"
	"github.com/devilelephant/blacklist/router"
)

type Option func(*App)

// NewApp builds an App from opts. The config provider and the router are
// required. A missing logger discards, missing metrics get a fresh
// registry and a missing notifier drops everything.
func NewApp(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.configProvider == nil {
		return nil, errors.New("config provider is required but was not provided (use WithConfigProvider)")
	}
	if a.router == nil {
		return nil, errors.New("router is required but was not provided (use WithRouter)")
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.metrics == nil {
		a.metrics = NewMetrics()
	}
	if a.notifier == nil {
		a.notifier = notify.Nop{}
	}
	return a, nil
}

// WithCache sets the cache of blocked clients.
func WithCache(c cache.Cache[string, bool]) Option {
	return func(a *App) {
		a.cache = c
	}
}

// WithNotifier sets where failed rebuilds are reported.
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}

// WithJournal sets the rebuild journal.
func WithJournal(j db.DbJournal) Option {
	return func(a *App) {
		a.journal = j
	}
}

// WithRegistry sets the snapshot registry.
func WithRegistry(r *registry.Registry) Option {
	return func(a *App) {
		a.registry = r
	}
}

// WithSource sets the factory of the source used by manual reloads.
func WithSource(f func() registry.Source) Option {
	return func(a *App) {
		a.source = f
	}
}

// WithRouter sets the router implementation
func WithRouter(r router.Router) Option {
	return func(a *App) {
		a.router = r
	}
}

// WithConfigProvider sets the application's configuration provider.
func WithConfigProvider(p *config.Provider) Option {
	return func(a *App) {
		a.configProvider = p
	}
}

// WithLogger sets the logger implementation
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}
