// Package blacklist wires the block index service: configuration, the hot
// swapped registry over a source directory, the journal, the HTTP api and
// the daemons around them.
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"

	"github.com/devilelephant/blacklist/cache/ristretto"
	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/core"
	"github.com/devilelephant/blacklist/core/prerouter"
	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/db/zombiezen"
	"github.com/devilelephant/blacklist/dnsbl"
	"github.com/devilelephant/blacklist/index"
	"github.com/devilelephant/blacklist/ingest"
	"github.com/devilelephant/blacklist/log"
	"github.com/devilelephant/blacklist/notify/webhook"
	"github.com/devilelephant/blacklist/refresh"
	"github.com/devilelephant/blacklist/registry"
	"github.com/devilelephant/blacklist/router"
	"github.com/devilelephant/blacklist/router/httprouter"
	"github.com/devilelephant/blacklist/server"
	"github.com/devilelephant/blacklist/source"
)

// TriggerSighup names rebuilds requested by a SIGHUP.
const TriggerSighup = "sighup"

// throttleCacheLevel sizes the cache of blocked clients.
const throttleCacheLevel = "medium"

// New loads configPath, builds the App and returns it with a Server ready
// to Run. An empty configPath runs on the defaults.
func New(configPath string, opts ...Option) (*core.App, *server.Server, error) {
	setup := &initializer{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(setup)
	}

	cfg, err := LoadConfig(configPath, setup.logger)
	if err != nil {
		return nil, nil, err
	}
	configProvider := config.NewProvider(cfg)

	logger := setup.logger
	if logger == nil {
		if logger, err = log.New(configProvider, setup.logOutput); err != nil {
			return nil, nil, err
		}
	}

	var closers []*closer

	journal := setup.journal
	if journal == nil && cfg.Journal.Activated {
		j, err := NewZombiezenJournal(cfg.Journal)
		if err != nil {
			logger.Error("failed to open journal", "path", cfg.Journal.DbPath, "error", err)
			return nil, nil, err
		}
		journal = j
		closers = append(closers, &closer{name: "journal", close: j.Close})
	}

	filter, err := ingest.NewFilter(cfg.Sources.Filters, cfg.Sources.Extensions)
	if err != nil {
		return nil, nil, err
	}
	dir := func() *source.Dir { return newDir(configProvider.Get(), filter, logger) }
	src := setup.source
	if src == nil {
		src = func() registry.Source { return dir() }
	}

	appOpts := []core.Option{
		core.WithConfigProvider(configProvider),
		core.WithRouter(httprouter.New(
			http.HandlerFunc(core.WriteErrorNotFound),
			http.HandlerFunc(core.WriteErrorMethodNotAllowed),
		)),
		core.WithLogger(logger),
		core.WithSource(src),
	}
	if journal != nil {
		appOpts = append(appOpts, core.WithJournal(journal))
	}
	if cfg.Throttle.Activated {
		c, err := ristretto.New[bool](throttleCacheLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("throttle cache: %w", err)
		}
		appOpts = append(appOpts, core.WithCache(c))
		closers = append(closers, &closer{name: "throttle-cache", close: func() error { c.Close(); return nil }})
	}

	if cfg.Notify.Activated {
		n, err := webhook.New(webhook.Options{
			URL:         cfg.Notify.WebhookUrl,
			Interval:    cfg.Notify.Interval.Duration,
			Burst:       cfg.Notify.Burst,
			SendTimeout: cfg.Notify.SendTimeout.Duration,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		appOpts = append(appOpts, core.WithNotifier(n))
	}

	app, err := core.NewApp(appOpts...)
	if err != nil {
		logger.Error("failed to initialize core app", "error", err)
		return nil, nil, err
	}

	families, err := cfg.Index.ParsedFamilies()
	if err != nil {
		return nil, nil, err
	}
	app.SetRegistry(registry.New(
		index.Options{Filter: filter, Families: families, Strict: cfg.Sources.Strict, Logger: logger},
		registry.WithLogger(logger),
		registry.WithHook(app.RecordRebuild),
	))

	route(cfg, app)

	handler := router.NewChain(app.Router()).WithMiddleware(
		prerouter.NewRecorder(app).Execute,
		prerouter.NewRequestLog(app).Execute,
		prerouter.NewMetrics(app).Execute,
		prerouter.NewBlockIp(app).Execute,
	).Handler()

	srv := server.NewServer(configProvider, handler, logger, reloadFunc(configPath, configProvider, app))

	if setup.source == nil {
		srv.AddDaemon(refresh.New(configProvider, app.Registry(), func() refresh.Signer { return dir() }, logger))
	} else if s, ok := setup.source().(refresh.Signer); ok {
		srv.AddDaemon(refresh.New(configProvider, app.Registry(), func() refresh.Signer { return s }, logger))
	}

	if cfg.Dnsbl.Activated {
		srv.AddDaemon(dnsbl.New(configProvider, app.Registry(), logger, dnsbl.WithObserver(func(matched bool, err error) {
			app.Metrics().ObserveLookup(core.LookupResult(matched, err))
		})))
	}

	for _, c := range closers {
		srv.AddDaemon(c)
	}

	return app, srv, nil
}

// LoadConfig reads and validates path, or returns the validated defaults
// when path is empty. A nil logger logs to the default slog logger.
func LoadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		cfg := config.NewDefaultConfig()
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path, logger)
}

// BuildSnapshot reads the configured source directory once and builds a
// snapshot from it, without a registry.
func BuildSnapshot(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*index.Snapshot, error) {
	filter, err := ingest.NewFilter(cfg.Sources.Filters, cfg.Sources.Extensions)
	if err != nil {
		return nil, err
	}
	families, err := cfg.Index.ParsedFamilies()
	if err != nil {
		return nil, err
	}
	in, err := newDir(cfg, filter, logger).Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", registry.ErrIngestionUnavailable, err)
	}
	return index.Build(in, index.Options{Filter: filter, Families: families, Strict: cfg.Sources.Strict, Logger: logger})
}

// NewZombiezenJournal opens the SQLite journal at the configured path.
func NewZombiezenJournal(cfg config.Journal) (*zombiezen.Journal, error) {
	return zombiezen.NewJournal(cfg.DbPath, min(runtime.NumCPU(), 4))
}

func newDir(cfg *config.Config, filter *ingest.Filter, logger *slog.Logger) *source.Dir {
	return &source.Dir{
		Root:     cfg.Sources.Dir,
		MaxDepth: cfg.Sources.MaxDepth,
		Filter:   filter,
		Workers:  cfg.Sources.Workers,
		Logger:   logger,
	}
}

// reloadFunc re-reads the config file and then rebuilds the index in the
// background. A rebuild already running is not an error.
func reloadFunc(configPath string, configProvider *config.Provider, app *core.App) func() error {
	var reloadConfig func() error
	if configPath != "" {
		reloadConfig = config.Reload(configPath, configProvider, app.Logger())
	}

	return func() error {
		if reloadConfig != nil {
			if err := reloadConfig(); err != nil {
				return err
			}
		}

		src := app.Source()
		if src == nil {
			return nil
		}
		logger := app.Logger()
		ctx := registry.WithTrigger(context.Background(), TriggerSighup)
		err := app.Registry().Start(ctx, src, func(s *index.Snapshot, err error) {
			if err != nil {
				logger.Warn("Rebuild after SIGHUP failed", "error", err)
			}
		})
		if errors.Is(err, registry.ErrBusy) {
			logger.Info("Rebuild after SIGHUP skipped, one is running")
			app.RecordBusy(TriggerSighup)
			return nil
		}
		return err
	}
}

// closer adapts a resource released at shutdown to a server daemon.
type closer struct {
	name  string
	close func() error
}

func (c *closer) Name() string { return c.name }

func (c *closer) Start() error { return nil }

func (c *closer) Stop(context.Context) error { return c.close() }

var _ db.DbJournal = (*zombiezen.Journal)(nil)
