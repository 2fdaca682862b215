// Package refresh rebuilds the index periodically when the source files
// change.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/registry"
)

// Signer is a Source that can describe its state without being read.
type Signer interface {
	registry.Source
	Signature(ctx context.Context) (string, error)
}

// Refresher polls the source signature on a ticker and triggers a rebuild
// when it differs from the one of the serving snapshot.
type Refresher struct {
	provider     *config.Provider
	registry     *registry.Registry
	source       func() Signer
	logger       *slog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

// New creates a Refresher. source is called on every tick so that a
// reloaded configuration is picked up.
func New(provider *config.Provider, reg *registry.Registry, source func() Signer, logger *slog.Logger) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		provider:     provider,
		registry:     reg,
		source:       source,
		logger:       logger.With("component", "refresh"),
		ctx:          ctx,
		cancel:       cancel,
		shutdownDone: make(chan struct{}),
	}
}

func (r *Refresher) Name() string { return "refresh" }

// Start launches the polling goroutine. With on_start set, a first build
// runs immediately.
func (r *Refresher) Start() error {
	cfg := r.provider.Get().Refresh
	interval := cfg.Interval.Duration
	if interval <= 0 {
		return errors.New("refresh: interval must be positive")
	}

	go func() {
		defer close(r.shutdownDone)
		r.logger.Info("Starting refresh daemon", "interval", interval, "on_start", cfg.OnStart)

		if cfg.OnStart {
			r.Check(registry.WithTrigger(r.ctx, "startup"))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.ctx.Done():
				r.logger.Info("Refresh daemon received shutdown signal")
				return
			case <-ticker.C:
				if !r.provider.Get().Refresh.Activated {
					r.logger.Debug("Refresh tick skipped, deactivated")
					continue
				}
				r.Check(registry.WithTrigger(r.ctx, "timer"))
			}
		}
	}()
	return nil
}

// Stop signals the daemon to stop and waits for it, or for ctx.
func (r *Refresher) Stop(ctx context.Context) error {
	r.logger.Info("Stopping refresh daemon")
	r.cancel()

	select {
	case <-r.shutdownDone:
		r.logger.Info("Refresh daemon stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Info("Refresh daemon shutdown timed out")
		return ctx.Err()
	}
}

// Check rebuilds when the source signature changed and reports whether a
// new snapshot was published.
func (r *Refresher) Check(ctx context.Context) bool {
	src := r.source()
	sig, err := src.Signature(ctx)
	if err != nil {
		r.logger.Error("Failed to read source signature", "error", err)
		return false
	}
	if cur := r.registry.Current(); cur != nil && cur.Signature == sig {
		r.logger.Debug("Source unchanged, keeping snapshot", "snapshot", cur.ID)
		return false
	}

	_, err = r.registry.TryRebuild(ctx, src)
	switch {
	case err == nil:
		return true
	case errors.Is(err, registry.ErrBusy):
		r.logger.Info("Rebuild already running, tick skipped")
	default:
		r.logger.Error("Scheduled rebuild failed", "error", err)
	}
	return false
}
