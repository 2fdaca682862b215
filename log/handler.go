// Package log builds the process logger. Its level follows the current
// configuration so a reload changes verbosity without a restart.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/devilelephant/blacklist/config"
	phuslog "github.com/phuslu/log"
)

// LevelHandler is a slog.Handler whose minimum level is read from the
// config provider on every call.
type LevelHandler struct {
	configProvider *config.Provider
	inner          slog.Handler
}

// NewLevelHandler wraps inner. If any parameter is nil, it panics.
func NewLevelHandler(configProvider *config.Provider, inner slog.Handler) *LevelHandler {
	if configProvider == nil {
		panic("levelhandler: configProvider cannot be nil")
	}
	if inner == nil {
		panic("levelhandler: inner handler cannot be nil")
	}
	return &LevelHandler{configProvider: configProvider, inner: inner}
}

func (h *LevelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.configProvider.Get().Log.Level.Level
}

func (h *LevelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{configProvider: h.configProvider, inner: h.inner.WithAttrs(attrs)}
}

func (h *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{configProvider: h.configProvider, inner: h.inner.WithGroup(name)}
}

// New returns a logger writing text or JSON to w, as set by log.format.
// JSON records are encoded by phuslu/log. The format is fixed when New is
// called.
func New(configProvider *config.Provider, w io.Writer) (*slog.Logger, error) {
	// the level handler filters, the inner one must accept everything
	opts := &slog.HandlerOptions{Level: slog.Level(-8)}

	var inner slog.Handler
	switch format := configProvider.Get().Log.Format; format {
	case "", "text":
		inner = slog.NewTextHandler(w, opts)
	case "json":
		inner = phuslog.SlogNewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("log: unknown format %q", format)
	}
	return slog.New(NewLevelHandler(configProvider, inner)), nil
}
