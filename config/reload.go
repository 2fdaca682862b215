package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// Reload returns a function that re-reads path, validates it and swaps the
// provider's config. The previous config stays in place on any error.
// Fields that only take effect on restart are reported with a warning.
func Reload(path string, provider *Provider, logger *slog.Logger) func() error {
	return func() error {
		logger.Debug("Reload: Attempting to read configuration", "path", path)
		newCfg, err := Load(path, logger)
		if err != nil {
			logger.Error("Reload: Configuration rejected", "path", path, "error", err)
			return fmt.Errorf("reload %s: %w", path, err)
		}

		if changed := checkChangedRestartFields(provider.Get(), newCfg); len(changed) > 0 {
			logger.Warn("Reload: Some changes require a restart to take effect", "fields", changed)
		}

		provider.Update(newCfg)
		logger.Info("Reload: Configuration successfully reloaded and updated in provider", "path", path)
		return nil
	}
}

// checkChangedRestartFields lists fields bound at startup: listeners,
// storage paths and the index build options.
func checkChangedRestartFields(old, cur *Config) []string {
	changed := []string{}
	if old.Server.Addr != cur.Server.Addr {
		changed = append(changed, "Server.Addr")
	}
	if old.Dnsbl.Activated != cur.Dnsbl.Activated {
		changed = append(changed, "Dnsbl.Activated")
	}
	if old.Dnsbl.Addr != cur.Dnsbl.Addr {
		changed = append(changed, "Dnsbl.Addr")
	}
	if old.Log.Format != cur.Log.Format {
		changed = append(changed, "Log.Format")
	}
	if old.Journal.Activated != cur.Journal.Activated {
		changed = append(changed, "Journal.Activated")
	}
	if old.Journal.DbPath != cur.Journal.DbPath {
		changed = append(changed, "Journal.DbPath")
	}
	if old.Api.Prefix != cur.Api.Prefix {
		changed = append(changed, "Api.Prefix")
	}
	if old.Metrics.Path != cur.Metrics.Path {
		changed = append(changed, "Metrics.Path")
	}
	if old.Notify != cur.Notify {
		changed = append(changed, "Notify")
	}
	if !slices.Equal(old.Sources.Filters, cur.Sources.Filters) {
		changed = append(changed, "Sources.Filters")
	}
	if !slices.Equal(old.Sources.Extensions, cur.Sources.Extensions) {
		changed = append(changed, "Sources.Extensions")
	}
	if old.Sources.Strict != cur.Sources.Strict {
		changed = append(changed, "Sources.Strict")
	}
	if !slices.Equal(old.Index.Families, cur.Index.Families) {
		changed = append(changed, "Index.Families")
	}
	if old.Throttle.Level != cur.Throttle.Level {
		changed = append(changed, "Throttle.Level")
	}
	return changed
}
