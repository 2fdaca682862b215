package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Load reads a TOML file over the defaults and validates the result.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Info("loading configuration", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	cfg, err := LoadBytes(data)
	if err != nil {
		logger.Error("configuration rejected", "path", path, "error", err)
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}

// LoadBytes decodes TOML over NewDefaultConfig. Unknown keys are an error
// so typos do not silently fall back to defaults.
func LoadBytes(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal TOML: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Dump renders cfg as TOML, used by the CLI to print the defaults.
func Dump(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
