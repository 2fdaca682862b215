package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

// nullLogger returns a slog.Logger that discards all output.
func nullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, cfg *Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	return writeRaw(t, data)
}

func writeRaw(t *testing.T, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "blacklist.toml")
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestCheckChangedRestartFields(t *testing.T) {
	t.Parallel()

	baseCfg := *NewDefaultConfig()

	testCases := []struct {
		name         string
		modifier     func(cfg *Config)
		expectFields []string
	}{
		{
			name:         "No changes",
			modifier:     func(cfg *Config) {},
			expectFields: []string{},
		},
		{
			name: "Safe field change (Refresh.Interval)",
			modifier: func(cfg *Config) {
				cfg.Refresh.Interval.Duration *= 2
			},
			expectFields: []string{},
		},
		{
			name: "Restart field change (Server.Addr)",
			modifier: func(cfg *Config) {
				cfg.Server.Addr = ":9999"
			},
			expectFields: []string{"Server.Addr"},
		},
		{
			name: "Multiple restart fields changed",
			modifier: func(cfg *Config) {
				cfg.Dnsbl.Activated = !baseCfg.Dnsbl.Activated
				cfg.Journal.DbPath = "other.db"
			},
			expectFields: []string{"Dnsbl.Activated", "Journal.DbPath"},
		},
		{
			name: "Index build options changed",
			modifier: func(cfg *Config) {
				cfg.Sources.Filters = []string{"spamhaus_drop"}
				cfg.Index.Families = []string{"ipv4"}
			},
			expectFields: []string{"Sources.Filters", "Index.Families"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			newCfg := baseCfg
			tc.modifier(&newCfg)

			changed := checkChangedRestartFields(&baseCfg, &newCfg)
			if !reflect.DeepEqual(changed, tc.expectFields) {
				t.Errorf("checkChangedRestartFields() got = %v, want %v", changed, tc.expectFields)
			}
		})
	}
}

func TestReload(t *testing.T) {
	t.Parallel()

	oldCfg := NewDefaultConfig()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		provider := NewProvider(oldCfg)

		newCfg := NewDefaultConfig()
		newCfg.Sources.Filters = []string{"spamhaus_drop"}
		path := writeConfig(t, newCfg)

		if err := Reload(path, provider, nullLogger())(); err != nil {
			t.Fatalf("reloadFn() returned unexpected error: %v", err)
		}
		got := provider.Get()
		if got == oldCfg {
			t.Fatal("Config was not updated after reload")
		}
		if !reflect.DeepEqual(got.Sources.Filters, []string{"spamhaus_drop"}) {
			t.Errorf("Filters = %v", got.Sources.Filters)
		}
		if got.Source != path {
			t.Errorf("Source = %q, want %q", got.Source, path)
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		t.Parallel()
		provider := NewProvider(oldCfg)

		err := Reload(filepath.Join(t.TempDir(), "nope.toml"), provider, nullLogger())()
		if err == nil {
			t.Fatal("reloadFn() did not return an error for a missing file")
		}
		if provider.Get() != oldCfg {
			t.Error("provider changed after a failed reload")
		}
	})

	t.Run("Invalid TOML content", func(t *testing.T) {
		t.Parallel()
		provider := NewProvider(oldCfg)

		err := Reload(writeRaw(t, []byte("this is not valid toml")), provider, nullLogger())()
		if err == nil {
			t.Fatal("reloadFn() did not return an error for invalid TOML")
		}
	})

	t.Run("Validation error", func(t *testing.T) {
		t.Parallel()
		provider := NewProvider(oldCfg)

		newCfg := NewDefaultConfig()
		newCfg.Sources.Filters = []string{"bad(*"}
		err := Reload(writeConfig(t, newCfg), provider, nullLogger())()
		if err == nil {
			t.Fatal("reloadFn() did not return an error for a validation failure")
		}
		if provider.Get() != oldCfg {
			t.Error("provider changed after a failed reload")
		}
	})
}
