package config

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

type Config struct {
	Server   Server   `toml:"server" comment:"HTTP listener"`
	Log      Log      `toml:"log"`
	Sources  Sources  `toml:"sources" comment:"Blocklist files on disk"`
	Index    Index    `toml:"index"`
	Refresh  Refresh  `toml:"refresh" comment:"Periodic rebuild when the source files change"`
	Throttle Throttle `toml:"throttle" comment:"Blocks clients sending too many queries"`
	Dnsbl    Dnsbl    `toml:"dnsbl" comment:"DNS blocklist front end"`
	Journal  Journal  `toml:"journal" comment:"SQLite history of rebuild attempts"`
	Metrics  Metrics  `toml:"metrics"`
	Notify   Notify   `toml:"notify" comment:"Webhook alarm on failed rebuilds"`
	Api      Api      `toml:"api"`

	// Source is the file the config was loaded from, empty for defaults.
	Source string `toml:"-"`
}

type Server struct {
	Addr                    string   `toml:"addr"`
	ShutdownGracefulTimeout Duration `toml:"shutdown_graceful_timeout"`
	ReadTimeout             Duration `toml:"read_timeout"`
	ReadHeaderTimeout       Duration `toml:"read_header_timeout"`
	WriteTimeout            Duration `toml:"write_timeout"`
	IdleTimeout             Duration `toml:"idle_timeout"`
	// ClientIpProxyHeader names the header carrying the client IP when the
	// service sits behind a proxy, e.g. X-Forwarded-For.
	ClientIpProxyHeader string `toml:"client_ip_proxy_header"`
}

type Log struct {
	Level    LogLevel `toml:"level"`
	Format   string   `toml:"format" comment:"text or json"`
	Requests bool     `toml:"requests" comment:"Log every HTTP request at info level"`
}

type Sources struct {
	Dir        string   `toml:"dir"`
	Filters    []string `toml:"filters" comment:"A filter without '*' matches anywhere in the file name"`
	Extensions []string `toml:"extensions"`
	MaxDepth   int      `toml:"max_depth"`
	Workers    int      `toml:"workers"`
	Strict     bool     `toml:"strict" comment:"Fail rebuilds when no file matches"`
}

type Index struct {
	Families []string `toml:"families" comment:"ipv4, ipv6"`
}

type Refresh struct {
	Activated bool     `toml:"activated"`
	Interval  Duration `toml:"interval"`
	OnStart   bool     `toml:"on_start"`
}

type Throttle struct {
	Activated     bool     `toml:"activated"`
	Level         string   `toml:"level" comment:"low, medium or high"`
	BlockDuration Duration `toml:"block_duration"`
}

type Dnsbl struct {
	Activated bool   `toml:"activated"`
	Addr      string `toml:"addr"`
	Zone      string `toml:"zone"`
	Ttl       uint32 `toml:"ttl"`
}

type Journal struct {
	Activated bool   `toml:"activated"`
	DbPath    string `toml:"db_path"`
	Keep      int    `toml:"keep" comment:"Rows kept after pruning"`
}

type Metrics struct {
	Activated bool   `toml:"activated"`
	Path      string `toml:"path"`
}

type Notify struct {
	Activated   bool     `toml:"activated"`
	WebhookUrl  string   `toml:"webhook_url"`
	Interval    Duration `toml:"interval" comment:"Minimum spacing between messages once the burst is spent"`
	Burst       int      `toml:"burst"`
	SendTimeout Duration `toml:"send_timeout"`
}

type Api struct {
	Prefix string `toml:"prefix"`
}

// Duration is a time.Duration written as a string ("30s", "5m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LogLevel is a slog.Level written by name in TOML.
type LogLevel struct {
	slog.Level
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	if err := l.Level.UnmarshalText([]byte(strings.ToUpper(string(text)))); err != nil {
		return fmt.Errorf("invalid log level %q", text)
	}
	return nil
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(l.Level.String())), nil
}

// Provider gives concurrent access to the current configuration.
type Provider struct {
	value atomic.Pointer[Config]
}

func NewProvider(cfg *Config) *Provider {
	p := &Provider{}
	p.value.Store(cfg)
	return p
}

// Get returns the current config. Callers must not modify it.
func (p *Provider) Get() *Config {
	return p.value.Load()
}

func (p *Provider) Update(cfg *Config) {
	p.value.Store(cfg)
}
