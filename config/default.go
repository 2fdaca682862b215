package config

import (
	"log/slog"
	"time"
)

// NewDefaultConfig creates a new Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: Server{
			Addr:                    ":8080",
			ShutdownGracefulTimeout: Duration{Duration: 15 * time.Second},
			ReadTimeout:             Duration{Duration: 2 * time.Second},
			ReadHeaderTimeout:       Duration{Duration: 2 * time.Second},
			WriteTimeout:            Duration{Duration: 10 * time.Second},
			IdleTimeout:             Duration{Duration: 1 * time.Minute},
			ClientIpProxyHeader:     "",
		},
		Log: Log{
			Level:    LogLevel{Level: slog.LevelInfo},
			Format:   "text",
			Requests: true,
		},
		Sources: Sources{
			Dir:        "blocklist-ipsets",
			Filters:    []string{"firehol_level1"},
			Extensions: []string{".netset", ".ipset"},
			MaxDepth:   10,
			Workers:    4,
			Strict:     false,
		},
		Index: Index{
			Families: []string{"ipv4", "ipv6"},
		},
		Refresh: Refresh{
			Activated: true,
			Interval:  Duration{Duration: 1 * time.Hour},
			OnStart:   true,
		},
		Throttle: Throttle{
			Activated:     true,
			Level:         "medium",
			BlockDuration: Duration{Duration: 5 * time.Minute},
		},
		Dnsbl: Dnsbl{
			Activated: false,
			Addr:      ":5353",
			Zone:      "bl.example.org.",
			Ttl:       300,
		},
		Journal: Journal{
			Activated: true,
			DbPath:    "blacklist.db",
			Keep:      1000,
		},
		Metrics: Metrics{
			Activated: true,
			Path:      "/metrics",
		},
		Notify: Notify{
			Activated:   false,
			WebhookUrl:  "",
			Interval:    Duration{Duration: 2 * time.Second},
			Burst:       5,
			SendTimeout: Duration{Duration: 10 * time.Second},
		},
		Api: Api{
			Prefix: "/blacklist/api",
		},
	}
}
