package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/devilelephant/blacklist/addr"
	"github.com/devilelephant/blacklist/ingest"
)

func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}
	if err := validateSources(&cfg.Sources); err != nil {
		return fmt.Errorf("sources config validation failed: %w", err)
	}
	if err := validateIndex(&cfg.Index); err != nil {
		return fmt.Errorf("index config validation failed: %w", err)
	}
	if err := validateRefresh(&cfg.Refresh); err != nil {
		return fmt.Errorf("refresh config validation failed: %w", err)
	}
	if err := validateThrottle(&cfg.Throttle); err != nil {
		return fmt.Errorf("throttle config validation failed: %w", err)
	}
	if err := validateDnsbl(&cfg.Dnsbl); err != nil {
		return fmt.Errorf("dnsbl config validation failed: %w", err)
	}
	if err := validateJournal(&cfg.Journal); err != nil {
		return fmt.Errorf("journal config validation failed: %w", err)
	}
	if err := validateNotify(&cfg.Notify); err != nil {
		return fmt.Errorf("notify config validation failed: %w", err)
	}
	if err := validateHttpPaths(cfg); err != nil {
		return fmt.Errorf("api config validation failed: %w", err)
	}
	return nil
}

// validateServer checks the Server configuration section.
// It ensures the Addr field is not empty and contains a valid host:port or :port format.
// If only a port is provided (e.g., ":8080"), it defaults the host to "localhost".
//
// Allowed formats:
//   - "host:port" (e.g., "example.com:8080", "127.0.0.1:8080", "[::1]:8080")
//   - ":port"     (e.g., ":8080" becomes "localhost:8080")
//
// The port part is mandatory.
func validateServer(server *Server) error {
	hp, err := normalizeHostPort(server.Addr)
	if err != nil {
		return err
	}
	server.Addr = hp
	if server.ShutdownGracefulTimeout.Duration <= 0 {
		return fmt.Errorf("shutdown_graceful_timeout must be positive")
	}
	return nil
}

func normalizeHostPort(hostport string) (string, error) {
	if hostport == "" {
		return "", fmt.Errorf("address cannot be empty")
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", fmt.Errorf("invalid address format '%s': %w", hostport, err)
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		return "", fmt.Errorf("address '%s' must include a port", hostport)
	}

	// net.SplitHostPort does not check the port is numeric.
	if _, err := net.LookupPort("tcp", port); err != nil {
		return "", fmt.Errorf("invalid port '%s' in address '%s': %w", port, hostport, err)
	}
	return net.JoinHostPort(host, port), nil
}

func validateLog(l *Log) error {
	switch l.Format {
	case "text", "json":
		return nil
	case "":
		l.Format = "text"
		return nil
	default:
		return fmt.Errorf("unknown log format %q, want text or json", l.Format)
	}
}

func validateSources(s *Sources) error {
	if s.Dir == "" {
		return fmt.Errorf("dir cannot be empty")
	}
	if len(s.Filters) == 0 {
		return fmt.Errorf("at least one filter is required")
	}
	if _, err := ingest.NewFilter(s.Filters, s.Extensions); err != nil {
		return err
	}
	for _, ext := range s.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if s.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be at least 1, got %d", s.MaxDepth)
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", s.Workers)
	}
	return nil
}

func validateIndex(i *Index) error {
	if len(i.Families) == 0 {
		return fmt.Errorf("at least one address family is required")
	}
	_, err := i.ParsedFamilies()
	return err
}

// ParsedFamilies returns the configured families as addr values.
func (i Index) ParsedFamilies() ([]addr.Family, error) {
	out := make([]addr.Family, 0, len(i.Families))
	seen := make(map[addr.Family]bool)
	for _, name := range i.Families {
		f, err := addr.ParseFamily(name)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			return nil, fmt.Errorf("family %s listed twice", f)
		}
		seen[f] = true
		out = append(out, f)
	}
	return out, nil
}

// validateRefresh checks the interval even when refresh is off: the
// daemon always runs and a reload may activate it.
func validateRefresh(r *Refresh) error {
	if r.Interval.Duration < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %s", r.Interval)
	}
	return nil
}

// ThrottleLevels lists the accepted throttle presets.
var ThrottleLevels = []string{"low", "medium", "high"}

func validateThrottle(t *Throttle) error {
	if !t.Activated {
		return nil
	}
	ok := false
	for _, l := range ThrottleLevels {
		if t.Level == l {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("unknown level %q, want one of %v", t.Level, ThrottleLevels)
	}
	if t.BlockDuration.Duration <= 0 {
		return fmt.Errorf("block_duration must be positive")
	}
	return nil
}

func validateDnsbl(d *Dnsbl) error {
	if !d.Activated {
		return nil
	}
	hp, err := normalizeHostPort(d.Addr)
	if err != nil {
		return err
	}
	d.Addr = hp
	if d.Zone == "" {
		return fmt.Errorf("zone cannot be empty")
	}
	if !strings.HasSuffix(d.Zone, ".") {
		d.Zone += "."
	}
	return nil
}

func validateJournal(j *Journal) error {
	if !j.Activated {
		return nil
	}
	if j.DbPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if j.Keep < 1 {
		return fmt.Errorf("keep must be at least 1, got %d", j.Keep)
	}
	return nil
}

func validateNotify(n *Notify) error {
	if !n.Activated {
		return nil
	}
	u, err := url.Parse(n.WebhookUrl)
	if err != nil {
		return fmt.Errorf("invalid webhook_url: %w", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("webhook_url %q must be an absolute http(s) url", n.WebhookUrl)
	}
	if n.Interval.Duration <= 0 || n.SendTimeout.Duration <= 0 {
		return fmt.Errorf("interval and send_timeout must be positive")
	}
	if n.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", n.Burst)
	}
	return nil
}

func validateHttpPaths(cfg *Config) error {
	if !strings.HasPrefix(cfg.Api.Prefix, "/") || strings.HasSuffix(cfg.Api.Prefix, "/") {
		return fmt.Errorf("prefix %q must start with '/' and not end with one", cfg.Api.Prefix)
	}
	if cfg.Metrics.Activated {
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			return fmt.Errorf("metrics path %q must start with '/'", cfg.Metrics.Path)
		}
		if strings.HasPrefix(cfg.Metrics.Path, cfg.Api.Prefix+"/") || cfg.Metrics.Path == cfg.Api.Prefix {
			return fmt.Errorf("metrics path %q collides with api prefix %q", cfg.Metrics.Path, cfg.Api.Prefix)
		}
	}
	return nil
}
