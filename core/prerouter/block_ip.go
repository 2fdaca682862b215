package prerouter

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/devilelephant/blacklist/core"
	"github.com/devilelephant/blacklist/topk"
)

const defaultBlockCost = 1 // cost of one blocked client in the cache

// ClientIP returns the address of the client. When proxyHeader is set and
// present with a valid address, its first entry wins over RemoteAddr.
func ClientIP(r *http.Request, proxyHeader string) string {
	if proxyHeader != "" {
		if v := r.Header.Get(proxyHeader); v != "" {
			first, _, _ := strings.Cut(v, ",")
			first = strings.TrimSpace(first)
			if a, err := netip.ParseAddr(first); err == nil {
				return a.Unmap().String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return ip
}

// BlockIp is a circuit breaker against clients flooding the query API:
// a client taking more than its share of a sliding window of requests is
// answered 429 for the throttle block duration. It is not a quota system.
type BlockIp struct {
	app    *core.App
	sketch *topk.TopKSketch
}

// sketchLevels are the presets selectable with [throttle] level. They
// balance memory against detection accuracy.
//   - "low":    ~10 KB. Low traffic (< 50 RPS), less accurate.
//   - "medium": ~120 KB. Most deployments (50-500 RPS).
//   - "high":   ~640 KB. High traffic (> 500 RPS).
var sketchLevels = map[string]topk.SketchParams{
	"low": {
		K:               2,
		WindowSize:      5,
		Width:           256,
		Depth:           2,
		TickSize:        100,
		MaxSharePercent: 30,
		ActivationRPS:   10,
	},
	"medium": {
		K:               3,
		WindowSize:      10,
		Width:           1024,
		Depth:           3,
		TickSize:        100,
		MaxSharePercent: 20,
		ActivationRPS:   50,
	},
	"high": {
		K:               5,
		WindowSize:      10,
		Width:           4096,
		Depth:           4,
		TickSize:        200,
		MaxSharePercent: 10,
		ActivationRPS:   500,
	},
}

// NewBlockIp creates the middleware for the configured throttle level.
// The level is checked by config.Validate; an unknown one falls back to
// medium.
func NewBlockIp(app *core.App) *BlockIp {
	params, ok := sketchLevels[app.Config().Throttle.Level]
	if !ok {
		params = sketchLevels["medium"]
	}
	return &BlockIp{
		app:    app,
		sketch: topk.New(params),
	}
}

func (b *BlockIp) Execute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.IsEnabled() {
			ip := ClientIP(r, b.app.Config().Server.ClientIpProxyHeader)
			if b.IsBlocked(ip) {
				core.WriteErrorIpBlocked(w)
				return
			}
			b.Process(ip)
		}

		next.ServeHTTP(w, r)
	})
}

// IsEnabled reports whether throttling is activated and a cache is set.
func (b *BlockIp) IsEnabled() bool {
	return b.app.Config().Throttle.Activated && b.app.Cache() != nil
}

// IsBlocked checks if ip is currently blocked.
func (b *BlockIp) IsBlocked(ip string) bool {
	_, found := b.app.Cache().Get(ip)
	return found
}

// Block adds ip to the blocked clients for the configured block duration.
func (b *BlockIp) Block(ip string) bool {
	ttl := b.app.Config().Throttle.BlockDuration.Duration
	if !b.app.Cache().SetWithTTL(ip, true, defaultBlockCost, ttl) {
		b.app.Logger().Error("failed to block IP", "ip", ip)
		return false
	}
	b.app.Logger().Info("IP blocked", "ip", ip, "duration", ttl)
	return true
}

// Process counts one request of ip and blocks the clients the sketch
// reports as heavy hitters.
//
// Blocking an IP several times is harmless: the cache merges writes to
// the same key.
func (b *BlockIp) Process(ip string) {
	heavy := b.sketch.ProcessTick(ip)
	if len(heavy) == 0 {
		return
	}
	b.app.Logger().Info("IPs to be blocked", "ips", heavy)
	for _, h := range heavy {
		b.Block(h)
	}
}
