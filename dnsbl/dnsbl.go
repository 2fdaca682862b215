// Package dnsbl answers DNS blocklist queries against the serving
// snapshot.
//
// An IPv4 address a.b.c.d is queried as d.c.b.a.<zone>, an IPv6 address
// as its 32 nibbles in reverse order followed by the zone. A listed
// address resolves to 127.0.0.2 with its source line as TXT record, an
// unlisted one to NXDOMAIN.
package dnsbl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devilelephant/blacklist/addr"
	"github.com/devilelephant/blacklist/config"
	"github.com/devilelephant/blacklist/index"
	"github.com/devilelephant/blacklist/registry"
	"github.com/miekg/dns"
)

// ListedAddr is the A record returned for listed addresses.
var ListedAddr = net.IPv4(127, 0, 0, 2).To4()

// maxTxtLen is the longest character-string a TXT record can carry.
const maxTxtLen = 255

const (
	defaultStartTimeout = 5 * time.Second
	abortTimeout        = time.Second
)

// Lookuper resolves a textual address against the serving index.
type Lookuper interface {
	Lookup(text string) (index.Match, error)
}

// Observer is told the outcome of every address query.
type Observer func(matched bool, err error)

type Option func(*Server)

// WithObserver registers fn to be called after each address lookup.
func WithObserver(fn Observer) Option {
	return func(s *Server) { s.observe = fn }
}

// Server is a DNS daemon serving the blocklist zone over UDP and TCP.
type Server struct {
	provider *config.Provider
	lookup   Lookuper
	logger   *slog.Logger
	observe  Observer
	// startTimeout bounds how long Start waits for both listeners.
	startTimeout time.Duration

	mu      sync.Mutex
	udp     *dns.Server
	tcp     *dns.Server
	udpAddr net.Addr
}

func New(provider *config.Provider, lookup Lookuper, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		provider: provider,
		lookup:   lookup,
		logger:   logger.With("component", "dnsbl"),
		observe:  func(bool, error) {},

		startTimeout: defaultStartTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Name() string { return "dnsbl" }

// Start binds UDP and TCP listeners on the configured address and returns
// once both are serving. With port 0 the TCP listener takes the port the
// UDP socket was given.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.udp != nil {
		return errors.New("dnsbl: already started")
	}

	listen := s.provider.Get().Dnsbl.Addr
	pc, err := net.ListenPacket("udp", listen)
	if err != nil {
		return fmt.Errorf("dnsbl: listen udp %s: %w", listen, err)
	}
	ln, err := net.Listen("tcp", pc.LocalAddr().String())
	if err != nil {
		pc.Close()
		return fmt.Errorf("dnsbl: listen tcp %s: %w", pc.LocalAddr(), err)
	}

	started := make(chan struct{}, 2)
	notify := func() { started <- struct{}{} }
	s.udp = &dns.Server{PacketConn: pc, Handler: s, NotifyStartedFunc: notify}
	s.tcp = &dns.Server{Listener: ln, Handler: s, NotifyStartedFunc: notify}
	s.udpAddr = pc.LocalAddr()

	for _, srv := range []*dns.Server{s.udp, s.tcp} {
		go func() {
			if err := srv.ActivateAndServe(); err != nil {
				s.logger.Error("DNS listener stopped", "error", err)
			}
		}()
	}

	timeout := time.After(s.startTimeout)
	for range 2 {
		select {
		case <-started:
		case <-timeout:
			s.abortStart(pc, ln)
			return errors.New("dnsbl: listeners did not start in time")
		}
	}
	s.logger.Info("DNS blocklist listening", "addr", s.udpAddr.String(), "zone", s.zone())
	return nil
}

// abortStart releases the listeners of a failed Start. The server never
// calls Stop on a daemon whose Start failed. Must be called with mu held.
func (s *Server) abortStart(pc net.PacketConn, ln net.Listener) {
	ctx, cancel := context.WithTimeout(context.Background(), abortTimeout)
	defer cancel()
	// ShutdownContext refuses servers that have not reported started yet,
	// closing the sockets ends their serve loops as well.
	s.udp.ShutdownContext(ctx)
	s.tcp.ShutdownContext(ctx)
	pc.Close()
	ln.Close()
	s.udp, s.tcp, s.udpAddr = nil, nil, nil
}

// Addr returns the bound UDP address, nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.udpAddr
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	udp, tcp := s.udp, s.tcp
	s.udp, s.tcp = nil, nil
	s.mu.Unlock()
	if udp == nil {
		return nil
	}

	s.logger.Info("Stopping DNS blocklist")
	return errors.Join(udp.ShutdownContext(ctx), tcp.ShutdownContext(ctx))
}

func (s *Server) ServeDNS(w dns.ResponseWriter, r *dns.Msg) {
	m := s.Answer(r)
	if err := w.WriteMsg(m); err != nil {
		s.logger.Debug("Failed to write DNS response", "error", err)
	}
}

// Answer builds the response to a query.
func (s *Server) Answer(r *dns.Msg) *dns.Msg {
	m := new(dns.Msg)
	switch {
	case r.Opcode != dns.OpcodeQuery:
		return m.SetRcode(r, dns.RcodeNotImplemented)
	case len(r.Question) != 1:
		return m.SetRcode(r, dns.RcodeFormatError)
	}
	m.SetReply(r)

	q := r.Question[0]
	cfg := s.provider.Get().Dnsbl
	zone := dns.CanonicalName(cfg.Zone)
	name := dns.CanonicalName(q.Name)
	if !dns.IsSubDomain(zone, name) {
		m.Rcode = dns.RcodeRefused
		return m
	}
	m.Authoritative = true

	rel := strings.TrimSuffix(strings.TrimSuffix(name, zone), ".")
	if rel == "" {
		return m
	}

	text, ok := reverseName(rel)
	if !ok {
		s.observe(false, addr.ErrMalformedAddress)
		m.Rcode = dns.RcodeNameError
		return m
	}

	match, err := s.lookup.Lookup(text)
	s.observe(match.Matched, err)
	switch {
	case errors.Is(err, registry.ErrNoSnapshot):
		m.Rcode = dns.RcodeServerFailure
		return m
	case err != nil:
		s.logger.Debug("DNS lookup rejected", "name", name, "error", err)
		m.Rcode = dns.RcodeNameError
		return m
	case !match.Matched:
		m.Rcode = dns.RcodeNameError
		return m
	}

	hdr := func(t uint16) dns.RR_Header {
		return dns.RR_Header{Name: q.Name, Rrtype: t, Class: dns.ClassINET, Ttl: cfg.Ttl}
	}
	if q.Qtype == dns.TypeA || q.Qtype == dns.TypeANY {
		m.Answer = append(m.Answer, &dns.A{Hdr: hdr(dns.TypeA), A: ListedAddr})
	}
	if q.Qtype == dns.TypeTXT || q.Qtype == dns.TypeANY {
		m.Answer = append(m.Answer, &dns.TXT{Hdr: hdr(dns.TypeTXT), Txt: splitTxt(match.Label)})
	}
	return m
}

func (s *Server) zone() string {
	return dns.CanonicalName(s.provider.Get().Dnsbl.Zone)
}

// reverseName turns the labels left of the zone back into an address.
// Four decimal labels are an IPv4 address, 32 hex nibbles an IPv6 one.
func reverseName(rel string) (string, bool) {
	labels := strings.Split(rel, ".")
	switch len(labels) {
	case 4:
		var b [4]byte
		for i, l := range labels {
			n, err := strconv.ParseUint(l, 10, 8)
			if err != nil || (len(l) > 1 && l[0] == '0') {
				return "", false
			}
			b[3-i] = byte(n)
		}
		return netip.AddrFrom4(b).String(), true
	case 32:
		var b [16]byte
		for i, l := range labels {
			if len(l) != 1 {
				return "", false
			}
			n, err := strconv.ParseUint(l, 16, 4)
			if err != nil {
				return "", false
			}
			pos := 31 - i
			if pos%2 == 0 {
				b[pos/2] |= byte(n) << 4
			} else {
				b[pos/2] |= byte(n)
			}
		}
		return netip.AddrFrom16(b).String(), true
	}
	return "", false
}

func splitTxt(s string) []string {
	if s == "" {
		return []string{""}
	}
	var out []string
	for len(s) > maxTxtLen {
		out = append(out, s[:maxTxtLen])
		s = s[maxTxtLen:]
	}
	return append(out, s)
}
