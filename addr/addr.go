// Package addr normalizes textual IP addresses and CIDR ranges into
// fixed-width bit keys used by the prefix trie.
package addr

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrMalformedAddress is returned when a text cannot be parsed as an IP
// address or a CIDR range.
var ErrMalformedAddress = errors.New("malformed address")

// Family is the address family of a key. Its value is the IP version.
type Family uint8

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

// Width returns the number of address bits of the family.
func (f Family) Width() int {
	switch f {
	case IPv4:
		return 32
	case IPv6:
		return 128
	}
	return 0
}

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return fmt.Sprintf("family(%d)", uint8(f))
}

// ParseFamily parses "ipv4" or "ipv6" (case-insensitive).
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ipv4", "4":
		return IPv4, nil
	case "ipv6", "6":
		return IPv6, nil
	}
	return 0, fmt.Errorf("unknown address family %q", s)
}

// Key is an address together with a prefix length.
//
// The address bits beyond the prefix length do not take part in matching
// but are kept as given, so String reproduces the parsed text in canonical
// form. Two keys denote the same trie position iff their Masked forms are
// equal.
type Key struct {
	ip   netip.Addr
	bits int
}

// Parse accepts "a.b.c.d", "a.b.c.d/n" and the equivalent IPv6 forms.
// An address without a prefix is an exact host match: its prefix length is
// the full bit width of its family, never zero.
func Parse(text string) (Key, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty input", ErrMalformedAddress)
	}
	if strings.IndexByte(s, '/') < 0 {
		return parseAddr(s)
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrMalformedAddress, s, err)
	}
	return Key{ip: p.Addr(), bits: p.Bits()}, nil
}

// ParseHost parses a single host address as used by lookups. A prefix
// suffix is rejected.
func ParseHost(text string) (Key, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty input", ErrMalformedAddress)
	}
	if strings.IndexByte(s, '/') >= 0 {
		return Key{}, fmt.Errorf("%w: %q: host address expected, got a prefix", ErrMalformedAddress, s)
	}
	return parseAddr(s)
}

func parseAddr(s string) (Key, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrMalformedAddress, s, err)
	}
	if ip.Zone() != "" {
		return Key{}, fmt.Errorf("%w: %q: zoned addresses are not supported", ErrMalformedAddress, s)
	}
	return FromAddr(ip), nil
}

// FromAddr returns the host key of ip. IPv4-mapped IPv6 addresses are
// unmapped to IPv4.
func FromAddr(ip netip.Addr) Key {
	ip = ip.Unmap().WithZone("")
	return Key{ip: ip, bits: ip.BitLen()}
}

// FromPrefix returns the key of p, keeping the address bits as given.
func FromPrefix(p netip.Prefix) Key {
	return Key{ip: p.Addr(), bits: p.Bits()}
}

// IsValid reports whether k was produced by a successful parse.
func (k Key) IsValid() bool { return k.ip.IsValid() }

// Family returns the address family of k.
func (k Key) Family() Family {
	if k.ip.Is4() {
		return IPv4
	}
	if k.ip.Is6() {
		return IPv6
	}
	return 0
}

// Bits returns the prefix length.
func (k Key) Bits() int { return k.bits }

// Width returns the bit width of the key's family.
func (k Key) Width() int { return k.ip.BitLen() }

// IsHost reports whether k matches exactly one address.
func (k Key) IsHost() bool { return k.bits == k.ip.BitLen() }

// Addr returns the address part of k, unmasked.
func (k Key) Addr() netip.Addr { return k.ip }

// Prefix returns k as a netip.Prefix, unmasked.
func (k Key) Prefix() netip.Prefix { return netip.PrefixFrom(k.ip, k.bits) }

// BitAt returns bit i of the address, counting from the most significant
// bit. i must be in [0, Width()).
func (k Key) BitAt(i int) uint8 {
	if k.ip.Is4() {
		b := k.ip.As4()
		return (b[i>>3] >> (7 - uint(i&7))) & 1
	}
	b := k.ip.As16()
	return (b[i>>3] >> (7 - uint(i&7))) & 1
}

// Masked returns k with all bits beyond the prefix length cleared.
func (k Key) Masked() Key {
	return Key{ip: k.Prefix().Masked().Addr(), bits: k.bits}
}

// Contains reports whether the address of other lies inside the network
// denoted by k.
func (k Key) Contains(other Key) bool {
	return k.Prefix().Masked().Contains(other.ip)
}

// String renders host keys as a bare address and all other keys in CIDR
// notation.
func (k Key) String() string {
	if !k.ip.IsValid() {
		return "invalid"
	}
	if k.IsHost() {
		return k.ip.String()
	}
	return k.Prefix().String()
}
