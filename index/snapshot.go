package index

import (
	"time"

	"github.com/devilelephant/blacklist/addr"
	"github.com/devilelephant/blacklist/trie"
)

// ErrAddressFamilyMismatch is returned when a query's family has no trie
// in the snapshot.
var ErrAddressFamilyMismatch = trie.ErrAddressFamilyMismatch

// Snapshot is a fully built, immutable block index. It is safe for
// concurrent use by any number of readers.
type Snapshot struct {
	ID        string
	BuiltAt   time.Time
	Signature string
	// Entries is the number of distinct prefixes across all families.
	Entries int
	// Files lists the source files that matched the filter.
	Files []string
	// Lines counts the address lines read, Dropped those that were unusable.
	Lines   int
	Dropped int

	tries map[addr.Family]*trie.Trie
}

// Match is the answer to a lookup.
type Match struct {
	IP      string `json:"ip"`
	Matched bool   `json:"matched"`
	// Label is the raw source line of the matching entry.
	Label string `json:"result"`
	// Prefix is the canonical form of the matching entry.
	Prefix string `json:"prefix,omitempty"`
}

// Lookup parses text as a host address and returns the most specific
// entry containing it.
func (s *Snapshot) Lookup(text string) (Match, error) {
	key, err := addr.ParseHost(text)
	if err != nil {
		return Match{IP: text}, err
	}
	return s.LookupKey(key)
}

// LookupKey is Lookup for an already parsed key.
func (s *Snapshot) LookupKey(key addr.Key) (Match, error) {
	m := Match{IP: key.Addr().String()}
	t, ok := s.tries[key.Family()]
	if !ok {
		return m, familyError(key)
	}
	e, found, err := t.Lookup(key)
	if err != nil || !found {
		return m, err
	}
	m.Matched = true
	m.Label = e.Label
	m.Prefix = e.Key.String()
	return m, nil
}

// Families returns the address families indexed, IPv4 first.
func (s *Snapshot) Families() []addr.Family {
	var out []addr.Family
	for _, f := range []addr.Family{addr.IPv4, addr.IPv6} {
		if _, ok := s.tries[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Contains reports whether family f is indexed.
func (s *Snapshot) Contains(f addr.Family) bool {
	_, ok := s.tries[f]
	return ok
}

// Len returns the number of prefixes indexed for family f.
func (s *Snapshot) Len(f addr.Family) int {
	if t, ok := s.tries[f]; ok {
		return t.Len()
	}
	return 0
}
