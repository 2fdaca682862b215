// Package trie implements a binary prefix trie keyed by address bits with
// longest-prefix-match lookup.
//
// A *Trie is immutable once handed out: Insert returns a new trie sharing
// unchanged subtrees with the receiver, and a Builder hands its structure
// over exactly once. Any number of goroutines may call Lookup on the same
// Trie without synchronization.
package trie

import (
	"errors"
	"fmt"
	"iter"

	"github.com/devilelephant/blacklist/addr"
)

// ErrAddressFamilyMismatch is returned when a key's family differs from
// the family of the trie.
var ErrAddressFamilyMismatch = errors.New("address family mismatch")

// Entry is a prefix together with the label of the source it came from.
type Entry struct {
	Key   addr.Key
	Label string
}

type node struct {
	child [2]*node
	entry *Entry // nil when no entry terminates at this prefix
}

// Trie is a persistent binary trie for a single address family. The zero
// value is not usable; use New or a Builder.
type Trie struct {
	root   *node
	family addr.Family
	size   int
}

// New returns an empty trie for family f.
func New(f addr.Family) *Trie {
	return &Trie{family: f}
}

// Family returns the address family of the trie.
func (t *Trie) Family() addr.Family { return t.family }

// Len returns the number of distinct prefixes stored.
func (t *Trie) Len() int { return t.size }

// Insert returns a new trie with label attached at key's prefix. The
// receiver is left untouched. If the exact prefix is already present the
// new label replaces the old one.
func (t *Trie) Insert(key addr.Key, label string) (*Trie, error) {
	if err := t.checkFamily(key); err != nil {
		return nil, err
	}
	e := &Entry{Key: key, Label: label}
	root, added := insertPersist(t.root, key, 0, e)
	size := t.size
	if added {
		size++
	}
	return &Trie{root: root, family: t.family, size: size}, nil
}

// insertPersist copies every node on the path to the key's prefix.
func insertPersist(n *node, key addr.Key, depth int, e *Entry) (*node, bool) {
	c := &node{}
	if n != nil {
		*c = *n
	}
	if depth == key.Bits() {
		added := c.entry == nil
		c.entry = e
		return c, added
	}
	b := key.BitAt(depth)
	child, added := insertPersist(c.child[b], key, depth+1, e)
	c.child[b] = child
	return c, added
}

// Lookup walks the trie along every bit of key's address and returns the
// entry stored at the deepest prefix on that path. The prefix length of
// key is ignored: queries are host addresses.
func (t *Trie) Lookup(key addr.Key) (Entry, bool, error) {
	if err := t.checkFamily(key); err != nil {
		return Entry{}, false, err
	}
	var best *Entry
	width := key.Width()
	n := t.root
	for i := 0; n != nil; i++ {
		if n.entry != nil {
			best = n.entry
		}
		if i == width {
			break
		}
		n = n.child[key.BitAt(i)]
	}
	if best == nil {
		return Entry{}, false, nil
	}
	return *best, true, nil
}

// All yields the stored entries in bit order, shorter prefixes before the
// longer prefixes they contain.
func (t *Trie) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		walk(t.root, yield)
	}
}

func walk(n *node, yield func(Entry) bool) bool {
	if n == nil {
		return true
	}
	if n.entry != nil && !yield(*n.entry) {
		return false
	}
	return walk(n.child[0], yield) && walk(n.child[1], yield)
}

func (t *Trie) checkFamily(key addr.Key) error {
	if key.Family() != t.family {
		return fmt.Errorf("%w: trie is %s, key %s is %s", ErrAddressFamilyMismatch, t.family, key, key.Family())
	}
	return nil
}
