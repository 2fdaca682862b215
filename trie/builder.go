package trie

import (
	"errors"

	"github.com/devilelephant/blacklist/addr"
)

// ErrSealed is returned by Builder.Insert after Trie has been called.
var ErrSealed = errors.New("trie builder already sealed")

// Builder constructs a trie in place. It is not safe for concurrent use
// and must stay private to the goroutine building an index until Trie
// hands the result over.
type Builder struct {
	root   *node
	family addr.Family
	size   int
	sealed bool
}

// NewBuilder returns a builder for family f.
func NewBuilder(f addr.Family) *Builder {
	return &Builder{family: f}
}

// Insert attaches label at key's prefix, creating intermediate nodes as
// needed. A label already stored at the exact prefix is overwritten.
func (b *Builder) Insert(key addr.Key, label string) error {
	if b.sealed {
		return ErrSealed
	}
	if key.Family() != b.family {
		return (&Trie{family: b.family}).checkFamily(key)
	}
	if b.root == nil {
		b.root = &node{}
	}
	n := b.root
	for i := 0; i < key.Bits(); i++ {
		bit := key.BitAt(i)
		if n.child[bit] == nil {
			n.child[bit] = &node{}
		}
		n = n.child[bit]
	}
	if n.entry == nil {
		b.size++
	}
	n.entry = &Entry{Key: key, Label: label}
	return nil
}

// Len returns the number of distinct prefixes inserted so far.
func (b *Builder) Len() int { return b.size }

// Trie seals the builder and returns the finished trie.
func (b *Builder) Trie() *Trie {
	t := &Trie{root: b.root, family: b.family, size: b.size}
	b.root = nil
	b.sealed = true
	return t
}
