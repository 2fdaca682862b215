// Package index builds immutable block index snapshots from raw source
// files.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devilelephant/blacklist/addr"
	"github.com/devilelephant/blacklist/ingest"
	"github.com/devilelephant/blacklist/trie"
	"github.com/google/uuid"
)

// ErrEmptySourceSet is returned in strict mode when no file matched the
// filter.
var ErrEmptySourceSet = errors.New("no source file matched the filter")

// Input is the raw material of a build: file path to content, plus an
// opaque marker describing the state of the backing data.
type Input struct {
	Files     map[string]string
	Signature string
}

// Options control how a snapshot is built.
type Options struct {
	Filter *ingest.Filter
	// Families lists the address families to index. Empty means both.
	Families []addr.Family
	// Strict turns "no matching file" into ErrEmptySourceSet.
	Strict bool
	// Now stamps BuiltAt. Defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Build ingests in and inserts every entry into fresh tries. The result
// depends only on in and opts apart from ID and BuiltAt.
func Build(in Input, opts Options) (*Snapshot, error) {
	if opts.Filter == nil {
		return nil, errors.New("index: a filter is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	families := opts.Families
	if len(families) == 0 {
		families = []addr.Family{addr.IPv4, addr.IPv6}
	}

	res := ingest.CollectEntries(in.Files, opts.Filter, logger)
	if opts.Strict && len(res.Files) == 0 {
		return nil, fmt.Errorf("%w: patterns %v over %d files", ErrEmptySourceSet, opts.Filter.Patterns(), len(in.Files))
	}

	builders := make(map[addr.Family]*trie.Builder, len(families))
	for _, f := range families {
		builders[f] = trie.NewBuilder(f)
	}

	dropped := len(res.Dropped)
	for _, e := range res.Entries {
		b, ok := builders[e.Key.Family()]
		if !ok {
			dropped++
			logger.Warn("dropped entry of unindexed family", "entry", e.Label, "family", e.Key.Family())
			continue
		}
		if err := b.Insert(e.Key, e.Label); err != nil {
			return nil, fmt.Errorf("index: insert %s: %w", e.Key, err)
		}
	}

	s := &Snapshot{
		ID:        uuid.NewString(),
		BuiltAt:   now().UTC(),
		Signature: in.Signature,
		Files:     res.Files,
		Lines:     res.Lines,
		Dropped:   dropped,
		tries:     make(map[addr.Family]*trie.Trie, len(builders)),
	}
	for f, b := range builders {
		t := b.Trie()
		s.tries[f] = t
		s.Entries += t.Len()
	}

	logger.Info("index built",
		"snapshot", s.ID,
		"files", len(s.Files),
		"entries", s.Entries,
		"dropped", s.Dropped)
	return s, nil
}

func familyError(key addr.Key) error {
	return fmt.Errorf("%w: %s addresses are not indexed", ErrAddressFamilyMismatch, key.Family())
}
