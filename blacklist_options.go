package blacklist

import (
	"io"
	"log/slog"

	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/registry"
)

type initializer struct {
	logger    *slog.Logger
	logOutput io.Writer
	journal   db.DbJournal
	source    func() registry.Source
}

type Option func(*initializer)

// WithLogger replaces the logger built from the log section.
func WithLogger(l *slog.Logger) Option {
	return func(i *initializer) {
		i.logger = l
	}
}

// WithLogOutput sets where the configured logger writes. Defaults to
// stderr.
func WithLogOutput(w io.Writer) Option {
	return func(i *initializer) {
		i.logOutput = w
	}
}

// WithJournal sets the rebuild journal, overriding the journal section.
func WithJournal(j db.DbJournal) Option {
	return func(i *initializer) {
		if j == nil {
			panic("journal cannot be nil")
		}
		i.journal = j
	}
}

// WithSource replaces the source directory. The refresh daemon only runs
// for sources that can report a signature.
func WithSource(f func() registry.Source) Option {
	return func(i *initializer) {
		i.source = f
	}
}
