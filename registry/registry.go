// Package registry holds the snapshot serving live lookups and swaps in
// freshly built ones without blocking readers.
//
// Readers perform a single atomic pointer load per lookup. At most one
// rebuild runs at a time; a second request while one is in flight is
// rejected with ErrBusy rather than queued.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/devilelephant/blacklist/index"
)

var (
	// ErrBusy is returned when a rebuild is requested while one is running.
	ErrBusy = errors.New("already currently loading")
	// ErrIngestionUnavailable wraps failures of the Source.
	ErrIngestionUnavailable = errors.New("ingestion source unavailable")
	// ErrNoSnapshot is returned by lookups before the first successful build.
	ErrNoSnapshot = errors.New("no snapshot loaded yet")
)

// State is the lifecycle position of a Registry.
type State int

const (
	StateEmpty State = iota
	StateReady
	StateBuilding
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReady:
		return "ready"
	case StateBuilding:
		return "building"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source supplies the raw material of a rebuild.
type Source interface {
	Fetch(ctx context.Context) (index.Input, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (index.Input, error)

func (f SourceFunc) Fetch(ctx context.Context) (index.Input, error) { return f(ctx) }

// Static is a Source returning fixed content. Mostly useful in tests and
// for one-shot CLI builds.
type Static map[string]string

func (s Static) Fetch(context.Context) (index.Input, error) {
	return index.Input{Files: s}, nil
}

// Event describes the outcome of one rebuild attempt.
type Event struct {
	Trigger  string
	Started  time.Time
	Duration time.Duration
	// Snapshot is the published snapshot, nil on failure.
	Snapshot *index.Snapshot
	Err      error
}

// Hook observes rebuild attempts. Hooks run synchronously on the rebuild
// goroutine after publication and must not call TryRebuild.
type Hook func(Event)

// Option configures a Registry.
type Option func(*Registry)

// WithHook registers h to be called after every rebuild attempt.
func WithHook(h Hook) Option {
	return func(r *Registry) { r.hooks = append(r.hooks, h) }
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// Registry publishes index snapshots.
type Registry struct {
	current  atomic.Pointer[index.Snapshot]
	building atomic.Bool
	opts     index.Options
	hooks    []Hook
	logger   *slog.Logger
}

// New returns an empty registry building snapshots with opts.
func New(opts index.Options, options ...Option) *Registry {
	r := &Registry{opts: opts}
	for _, o := range options {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.opts.Logger == nil {
		r.opts.Logger = r.logger
	}
	return r
}

// Lookup answers text against the current snapshot.
func (r *Registry) Lookup(text string) (index.Match, error) {
	s := r.current.Load()
	if s == nil {
		return index.Match{IP: text}, ErrNoSnapshot
	}
	return s.Lookup(text)
}

// Current returns the serving snapshot or nil when Empty.
func (r *Registry) Current() *index.Snapshot {
	return r.current.Load()
}

// State reports the lifecycle position. A Building registry may still
// serve its previous snapshot, see Current.
func (r *Registry) State() State {
	if r.building.Load() {
		return StateBuilding
	}
	if r.current.Load() == nil {
		return StateEmpty
	}
	return StateReady
}

// TryRebuild fetches from src, builds a snapshot and publishes it. It
// returns ErrBusy immediately when another rebuild is running. On any
// failure the previously published snapshot keeps serving.
func (r *Registry) TryRebuild(ctx context.Context, src Source) (*index.Snapshot, error) {
	if !r.building.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return r.rebuild(ctx, src)
}

// Start runs a rebuild in the background. It returns ErrBusy when one is
// already running, nil when the rebuild was started. If done is not nil it
// receives the outcome exactly once.
func (r *Registry) Start(ctx context.Context, src Source, done func(*index.Snapshot, error)) error {
	if !r.building.CompareAndSwap(false, true) {
		return ErrBusy
	}
	go func() {
		s, err := r.rebuild(ctx, src)
		if done != nil {
			done(s, err)
		}
	}()
	return nil
}

// rebuild must be called with the building flag held.
func (r *Registry) rebuild(ctx context.Context, src Source) (*index.Snapshot, error) {
	ev := Event{Trigger: TriggerFrom(ctx), Started: time.Now()}
	defer func() {
		ev.Duration = time.Since(ev.Started)
		r.building.Store(false)
		for _, h := range r.hooks {
			h(ev)
		}
	}()

	logger := r.logger.With("trigger", ev.Trigger)
	logger.Info("rebuild started")

	in, err := src.Fetch(ctx)
	if err != nil {
		ev.Err = fmt.Errorf("%w: %w", ErrIngestionUnavailable, err)
		logger.Error("rebuild failed", "error", ev.Err)
		return nil, ev.Err
	}

	s, err := index.Build(in, r.opts)
	if err != nil {
		ev.Err = fmt.Errorf("rebuild: %w", err)
		logger.Error("rebuild failed", "error", ev.Err)
		return nil, ev.Err
	}

	r.current.Store(s)
	ev.Snapshot = s
	logger.Info("snapshot published", "snapshot", s.ID, "entries", s.Entries, "elapsed", time.Since(ev.Started))
	return s, nil
}

type triggerKey struct{}

// WithTrigger names the cause of a rebuild, e.g. "startup", "timer",
// "api" or "sighup".
func WithTrigger(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, triggerKey{}, name)
}

// TriggerFrom returns the trigger stored by WithTrigger or "manual".
func TriggerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(triggerKey{}).(string); ok && v != "" {
		return v
	}
	return "manual"
}
