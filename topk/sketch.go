// Package topk finds the heaviest clients of the query API over a sliding
// window of requests.
package topk

import (
	"sync"
	"time"

	"github.com/keilerkonzept/topk/sliding"
)

// SketchParams configures a TopKSketch.
type SketchParams struct {
	K          int
	WindowSize int // ticks per window
	Width      int
	Depth      int
	TickSize   uint64 // requests per tick
	// MaxSharePercent is the share of a full window a single item may take
	// before it is reported.
	MaxSharePercent int
	// ActivationRPS gates reporting: below this request rate nothing is
	// reported however skewed the traffic.
	ActivationRPS int
}

// TopKSketch is a thread-safe sliding top-k sketch that ticks every
// TickSize requests.
type TopKSketch struct {
	mu            sync.Mutex
	sketch        *sliding.Sketch
	tickSize      uint64
	tickReq       uint64
	threshold     uint32
	activationRPS int
	lastTick      time.Time
	now           func() time.Time
}

func New(params SketchParams) *TopKSketch {
	return newWithClock(params, time.Now)
}

func newWithClock(params SketchParams, now func() time.Time) *TopKSketch {
	if params.TickSize == 0 {
		params.TickSize = 1000
	}
	if params.WindowSize < 1 {
		params.WindowSize = 1
	}
	windowCapacity := uint64(params.WindowSize) * params.TickSize

	return &TopKSketch{
		sketch: sliding.New(params.K, params.WindowSize,
			sliding.WithWidth(params.Width),
			sliding.WithDepth(params.Depth)),
		tickSize:      params.TickSize,
		threshold:     uint32(windowCapacity * uint64(params.MaxSharePercent) / 100),
		activationRPS: params.ActivationRPS,
		lastTick:      now(),
		now:           now,
	}
}

// ProcessTick counts one request from item. When the request completes a
// tick it returns the items above their share, if the request rate over
// that tick reached ActivationRPS.
func (cs *TopKSketch) ProcessTick(item string) []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.sketch.Incr(item)
	cs.tickReq++
	if cs.tickReq < cs.tickSize {
		return nil
	}

	now := cs.now()
	elapsed := now.Sub(cs.lastTick)
	cs.lastTick = now
	cs.tickReq = 0

	var heavy []string
	if cs.active(elapsed) {
		for _, it := range cs.sketch.SortedSlice() {
			if it.Count <= cs.threshold {
				break // sorted by count
			}
			heavy = append(heavy, it.Item)
		}
	}
	cs.sketch.Tick()
	return heavy
}

func (cs *TopKSketch) active(elapsed time.Duration) bool {
	if elapsed <= 0 {
		return true
	}
	rps := float64(cs.tickSize) / elapsed.Seconds()
	return rps >= float64(cs.activationRPS)
}

// Threshold is the per-window count above which an item is reported.
func (cs *TopKSketch) Threshold() uint32 {
	return cs.threshold
}
