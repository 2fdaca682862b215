package ristretto

import (
	"fmt"
	"time"

	"github.com/devilelephant/blacklist/cache"
	"github.com/dgraph-io/ristretto/v2"
)

var _ cache.Cache[string, any] = (*Cache[any])(nil)

// Cache is a string keyed ristretto cache.
type Cache[V any] struct {
	cache *ristretto.Cache[string, V]
}

func (rc *Cache[V]) Get(key string) (V, bool) {
	return rc.cache.Get(key)
}

func (rc *Cache[V]) Set(key string, value V, cost int64) bool {
	return rc.cache.Set(key, value, cost)
}

func (rc *Cache[V]) SetWithTTL(key string, value V, cost int64, ttl time.Duration) bool {
	return rc.cache.SetWithTTL(key, value, cost, ttl)
}

// Wait blocks until buffered writes are applied. Ristretto applies Set
// asynchronously.
func (rc *Cache[V]) Wait() {
	rc.cache.Wait()
}

func (rc *Cache[V]) Close() {
	rc.cache.Close()
}

type sizing struct {
	numCounters int64
	maxCost     int64
}

// levels maps a size name to ristretto sizing. NumCounters is ten times
// the expected number of items, and every item here has cost 1.
var levels = map[string]sizing{
	"small":      {numCounters: 1e4, maxCost: 1e3},
	"medium":     {numCounters: 1e5, maxCost: 1e4},
	"large":      {numCounters: 1e6, maxCost: 1e5},
	"very-large": {numCounters: 1e7, maxCost: 1e6},
}

// Levels lists the accepted size names.
func Levels() []string {
	return []string{"small", "medium", "large", "very-large"}
}

func New[V any](level string) (*Cache[V], error) {
	s, ok := levels[level]
	if !ok {
		return nil, fmt.Errorf("unknown cache level %q", level)
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, V]{
		NumCounters: s.numCounters,
		MaxCost:     s.maxCost,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, err
	}
	return &Cache[V]{cache: c}, nil
}
