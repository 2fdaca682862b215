package ristretto

import (
	"slices"
	"testing"
	"time"

	"github.com/devilelephant/blacklist/cache"
)

var _ cache.Cache[string, bool] = (*Cache[bool])(nil)

func TestNew_Levels(t *testing.T) {
	t.Parallel()

	for _, level := range Levels() {
		t.Run(level, func(t *testing.T) {
			c, err := New[bool](level)
			if err != nil {
				t.Fatalf("New(%q): %v", level, err)
			}
			c.Close()
		})
	}

	for _, level := range []string{"", "Medium", " small", "huge"} {
		if c, err := New[bool](level); err == nil || c != nil {
			t.Errorf("New(%q) = %v, %v; want an error and no cache", level, c, err)
		}
	}

	if !slices.Contains(Levels(), "medium") {
		t.Errorf("Levels() = %v, the throttle relies on medium", Levels())
	}
}

// newBlocked returns a cache of blocked clients the way the throttle uses
// it: address keys, bool values, cost 1.
func newBlocked(t *testing.T) *Cache[bool] {
	t.Helper()
	c, err := New[bool]("small")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCache_BlockedClients(t *testing.T) {
	t.Parallel()

	c := newBlocked(t)
	c.Set("192.0.2.1", true, 1)
	c.Set("2001:db8::1", true, 1)
	c.Wait()

	testCases := []struct {
		client string
		want   bool
	}{
		{"192.0.2.1", true},
		{"2001:db8::1", true},
		{"192.0.2.2", false},
	}
	for _, tc := range testCases {
		if blocked, found := c.Get(tc.client); blocked != tc.want || found != tc.want {
			t.Errorf("Get(%q) = %v, %v; want %v", tc.client, blocked, found, tc.want)
		}
	}

	c.Set("192.0.2.1", false, 1)
	c.Wait()
	if blocked, found := c.Get("192.0.2.1"); !found || blocked {
		t.Errorf("overwritten entry = %v, %v; want false, true", blocked, found)
	}
}

func TestCache_BlockExpires(t *testing.T) {
	t.Parallel()

	c := newBlocked(t)
	blockFor := 200 * time.Millisecond
	if !c.SetWithTTL("198.51.100.7", true, 1, blockFor) {
		t.Fatal("SetWithTTL rejected the entry")
	}
	c.Wait()

	if blocked, _ := c.Get("198.51.100.7"); !blocked {
		t.Fatal("client not blocked right after SetWithTTL")
	}

	time.Sleep(blockFor + 100*time.Millisecond)
	if blocked, found := c.Get("198.51.100.7"); found || blocked {
		t.Errorf("client still blocked after %v: %v, %v", blockFor, blocked, found)
	}
}
