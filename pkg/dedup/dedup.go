// Package dedup drops QoS 1 redeliveries by remembering recent message IDs.
package dedup

import (
	"sync"
	"time"
)

const (
	DefaultTTL = 10 * time.Minute
	DefaultMax = 10000
)

type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time // id -> expiry
	now  func() time.Time
}

func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if max <= 0 {
		max = DefaultMax
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time), now: time.Now}
}

// ShouldProcess reports whether id is new within the TTL, and records it.
// An empty id cannot be deduplicated and is always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		d.evict(now)
	}
	return true
}

// Len is the number of remembered ids.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// evict drops expired ids, then the oldest ones until the cap holds.
func (d *Deduper) evict(now time.Time) {
	for k, exp := range d.seen {
		if !now.Before(exp) {
			delete(d.seen, k)
		}
	}
	for len(d.seen) > d.max {
		var oldest string
		var at time.Time
		for k, exp := range d.seen {
			if oldest == "" || exp.Before(at) {
				oldest, at = k, exp
			}
		}
		delete(d.seen, oldest)
	}
}
