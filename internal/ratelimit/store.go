package ratelimit

import (
	"sync"
	"time"
)

// Decision reports the outcome of a rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
}

// Store holds request timestamps per caller key. Take performs the whole
// purge-then-append sequence under one lock: splitting it into get/set would
// let two concurrent callers both claim the last slot.
type Store interface {
	// Take admits the request if fewer than max timestamps fall inside the
	// trailing window, recording now on admission.
	Take(key string, now time.Time, max int, window time.Duration) Decision
	// Sweep drops buckets with no timestamps inside the window and returns
	// how many buckets were removed.
	Sweep(now time.Time, window time.Duration) int
}

// MemoryStore is the process-local Store. All requests for a key must land
// on the same process for the window to be enforced globally.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string][]time.Time)}
}

func (s *MemoryStore) Take(key string, now time.Time, max int, window time.Duration) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := purge(s.buckets[key], now, window)

	if len(kept) >= max {
		s.buckets[key] = kept
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetAfter: window - now.Sub(kept[0]),
		}
	}

	kept = append(kept, now)
	s.buckets[key] = kept
	return Decision{
		Allowed:   true,
		Remaining: max - len(kept),
	}
}

func (s *MemoryStore) Sweep(now time.Time, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, stamps := range s.buckets {
		kept := purge(stamps, now, window)
		if len(kept) == 0 {
			delete(s.buckets, key)
			removed++
			continue
		}
		s.buckets[key] = kept
	}
	return removed
}

// Len reports the number of live buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func purge(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[idx:]...)
}
