package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// Store is an in-memory key/value cache with per-entry expiry. Values are
// held as-is (no serialization); the cache is volatile and scoped to the
// process lifetime. Expired entries are logically absent: they are removed
// lazily on Get and swept periodically in the background.
type Store struct {
	mu        sync.RWMutex
	entries   map[string]entry
	sweepFreq time.Duration
	stopSweep chan struct{}
	sweepOnce sync.Once
	hits      int64
	misses    int64
}

type entry struct {
	value     interface{}
	createdAt time.Time
	ttl       time.Duration
	size      int64
}

// Stats reports cache statistics for display and debugging
type Stats struct {
	TotalEntries    int     `json:"total_entries"`
	ExpiredEntries  int     `json:"expired_entries"`
	ApproximateSize int64   `json:"approximate_size"`
	Hits            int64   `json:"hits"`
	Misses          int64   `json:"misses"`
	HitRate         float64 `json:"hit_rate"`
}

// NewStore creates a cache and starts the background sweep goroutine.
// Call Close to stop it.
func NewStore(sweepFreq time.Duration) *Store {
	s := &Store{
		entries:   make(map[string]entry),
		sweepFreq: sweepFreq,
		stopSweep: make(chan struct{}),
	}

	go s.backgroundSweep()

	return s
}

// Set stores a value under key with the given TTL, replacing any previous
// entry. Keys must encode the full query shape so distinct queries never
// collide.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{
		value:     value,
		createdAt: time.Now(),
		ttl:       ttl,
		size:      approximateSize(value),
	}
}

// Get returns the value for key if it has not expired. An expired entry is
// removed as a side effect. Absence is a normal result, not an error.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		return nil, false
	}

	if time.Since(e.createdAt) >= e.ttl {
		delete(s.entries, key)
		s.misses++

		return nil, false
	}

	s.hits++

	return e.value, true
}

// Delete removes an entry unconditionally
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Clear removes all entries and resets hit/miss counters
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]entry)
	s.hits = 0
	s.misses = 0
}

// Cleanup sweeps all expired entries and returns the count removed
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0

	for key, e := range s.entries {
		if now.Sub(e.createdAt) >= e.ttl {
			delete(s.entries, key)
			removed++
		}
	}

	return removed
}

// GetStats returns entry counts and the approximate byte size of held values.
// ExpiredEntries counts entries that have expired but not yet been swept.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	stats := Stats{
		TotalEntries: len(s.entries),
		Hits:         s.hits,
		Misses:       s.misses,
	}

	for _, e := range s.entries {
		stats.ApproximateSize += e.size
		if now.Sub(e.createdAt) >= e.ttl {
			stats.ExpiredEntries++
		}
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	return stats
}

// Close stops the background sweep goroutine
func (s *Store) Close() error {
	s.sweepOnce.Do(func() {
		close(s.stopSweep)
	})

	return nil
}

// backgroundSweep runs periodic cleanup of expired entries
func (s *Store) backgroundSweep() {
	ticker := time.NewTicker(s.sweepFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stopSweep:
			return
		}
	}
}

// approximateSize estimates the byte size of a value via its JSON encoding
func approximateSize(value interface{}) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		return 0
	}

	return int64(len(data))
}
