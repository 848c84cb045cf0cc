package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shelfsight/shelfsight/server/internal/compute"
)

// maxHistoryLen caps superseded reports kept regardless of their age. Each
// one holds a full product table.
const maxHistoryLen = 20

// Entry is a report together with the time it was stored and its generation.
type Entry struct {
	Report     *compute.Report
	UpdatedAt  time.Time
	Generation uint64
}

// Store is a thread-safe holder of the current report. Previous reports are
// kept in history until a background goroutine (Run) evicts the ones older
// than the TTL, and at most maxHistoryLen of them are kept. The current
// report is never evicted.
type Store struct {
	mu      sync.RWMutex
	current *Entry
	history []*Entry // oldest first, excludes current
	gen     uint64
	ttl     time.Duration
	now     func() time.Time // injectable for deterministic tests
}

// New creates a Store whose superseded reports live for ttl.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl: ttl,
		now: time.Now,
	}
}

// Put makes r the current report and returns its generation.
// Callers must not modify r after calling Put.
func (s *Store) Put(r *compute.Report) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.history = append(s.history, s.current)
		if over := len(s.history) - maxHistoryLen; over > 0 {
			clear(s.history[:over])
			s.history = append(s.history[:0], s.history[over:]...)
		}
	}
	s.gen++
	s.current = &Entry{
		Report:     r,
		UpdatedAt:  s.now(),
		Generation: s.gen,
	}
	return s.gen
}

// Current returns the current entry, or false while nothing has been stored.
func (s *Store) Current() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Generation returns the number of reports stored so far.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Get returns the entry whose report has the given ID, current or historical.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current != nil && s.current.Report.ID == id {
		return s.current, true
	}
	for _, e := range s.history {
		if e.Report.ID == id {
			return e, true
		}
	}
	return nil, false
}

// List returns all held entries, newest first, current included.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.history)+1)
	if s.current != nil {
		out = append(out, s.current)
	}
	for i := len(s.history) - 1; i >= 0; i-- {
		out = append(out, s.history[i])
	}
	return out
}

// Evict drops historical entries stored at or before now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	kept := s.history[:0]
	for _, e := range s.history {
		if e.UpdatedAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(s.history) - len(kept)
	for i := len(kept); i < len(s.history); i++ {
		s.history[i] = nil
	}
	s.history = kept
	return removed
}

// Run starts the background eviction loop. It ticks at half the TTL interval
// (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted superseded reports", "count", n)
			}
		}
	}
}
