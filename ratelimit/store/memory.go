package store

import (
	"context"
	"sync"
	"time"
)

// defaultMaxEntries bounds the counter map before a sweep is attempted.
// Churn of distinct client IPs would otherwise grow the map without limit.
const defaultMaxEntries = 10_000

type memoryEntry struct {
	count       int64
	windowStart time.Time
	window      time.Duration
}

func (e *memoryEntry) expiresAt() time.Time {
	return e.windowStart.Add(e.window)
}

// staleAt is the point after which a sweep may evict the entry. Entries are
// kept for a full window past expiry so a sweep can never remove a live window.
func (e *memoryEntry) staleAt() time.Time {
	return e.windowStart.Add(2 * e.window)
}

// Memory is an in-memory fixed-window Store.
//
// Counters are process-local: in a multi-replica deployment every replica
// counts independently, multiplying the effective limit by the replica count.
// That is a documented property of this store, not a defect; use Redis for
// shared counters.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMaxEntries sets the entry count above which stale entries are swept.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		m.maxEntries = n
	}
}

// NewMemory creates an in-memory store. Stale entries are swept inline when
// the map grows past the configured cap, so no background goroutine runs.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: defaultMaxEntries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	entry, exists := m.entries[key]

	// An expired window is replaced wholesale, never incremented.
	if !exists || now.After(entry.expiresAt()) {
		m.entries[key] = &memoryEntry{
			count:       1,
			windowStart: now,
			window:      window,
		}
		if len(m.entries) > m.maxEntries {
			m.sweepLocked(now)
		}
		return 1, window, nil
	}

	entry.count++
	ttl := max(0, entry.expiresAt().Sub(now))
	return entry.count, ttl, nil
}

func (m *Memory) Get(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.entries[key]
	if !exists || time.Now().After(entry.expiresAt()) {
		return 0, nil
	}
	return entry.count, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Close implements Store. The memory store holds no external resources.
func (m *Memory) Close() error {
	return nil
}

// Len reports the number of tracked entries, live or stale.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// sweepLocked deletes entries whose window started more than two windows ago.
// Caller must hold the write lock.
func (m *Memory) sweepLocked(now time.Time) {
	for key, entry := range m.entries {
		if now.After(entry.staleAt()) {
			delete(m.entries, key)
		}
	}
}
