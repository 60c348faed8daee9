// Package searchlog provides the in-memory search log used in local runs and tests.
package searchlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PonchoGAD/auto-search-mvp/internal/domain/searchlog"
)

// DefaultCapacity bounds the number of retained entries.
const DefaultCapacity = 10_000

// Memory is a bounded append-only log kept in a ring buffer.
// Past capacity each append overwrites the oldest entry.
type Memory struct {
	mu       sync.RWMutex
	ring     []searchlog.Entry
	head     int // oldest entry once the ring is full
	capacity int
}

// NewMemory creates an in-memory log. capacity <= 0 uses DefaultCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{capacity: capacity}
}

// Append adds an entry.
func (m *Memory) Append(_ context.Context, e searchlog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ring) < m.capacity {
		m.ring = append(m.ring, e)
		return nil
	}
	m.ring[m.head] = e
	m.head = (m.head + 1) % m.capacity
	return nil
}

// Entries returns entries with Timestamp >= since, oldest first.
func (m *Memory) Entries(_ context.Context, since time.Time) ([]searchlog.Entry, error) {
	snapshot := m.snapshot()

	out := make([]searchlog.Entry, 0, len(snapshot))
	for _, e := range snapshot {
		if since.IsZero() || !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Recent returns the newest limit entries, newest first.
func (m *Memory) Recent(ctx context.Context, limit int) ([]searchlog.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	all, _ := m.Entries(ctx, time.Time{})

	n := min(limit, len(all))
	out := make([]searchlog.Entry, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Len returns the number of retained entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ring)
}

// snapshot copies the ring in insertion order, oldest first.
func (m *Memory) snapshot() []searchlog.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]searchlog.Entry, len(m.ring))
	n := copy(out, m.ring[m.head:])
	copy(out[n:], m.ring[:m.head])
	return out
}
