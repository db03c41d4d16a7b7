package searchcache

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

var _ Cache = (*Memory)(nil)

// Memory is an in-process Cache. Writes replace whole entries.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     Clock
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock overrides the wall clock.
func WithClock(c Clock) MemoryOption {
	return func(m *Memory) {
		m.now = c
	}
}

// NewMemory creates an empty in-process cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Get implements Cache. It never mutates state.
func (m *Memory) Get(_ context.Context, fp string) (*Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[fp]
	m.mu.RUnlock()
	if !ok || e.Expired(m.now()) {
		return nil, false, nil
	}
	return e.clone(), true, nil
}

// Put implements Cache.
func (m *Memory) Put(_ context.Context, fp string, businesses []model.BusinessRecord) (*Entry, error) {
	e := NewEntry(fp, businesses, m.now())
	m.mu.Lock()
	m.entries[fp] = e
	m.mu.Unlock()
	return e.clone(), nil
}

// Purge drops expired entries and returns how many were removed.
func (m *Memory) Purge(_ context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for fp, e := range m.entries {
		if e.Expired(now) {
			delete(m.entries, fp)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
