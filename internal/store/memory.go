package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	strVal    string
	intVal    int64
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Store guarded by a single mutex. It implements the
// same semantics as the Redis store so services can be tested deterministically
// without a running backend.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryWithClock lets tests control expiry.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: make(map[string]*memoryEntry),
		now:     now,
	}
}

func (m *Memory) live(key string) *memoryEntry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live(key) != nil {
		return false, nil
	}
	m.entries[key] = &memoryEntry{strVal: value, expiresAt: m.now().Add(ttl)}
	return true, nil
}

func (m *Memory) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil || e.strVal != value {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *Memory) GetInt(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil {
		return 0, false, nil
	}
	return e.intVal, true, nil
}

func (m *Memory) SetInt(_ context.Context, key string, value int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = &memoryEntry{intVal: value, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) DecrIfAtLeast(_ context.Context, key string, qty int64) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil {
		return false, false, nil
	}
	if e.intVal < qty {
		return false, true, nil
	}
	e.intVal -= qty
	return true, true, nil
}

func (m *Memory) IncrClamp(_ context.Context, key string, qty, max int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.live(key)
	if e == nil {
		return nil
	}
	e.intVal += qty
	if e.intVal > max {
		e.intVal = max
	}
	return nil
}

var _ Store = (*Memory)(nil)
