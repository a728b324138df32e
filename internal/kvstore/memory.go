package kvstore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process Store. It is the default backend and the one
// used in tests; all state is lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// now is replaceable in tests to exercise expiry without sleeping.
	now func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// SetNow replaces the store clock. It exists so tests can exercise expiry
// without sleeping.
func (m *Memory) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Get returns the value for key, treating expired entries as absent and
// dropping them on the way out.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Put stores value under key with the given ttl.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = memoryEntry{value: value, expiresAt: expiresAt}
	return nil
}

// Incr increments the counter under key, creating it with ttl on first use
// within the current window.
func (m *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || e.expired(now) {
		var expiresAt time.Time
		if ttl > 0 {
			expiresAt = now.Add(ttl)
		}
		m.entries[key] = memoryEntry{value: []byte("1"), expiresAt: expiresAt}
		return 1, nil
	}

	count, err := strconv.ParseInt(string(e.value), 10, 64)
	if err != nil {
		return 0, err
	}
	count++
	e.value = []byte(strconv.FormatInt(count, 10))
	m.entries[key] = e
	return count, nil
}

// Delete removes key if present.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// DeleteFunc removes every key matching the predicate.
func (m *Memory) DeleteFunc(_ context.Context, match func(key string) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if match(key) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
