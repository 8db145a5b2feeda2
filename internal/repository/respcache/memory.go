package respcache

import (
	"context"
	"sync"
	"time"

	"github.com/ChristinaDay/FabLab/internal/domain"
)

// Memory is a process-local cache. Expired entries are evicted when looked up.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemory creates an in-memory cache. ttl <= 0 uses the 24h default.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = domain.CacheTTL
	}
	return &Memory{ttl: ttl, now: time.Now, entries: make(map[string]Entry)}
}

// Get returns the payload for key if it is younger than the TTL.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !fresh(e, m.now(), m.ttl) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.Payload, true, nil
}

// Set stores payload under key, stamped with the current time.
func (m *Memory) Set(_ context.Context, key string, payload []byte) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	m.mu.Lock()
	m.entries[key] = Entry{StoredAt: m.now(), Payload: buf}
	m.mu.Unlock()
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// size returns the number of stored entries, expired ones included.
func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
