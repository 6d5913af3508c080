package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	data    map[string]json.RawMessage
	expires time.Time
}

// MemoryStore is a process-local Store. Expired entries are dropped lazily
// on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, id string) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return map[string]json.RawMessage{}, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, id)
		return map[string]json.RawMessage{}, nil
	}

	out := make(map[string]json.RawMessage, len(e.data))
	for k, v := range e.data {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, data map[string]json.RawMessage, ttl time.Duration) error {
	cp := make(map[string]json.RawMessage, len(data))
	for k, v := range data {
		cp[k] = v
	}

	m.mu.Lock()
	m.entries[id] = memoryEntry{data: cp, expires: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}
