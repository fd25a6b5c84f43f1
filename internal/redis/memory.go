package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pharmacy_admin/internal/ordering"
)

// MemoryStore keeps sessions, locks and temp data in process. It stores JSON
// like the Redis client does, so callers never share mutable values with it.
// Expiry is ignored.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]string
	temp     map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		locks:    make(map[string]string),
		temp:     make(map[string][]byte),
	}
}

func (m *MemoryStore) SaveSession(_ context.Context, s *ordering.Session, _ time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = data
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*ordering.Session, error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	var s ordering.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) AcquireLock(_ context.Context, name, owner string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[name]; held {
		return false, nil
	}
	m.locks[name] = owner
	return true, nil
}

func (m *MemoryStore) ReleaseLock(_ context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] == owner {
		delete(m.locks, name)
	}
	return nil
}

func (m *MemoryStore) SetTempData(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal temp data: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.temp[key] = data
	return nil
}

func (m *MemoryStore) GetTempData(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	data, ok := m.temp[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("temp data %s: %w", key, ErrNotFound)
	}
	return json.Unmarshal(data, dest)
}

func (m *MemoryStore) DeleteTempData(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.temp, key)
	return nil
}
