package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	fetchedAt time.Time
	expiresAt time.Time
}

// MemoryStore keeps snapshots in process memory. The default for single
// process runs and the backend unit tests exercise against.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	state   map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		state:   make(map[string][]byte),
	}
}

func (s *MemoryStore) Load(_ context.Context, namespace string) ([]byte, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[namespace]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	payload := make([]byte, len(entry.payload))
	copy(payload, entry.payload)
	return payload, entry.fetchedAt, true, nil
}

func (s *MemoryStore) Save(_ context.Context, namespace string, payload []byte, fetchedAt, expiresAt time.Time) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)
	s.mu.Lock()
	s.entries[namespace] = memoryEntry{payload: stored, fetchedAt: fetchedAt, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace string) error {
	s.mu.Lock()
	delete(s.entries, namespace)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for namespace, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, namespace)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) GetState(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.state[key]
	if !ok {
		return nil, false, nil
	}
	ret := make([]byte, len(value))
	copy(ret, value)
	return ret, true, nil
}

func (s *MemoryStore) PutState(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.mu.Lock()
	s.state[key] = stored
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteState(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.state, key)
	s.mu.Unlock()
	return nil
}
