package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store persists one settings instance per (user, dataset) pair
type Store interface {
	// Find returns the stored settings, or nil when none exist
	Find(ctx context.Context, user, dataset string) (*QuerySettings, error)
	Save(ctx context.Context, user, dataset string, s *QuerySettings) error
}

// MemoryStore is an in-process Store, primarily for tests and single-node
// deployments. Instances are stored as JSON snapshots so callers never
// share mutable state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func storeKey(user, dataset string) string {
	return user + "\x00" + dataset
}

func (m *MemoryStore) Find(ctx context.Context, user, dataset string) (*QuerySettings, error) {
	m.mu.RLock()
	raw, ok := m.data[storeKey(user, dataset)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var s QuerySettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode stored settings: %w", err)
	}
	return &s, nil
}

func (m *MemoryStore) Save(ctx context.Context, user, dataset string, s *QuerySettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	m.mu.Lock()
	m.data[storeKey(user, dataset)] = raw
	m.mu.Unlock()
	return nil
}

// StorePublisher bridges the settings publish cycle to a Store, saving the
// full state after every mutation.
type StorePublisher struct {
	Store   Store
	User    string
	Dataset string
}

func (p *StorePublisher) Publish(s *QuerySettings) {
	// publish is fire-and-forget from the model's point of view
	_ = p.Store.Save(context.Background(), p.User, p.Dataset, s)
}
