package secrets

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Validate that MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory secret store for tests and single-process
// harnesses.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]*Secret
}

// NewMemoryStore creates a new in-memory secret store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]*Secret)}
}

// Open initializes the memory store.
func (m *MemoryStore) Open(path string) error {
	// No-op for memory store
	return nil
}

// Close closes the memory store.
func (m *MemoryStore) Close() error {
	// No-op for memory store
	return nil
}

// Put stores a secret, assigning its ID if empty.
func (m *MemoryStore) Put(ctx context.Context, secret *Secret) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if secret.ID == "" {
		secret.ID = uuid.NewString()
	}
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now()
	}
	copied := *secret
	m.secrets[secret.ID] = &copied
	return nil
}

// Get retrieves a secret by id.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	secret, ok := m.secrets[id]
	if !ok {
		return nil, ErrSecretNotFound
	}
	copied := *secret
	return &copied, nil
}

// GetByLabel retrieves the first secret carrying the label.
func (m *MemoryStore) GetByLabel(ctx context.Context, label string) (*Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, secret := range m.secrets {
		if secret.Label == label {
			copied := *secret
			return &copied, nil
		}
	}
	return nil, ErrSecretNotFound
}

// Delete removes a secret by id.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.secrets[id]; !ok {
		return ErrSecretNotFound
	}
	delete(m.secrets, id)
	return nil
}

// DeleteByLabel removes all secrets carrying the label.
func (m *MemoryStore) DeleteByLabel(ctx context.Context, label string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, secret := range m.secrets {
		if secret.Label == label {
			delete(m.secrets, id)
			removed++
		}
	}
	return removed, nil
}
