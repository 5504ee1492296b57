package relation

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Validate that MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

type bagKey struct {
	name  string
	id    int
	owner string
}

// MemoryStore is an in-memory implementation of the Store interface used by
// tests and single-process harnesses.
type MemoryStore struct {
	mu        sync.RWMutex
	relations map[string]map[int]*Relation
	bags      map[bagKey]map[string]string
	nextID    int
}

// NewMemoryStore creates a new in-memory relation-data store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		relations: make(map[string]map[int]*Relation),
		bags:      make(map[bagKey]map[string]string),
	}
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

// AddRelation records a new relation instance, assigning its ID.
func (m *MemoryStore) AddRelation(ctx context.Context, rel *Relation) error {
	if rel.Name == "" {
		return fmt.Errorf("relation name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rel.ID = m.nextID
	m.nextID++

	byID, ok := m.relations[rel.Name]
	if !ok {
		byID = make(map[int]*Relation)
		m.relations[rel.Name] = byID
	}
	byID[rel.ID] = rel
	return nil
}

// RemoveRelation deletes a relation instance and all its databags.
func (m *MemoryStore) RemoveRelation(ctx context.Context, name string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID, ok := m.relations[name]
	if !ok {
		return ErrRelationNotFound
	}
	if _, ok := byID[id]; !ok {
		return ErrRelationNotFound
	}
	delete(byID, id)

	for key := range m.bags {
		if key.name == name && key.id == id {
			delete(m.bags, key)
		}
	}
	return nil
}

// Relations lists all instances of the named relation, ordered by id.
func (m *MemoryStore) Relations(ctx context.Context, name string) ([]*Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID := m.relations[name]
	out := make([]*Relation, 0, len(byID))
	for _, rel := range byID {
		out = append(out, rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Relation fetches a single relation instance.
func (m *MemoryStore) Relation(ctx context.Context, name string, id int) (*Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byID, ok := m.relations[name]
	if !ok {
		return nil, ErrRelationNotFound
	}
	rel, ok := byID[id]
	if !ok {
		return nil, ErrRelationNotFound
	}
	return rel, nil
}

// GetBag returns a copy of the owner's databag on the relation instance.
func (m *MemoryStore) GetBag(ctx context.Context, name string, id int, owner string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkParticipant(name, id, owner); err != nil {
		return nil, err
	}

	bag := m.bags[bagKey{name, id, owner}]
	out := make(map[string]string, len(bag))
	for k, v := range bag {
		out[k] = v
	}
	return out, nil
}

// SetBagKey writes one key into the owner's databag.
func (m *MemoryStore) SetBagKey(ctx context.Context, name string, id int, owner, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParticipant(name, id, owner); err != nil {
		return err
	}

	bk := bagKey{name, id, owner}
	bag, ok := m.bags[bk]
	if !ok {
		bag = make(map[string]string)
		m.bags[bk] = bag
	}
	bag[key] = value
	return nil
}

// DeleteBagKey removes one key from the owner's databag.
func (m *MemoryStore) DeleteBagKey(ctx context.Context, name string, id int, owner, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkParticipant(name, id, owner); err != nil {
		return err
	}
	delete(m.bags[bagKey{name, id, owner}], key)
	return nil
}

// checkParticipant requires the relation to exist and the identity to own a
// scope on it. Callers must hold the lock.
func (m *MemoryStore) checkParticipant(name string, id int, owner string) error {
	byID, ok := m.relations[name]
	if !ok {
		return ErrRelationNotFound
	}
	rel, ok := byID[id]
	if !ok {
		return ErrRelationNotFound
	}
	if !rel.HasParticipant(owner) {
		return fmt.Errorf("%w: %s on %s", ErrNotParticipant, owner, rel)
	}
	return nil
}
