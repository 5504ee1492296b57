package relation

import (
	"context"
	"errors"
)

// Store errors
var (
	// ErrRelationNotFound indicates the relation instance does not exist.
	ErrRelationNotFound = errors.New("relation not found")

	// ErrNotParticipant indicates the identity owns no scope on the relation.
	ErrNotParticipant = errors.New("identity is not a participant of the relation")
)

// Store is the relation-data store: relation instances plus their
// owner-scoped databags. The production store lives in the controller; the
// implementations here stand in for it in tests and local harnesses.
//
// Ownership discipline: a databag belongs to exactly one participant
// identity (an application or a unit), and only that identity writes to it.
// The host enforces this in production; implementations here reject writes
// by non-participants and leave the rest to callers.
type Store interface {
	// Open initializes and opens the store.
	Open(path string) error

	// Close closes the store and releases resources.
	Close() error

	// AddRelation records a new relation instance, assigning its ID.
	AddRelation(ctx context.Context, rel *Relation) error

	// RemoveRelation deletes a relation instance and all its databags.
	RemoveRelation(ctx context.Context, name string, id int) error

	// Relations lists all instances of the named relation.
	Relations(ctx context.Context, name string) ([]*Relation, error)

	// Relation fetches a single relation instance.
	Relation(ctx context.Context, name string, id int) (*Relation, error)

	// GetBag returns a copy of the databag owned by the identity on the
	// given relation instance. A bag never written to is empty, not an
	// error.
	GetBag(ctx context.Context, name string, id int, owner string) (map[string]string, error)

	// SetBagKey writes one key into the owner's databag.
	SetBagKey(ctx context.Context, name string, id int, owner, key, value string) error

	// DeleteBagKey removes one key from the owner's databag.
	DeleteBagKey(ctx context.Context, name string, id int, owner, key string) error
}
