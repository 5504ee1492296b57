// Package secrets provides storage for secret material held by charm
// libraries outside the relation databags, such as TLS private keys.
package secrets

import (
	"context"
	"errors"
	"time"
)

// ErrSecretNotFound indicates no secret matches the lookup.
var ErrSecretNotFound = errors.New("secret not found")

// Secret is an opaque piece of secret material with a lookup label.
type Secret struct {
	// Unique id, assigned on Put if empty
	ID string `json:"id"`

	// Label groups secrets by what they belong to, e.g. a relation
	// instance; cleanup deletes by label.
	Label string `json:"label"`

	// Content of the secret
	Content map[string]string `json:"content"`

	// CreatedAt records when the secret was first stored
	CreatedAt time.Time `json:"created_at"`
}

// Store is the secret storage interface.
type Store interface {
	// Open initializes and opens the store.
	Open(path string) error

	// Close closes the store and releases resources.
	Close() error

	// Put stores a secret, assigning its ID if empty and overwriting any
	// existing secret with the same ID.
	Put(ctx context.Context, secret *Secret) error

	// Get retrieves a secret by id.
	Get(ctx context.Context, id string) (*Secret, error)

	// GetByLabel retrieves the first secret carrying the label.
	GetByLabel(ctx context.Context, label string) (*Secret, error)

	// Delete removes a secret by id.
	Delete(ctx context.Context, id string) error

	// DeleteByLabel removes all secrets carrying the label, returning how
	// many were removed.
	DeleteByLabel(ctx context.Context, label string) (int, error)
}
