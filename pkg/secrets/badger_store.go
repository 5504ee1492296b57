package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/charmbus/charmbus/pkg/log"
)

// Validate that BadgerStore implements the Store interface
var _ Store = (*BadgerStore)(nil)

const secretKeyPrefix = "secret/"

// BadgerStore is a BadgerDB-backed secret store for local harnesses that
// need secrets to survive process restarts.
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger log.Logger
}

// NewBadgerStore creates a new BadgerDB-backed secret store.
func NewBadgerStore(logger log.Logger) *BadgerStore {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &BadgerStore{logger: logger.WithComponent("secret-store")}
}

// Open opens the BadgerDB database at path.
func (s *BadgerStore) Open(path string) error {
	s.path = path

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger db: %w", err)
	}
	s.db = db

	s.logger.Info("secret store opened", log.Str("path", path))
	return nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func secretKey(id string) []byte {
	return []byte(secretKeyPrefix + id)
}

// Put stores a secret, assigning its ID if empty.
func (s *BadgerStore) Put(ctx context.Context, secret *Secret) error {
	if secret.ID == "" {
		secret.ID = uuid.NewString()
	}
	if secret.CreatedAt.IsZero() {
		secret.CreatedAt = time.Now()
	}

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to serialize secret: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(secretKey(secret.ID), data)
	})
}

// Get retrieves a secret by id.
func (s *BadgerStore) Get(ctx context.Context, id string) (*Secret, error) {
	var secret Secret
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(secretKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrSecretNotFound
		} else if err != nil {
			return fmt.Errorf("failed to get secret: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &secret)
		})
	})
	if err != nil {
		return nil, err
	}
	return &secret, nil
}

// GetByLabel retrieves the first secret carrying the label.
func (s *BadgerStore) GetByLabel(ctx context.Context, label string) (*Secret, error) {
	var found *Secret
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(secretKeyPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var secret Secret
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &secret)
			})
			if err != nil {
				return fmt.Errorf("failed to decode secret: %w", err)
			}
			if secret.Label == label {
				found = &secret
				return nil
			}
		}
		return ErrSecretNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Delete removes a secret by id.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(secretKey(id)); err == badger.ErrKeyNotFound {
			return ErrSecretNotFound
		} else if err != nil {
			return fmt.Errorf("failed to look up secret: %w", err)
		}
		return txn.Delete(secretKey(id))
	})
}

// DeleteByLabel removes all secrets carrying the label.
func (s *BadgerStore) DeleteByLabel(ctx context.Context, label string) (int, error) {
	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(secretKeyPrefix)})
		defer it.Close()
		var toDelete [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			var secret Secret
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &secret)
			})
			if err != nil {
				return fmt.Errorf("failed to decode secret: %w", err)
			}
			if secret.Label == label {
				toDelete = append(toDelete, it.Item().KeyCopy(nil))
			}
		}
		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete secret: %w", err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
