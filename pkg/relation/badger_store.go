package relation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/charmbus/charmbus/pkg/log"
)

// Validate that BadgerStore implements the Store interface
var _ Store = (*BadgerStore)(nil)

// BadgerStore is a BadgerDB-backed implementation of the Store interface.
// It emulates the controller's replicated relation-data store for local
// development harnesses, surviving process restarts.
type BadgerStore struct {
	db     *badger.DB
	path   string
	logger log.Logger
	seq    *badger.Sequence
}

// NewBadgerStore creates a new BadgerDB-backed relation-data store.
func NewBadgerStore(logger log.Logger) *BadgerStore {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &BadgerStore{logger: logger.WithComponent("relation-store")}
}

// Open opens the BadgerDB database at path.
func (s *BadgerStore) Open(path string) error {
	s.path = path

	opts := badger.DefaultOptions(path)
	opts.Logger = &badgerLogAdapter{logger: s.logger}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger db: %w", err)
	}
	s.db = db

	seq, err := db.GetSequence([]byte("seq/relation"), 64)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to open relation id sequence: %w", err)
	}
	s.seq = seq

	s.logger.Info("relation store opened", log.Str("path", path))
	return nil
}

// Close closes the BadgerDB database.
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	if s.seq != nil {
		s.seq.Release()
	}
	s.logger.Info("closing relation store", log.Str("path", s.path))
	return s.db.Close()
}

func relationKey(name string, id int) []byte {
	return []byte(fmt.Sprintf("relation/%s/%010d", name, id))
}

func relationPrefix(name string) []byte {
	return []byte(fmt.Sprintf("relation/%s/", name))
}

func bagStoreKey(name string, id int, owner string) []byte {
	return []byte(fmt.Sprintf("bag/%s/%010d/%s", name, id, owner))
}

func bagPrefix(name string, id int) []byte {
	return []byte(fmt.Sprintf("bag/%s/%010d/", name, id))
}

// AddRelation records a new relation instance, assigning its ID.
func (s *BadgerStore) AddRelation(ctx context.Context, rel *Relation) error {
	if rel.Name == "" {
		return fmt.Errorf("relation name is required")
	}
	if strings.ContainsRune(rel.Name, '/') {
		return fmt.Errorf("relation name must not contain '/': %q", rel.Name)
	}

	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to assign relation id: %w", err)
	}
	rel.ID = int(next)

	data, err := json.Marshal(rel)
	if err != nil {
		return fmt.Errorf("failed to serialize relation: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(relationKey(rel.Name, rel.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store relation: %w", err)
	}

	s.logger.Debug("relation added",
		log.Str("relation", rel.String()),
		log.Str("remote", rel.RemoteApplication))
	return nil
}

// RemoveRelation deletes a relation instance and all its databags.
func (s *BadgerStore) RemoveRelation(ctx context.Context, name string, id int) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		key := relationKey(name, id)
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return ErrRelationNotFound
		} else if err != nil {
			return fmt.Errorf("failed to look up relation: %w", err)
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete relation: %w", err)
		}

		// Databags are scoped to the relation instance and go with it.
		it := txn.NewIterator(badger.IteratorOptions{Prefix: bagPrefix(name, id)})
		defer it.Close()
		var bagKeys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			bagKeys = append(bagKeys, it.Item().KeyCopy(nil))
		}
		for _, bk := range bagKeys {
			if err := txn.Delete(bk); err != nil {
				return fmt.Errorf("failed to delete databag: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("relation removed", log.Str("relation", fmt.Sprintf("%s:%d", name, id)))
	return nil
}

// Relations lists all instances of the named relation, ordered by id.
func (s *BadgerStore) Relations(ctx context.Context, name string) ([]*Relation, error) {
	var out []*Relation
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: relationPrefix(name)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rel Relation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rel)
			})
			if err != nil {
				return fmt.Errorf("failed to decode relation: %w", err)
			}
			out = append(out, &rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Relation fetches a single relation instance.
func (s *BadgerStore) Relation(ctx context.Context, name string, id int) (*Relation, error) {
	var rel Relation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(relationKey(name, id))
		if err == badger.ErrKeyNotFound {
			return ErrRelationNotFound
		} else if err != nil {
			return fmt.Errorf("failed to get relation: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rel)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// GetBag returns a copy of the owner's databag on the relation instance.
func (s *BadgerStore) GetBag(ctx context.Context, name string, id int, owner string) (map[string]string, error) {
	bag := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
		if err := s.checkParticipant(txn, name, id, owner); err != nil {
			return err
		}
		item, err := txn.Get(bagStoreKey(name, id, owner))
		if err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to get databag: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &bag)
		})
	})
	if err != nil {
		return nil, err
	}
	return bag, nil
}

// SetBagKey writes one key into the owner's databag.
func (s *BadgerStore) SetBagKey(ctx context.Context, name string, id int, owner, key, value string) error {
	return s.mutateBag(name, id, owner, func(bag map[string]string) {
		bag[key] = value
	})
}

// DeleteBagKey removes one key from the owner's databag.
func (s *BadgerStore) DeleteBagKey(ctx context.Context, name string, id int, owner, key string) error {
	return s.mutateBag(name, id, owner, func(bag map[string]string) {
		delete(bag, key)
	})
}

func (s *BadgerStore) mutateBag(name string, id int, owner string, mutate func(map[string]string)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.checkParticipant(txn, name, id, owner); err != nil {
			return err
		}

		bag := make(map[string]string)
		bk := bagStoreKey(name, id, owner)
		item, err := txn.Get(bk)
		if err == nil {
			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &bag)
			})
			if err != nil {
				return fmt.Errorf("failed to decode databag: %w", err)
			}
		} else if err != badger.ErrKeyNotFound {
			return fmt.Errorf("failed to get databag: %w", err)
		}

		mutate(bag)

		data, err := json.Marshal(bag)
		if err != nil {
			return fmt.Errorf("failed to encode databag: %w", err)
		}
		return txn.Set(bk, data)
	})
}

func (s *BadgerStore) checkParticipant(txn *badger.Txn, name string, id int, owner string) error {
	item, err := txn.Get(relationKey(name, id))
	if err == badger.ErrKeyNotFound {
		return ErrRelationNotFound
	} else if err != nil {
		return fmt.Errorf("failed to look up relation: %w", err)
	}
	var rel Relation
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rel)
	})
	if err != nil {
		return fmt.Errorf("failed to decode relation: %w", err)
	}
	if !rel.HasParticipant(owner) {
		return fmt.Errorf("%w: %s on %s", ErrNotParticipant, owner, rel.String())
	}
	return nil
}

// badgerLogAdapter adapts our logger to BadgerDB's logger interface.
type badgerLogAdapter struct {
	logger log.Logger
}

// Errorf implements badger.Logger.
func (l *badgerLogAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error("badger: " + fmt.Sprintf(strings.TrimSpace(format), args...))
}

// Warningf implements badger.Logger.
func (l *badgerLogAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn("badger: " + fmt.Sprintf(strings.TrimSpace(format), args...))
}

// Infof implements badger.Logger.
func (l *badgerLogAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(strings.TrimSpace(format), args...))
}

// Debugf implements badger.Logger.
func (l *badgerLogAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(strings.TrimSpace(format), args...))
}
