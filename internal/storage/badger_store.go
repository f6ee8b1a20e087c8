// internal/storage/badger_store.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Entity represents any storable record with an ID
type Entity interface {
	GetID() string
}

// BadgerStore provides JSON record storage under a key prefix. Every
// operation has a *Txn variant so callers can compose several stores in
// a single transaction.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{
		db:     db,
		prefix: prefix,
	}
}

// DB returns the underlying database.
func (s *BadgerStore) DB() *badger.DB {
	return s.db
}

func (s *BadgerStore) makeKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", s.prefix, id))
}

func (s *BadgerStore) stripPrefix(key []byte) string {
	return strings.TrimPrefix(string(key), s.prefix+":")
}

func (s *BadgerStore) Create(entity Entity) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.CreateTxn(txn, entity)
	})
}

// CreateTxn stores entity, failing with ErrAlreadyExists if its key is taken.
func (s *BadgerStore) CreateTxn(txn *badger.Txn, entity Entity) error {
	if entity.GetID() == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}

	key := s.makeKey(entity.GetID())
	_, err := txn.Get(key)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, entity.GetID())
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	return s.set(txn, key, entity)
}

func (s *BadgerStore) Put(entity Entity) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.PutTxn(txn, entity)
	})
}

// PutTxn inserts or replaces entity.
func (s *BadgerStore) PutTxn(txn *badger.Txn, entity Entity) error {
	if entity.GetID() == "" {
		return fmt.Errorf("entity ID cannot be empty")
	}
	return s.set(txn, s.makeKey(entity.GetID()), entity)
}

func (s *BadgerStore) set(txn *badger.Txn, key []byte, entity Entity) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}
	return txn.Set(key, data)
}

func (s *BadgerStore) Get(id string, entity Entity) error {
	return s.db.View(func(txn *badger.Txn) error {
		return s.GetTxn(txn, id, entity)
	})
}

// GetTxn decodes the record for id into entity, or returns ErrNotFound.
func (s *BadgerStore) GetTxn(txn *badger.Txn, id string, entity Entity) error {
	item, err := txn.Get(s.makeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s:%s", ErrNotFound, s.prefix, id)
	}
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, entity)
	})
}

func (s *BadgerStore) Delete(id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return s.DeleteTxn(txn, id)
	})
}

// DeleteTxn removes the record for id, or returns ErrNotFound.
func (s *BadgerStore) DeleteTxn(txn *badger.Txn, id string) error {
	key := s.makeKey(id)
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s:%s", ErrNotFound, s.prefix, id)
	} else if err != nil {
		return err
	}

	return txn.Delete(key)
}

// Scan calls fn for every record whose id starts with idPrefix, in key
// order. Returning an error from fn stops the scan.
func (s *BadgerStore) Scan(idPrefix string, fn func(id string, val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		return s.ScanTxn(txn, idPrefix, fn)
	})
}

func (s *BadgerStore) ScanTxn(txn *badger.Txn, idPrefix string, fn func(id string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	prefix := s.makeKey(idPrefix)
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		id := s.stripPrefix(item.Key())
		err := item.Value(func(val []byte) error {
			return fn(id, val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// List decodes every record under the store prefix into results, which
// must be a pointer to a slice.
func (s *BadgerStore) List(results interface{}) error {
	var values []json.RawMessage
	err := s.Scan("", func(_ string, val []byte) error {
		values = append(values, append([]byte(nil), val...))
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing entities: %w", err)
	}

	if values == nil {
		values = []json.RawMessage{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, results)
}

// OpenDB opens the on-disk database at path with badger's own logging
// disabled.
func OpenDB(path string) (*badger.DB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// OpenInMemory opens a throwaway database, used by tests.
func OpenInMemory() (*badger.DB, error) {
	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	return badger.Open(opts)
}
