// Package staging holds the per-file staging slot: the blob each tracked
// file will record on its next commit.
package staging

import (
	"errors"
	"fmt"
	"time"

	"myvcs/internal/storage"

	"github.com/dgraph-io/badger/v4"
)

const prefix = "stage"

// Entry is the content staged for filename.
type Entry struct {
	Filename string    `json:"filename"`
	Hash     string    `json:"hash"`
	StagedAt time.Time `json:"staged_at"`
}

func (e *Entry) GetID() string { return e.Filename }

// Index maps filenames to their staged entry. There is at most one entry
// per filename; staging again replaces it.
type Index struct {
	store *storage.BadgerStore
	now   func() time.Time
}

func NewIndex(db *badger.DB) *Index {
	return &Index{
		store: storage.NewBadgerStore(db, prefix),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Stage inserts or replaces the entry for filename.
func (ix *Index) Stage(filename, hash string) (*Entry, error) {
	var entry *Entry
	err := ix.store.DB().Update(func(txn *badger.Txn) error {
		var err error
		entry, err = ix.StageTxn(txn, filename, hash)
		return err
	})
	return entry, err
}

func (ix *Index) StageTxn(txn *badger.Txn, filename, hash string) (*Entry, error) {
	if filename == "" || hash == "" {
		return nil, fmt.Errorf("staging requires a filename and a hash")
	}
	entry := &Entry{Filename: filename, Hash: hash, StagedAt: ix.now()}
	if err := ix.store.PutTxn(txn, entry); err != nil {
		return nil, fmt.Errorf("staging %s: %w", filename, err)
	}
	return entry, nil
}

// Peek returns the entry for filename, or nil if nothing is staged.
func (ix *Index) Peek(filename string) (*Entry, error) {
	var entry *Entry
	err := ix.store.DB().View(func(txn *badger.Txn) error {
		var err error
		entry, err = ix.PeekTxn(txn, filename)
		return err
	})
	return entry, err
}

func (ix *Index) PeekTxn(txn *badger.Txn, filename string) (*Entry, error) {
	var entry Entry
	err := ix.store.GetTxn(txn, filename, &entry)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading staged entry for %s: %w", filename, err)
	}
	return &entry, nil
}

// Clear removes the entry for filename. It reports whether one existed.
func (ix *Index) Clear(filename string) (bool, error) {
	var cleared bool
	err := ix.store.DB().Update(func(txn *badger.Txn) error {
		var err error
		cleared, err = ix.ClearTxn(txn, filename)
		return err
	})
	return cleared, err
}

func (ix *Index) ClearTxn(txn *badger.Txn, filename string) (bool, error) {
	err := ix.store.DeleteTxn(txn, filename)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("clearing staged entry for %s: %w", filename, err)
	}
	return true, nil
}

// List returns all staged entries ordered by filename.
func (ix *Index) List() ([]*Entry, error) {
	var entries []*Entry
	if err := ix.store.List(&entries); err != nil {
		return nil, fmt.Errorf("listing staged entries: %w", err)
	}
	return entries, nil
}
