package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

func (r *record) GetID() string { return r.ID }

func setupTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBadgerStore_CreateGet(t *testing.T) {
	store := NewBadgerStore(setupTestDB(t), "rec")

	require.NoError(t, store.Create(&record{ID: "a", Value: "one"}))

	var got record
	require.NoError(t, store.Get("a", &got))
	assert.Equal(t, "one", got.Value)

	err := store.Create(&record{ID: "a", Value: "two"})
	assert.True(t, errors.Is(err, ErrAlreadyExists))

	err = store.Get("missing", &got)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBadgerStore_PutOverwrites(t *testing.T) {
	store := NewBadgerStore(setupTestDB(t), "rec")

	require.NoError(t, store.Put(&record{ID: "a", Value: "one"}))
	require.NoError(t, store.Put(&record{ID: "a", Value: "two"}))

	var got record
	require.NoError(t, store.Get("a", &got))
	assert.Equal(t, "two", got.Value)
}

func TestBadgerStore_EmptyID(t *testing.T) {
	store := NewBadgerStore(setupTestDB(t), "rec")
	assert.Error(t, store.Put(&record{}))
	assert.Error(t, store.Create(&record{}))
}

func TestBadgerStore_Delete(t *testing.T) {
	store := NewBadgerStore(setupTestDB(t), "rec")

	require.NoError(t, store.Put(&record{ID: "a"}))
	require.NoError(t, store.Delete("a"))

	var got record
	assert.True(t, errors.Is(store.Get("a", &got), ErrNotFound))
	assert.True(t, errors.Is(store.Delete("a"), ErrNotFound))
}

func TestBadgerStore_ScanIsolatesPrefixes(t *testing.T) {
	db := setupTestDB(t)
	recs := NewBadgerStore(db, "rec")
	other := NewBadgerStore(db, "recother")

	require.NoError(t, recs.Put(&record{ID: "x:1", Value: "1"}))
	require.NoError(t, recs.Put(&record{ID: "x:2", Value: "2"}))
	require.NoError(t, recs.Put(&record{ID: "y:1", Value: "3"}))
	require.NoError(t, other.Put(&record{ID: "x:9", Value: "9"}))

	var ids []string
	err := recs.Scan("x:", func(id string, val []byte) error {
		var r record
		require.NoError(t, json.Unmarshal(val, &r))
		ids = append(ids, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x:1", "x:2"}, ids)

	var all []record
	require.NoError(t, recs.List(&all))
	assert.Len(t, all, 3)

	var none []record
	require.NoError(t, NewBadgerStore(db, "empty").List(&none))
	assert.Empty(t, none)
}

func TestBadgerStore_TxnComposes(t *testing.T) {
	db := setupTestDB(t)
	a := NewBadgerStore(db, "a")
	b := NewBadgerStore(db, "b")

	require.NoError(t, b.Put(&record{ID: "1"}))

	err := db.Update(func(txn *badger.Txn) error {
		if err := a.PutTxn(txn, &record{ID: "1"}); err != nil {
			return err
		}
		return b.DeleteTxn(txn, "1")
	})
	require.NoError(t, err)

	var got record
	assert.NoError(t, a.Get("1", &got))
	assert.True(t, errors.Is(b.Get("1", &got), ErrNotFound))

	// A failing transaction leaves nothing behind
	err = db.Update(func(txn *badger.Txn) error {
		if err := a.PutTxn(txn, &record{ID: "2"}); err != nil {
			return err
		}
		return b.DeleteTxn(txn, "missing")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(a.Get("2", &got), ErrNotFound))
}
