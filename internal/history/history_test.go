package history

import (
	"errors"
	"fmt"
	"testing"

	"myvcs/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHistory(t *testing.T) *History {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestHistory_RecordAndHead(t *testing.T) {
	h := setupHistory(t)

	c, err := h.Head("notes.txt")
	require.NoError(t, err)
	assert.Nil(t, c)

	first, err := h.Record("notes.txt", "h1", "", "first")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Empty(t, first.Parent)
	assert.NotEmpty(t, first.ID)

	second, err := h.Record("notes.txt", "h2", first.ID, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, first.ID, second.Parent)

	head, err := h.Head("notes.txt")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, second.ID, head.ID)
	assert.Equal(t, "h2", head.Hash)
}

func TestHistory_RecordRejectsStaleParent(t *testing.T) {
	h := setupHistory(t)

	first, err := h.Record("notes.txt", "h1", "", "")
	require.NoError(t, err)
	_, err = h.Record("notes.txt", "h2", first.ID, "")
	require.NoError(t, err)

	_, err = h.Record("notes.txt", "h3", first.ID, "")
	assert.True(t, errors.Is(err, ErrParentMismatch))

	_, err = h.Record("other.txt", "h3", first.ID, "")
	assert.True(t, errors.Is(err, ErrParentMismatch))

	entries, err := h.Entries("notes.txt")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestHistory_LogOrderedAndRestartable(t *testing.T) {
	h := setupHistory(t)

	parent := ""
	for i := 1; i <= 12; i++ {
		c, err := h.Record("notes.txt", fmt.Sprintf("h%d", i), parent, "")
		require.NoError(t, err)
		parent = c.ID
	}

	log := h.Log("notes.txt")
	for pass := 0; pass < 2; pass++ {
		var seqs []uint64
		for c, err := range log {
			require.NoError(t, err)
			seqs = append(seqs, c.Seq)
		}
		require.Len(t, seqs, 12)
		for i, s := range seqs {
			assert.Equal(t, uint64(i+1), s)
		}
	}

	// Breaking out early is fine
	n := 0
	for range log {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestHistory_FilesAreIsolated(t *testing.T) {
	h := setupHistory(t)

	_, err := h.Record("a", "h1", "", "")
	require.NoError(t, err)
	_, err = h.Record("a:b", "h2", "", "")
	require.NoError(t, err)
	_, err = h.Record("ab", "h3", "", "")
	require.NoError(t, err)

	entries, err := h.Entries("a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "h1", entries[0].Hash)

	files, err := h.Files()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "a:b", "ab"}, files)

	none, err := h.Entries("missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHistory_GetByID(t *testing.T) {
	h := setupHistory(t)

	ids := []string{"aaaa1111-0000", "aaaa2222-0000", "bbbb3333-0000"}
	next := 0
	h.newID = func() string {
		id := ids[next]
		next++
		return id
	}

	a1, err := h.Record("a.txt", "h1", "", "")
	require.NoError(t, err)
	_, err = h.Record("a.txt", "h2", a1.ID, "")
	require.NoError(t, err)
	_, err = h.Record("b.txt", "h3", "", "")
	require.NoError(t, err)

	c, err := h.Get("aaaa1111-0000")
	require.NoError(t, err)
	assert.Equal(t, "h1", c.Hash)

	c, err = h.Get("bbbb")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", c.Filename)

	_, err = h.Get("aaaa")
	assert.True(t, errors.Is(err, ErrUnknownCommit))

	_, err = h.Get("cccc")
	assert.True(t, errors.Is(err, ErrUnknownCommit))

	_, err = h.Get("bb")
	assert.True(t, errors.Is(err, ErrUnknownCommit))
}
