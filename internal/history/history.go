// Package history records committed snapshots as an append-only, linear
// chain per filename.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"time"

	"myvcs/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrParentMismatch is returned when a record's parent is not the
// file's current head.
var ErrParentMismatch = errors.New("parent is not the current head")

// ErrUnknownCommit is returned by Get for an id that was never recorded.
var ErrUnknownCommit = errors.New("unknown commit")

// Commit is one snapshot of one file. Records are never modified once
// written.
type Commit struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"` // 1-based, per filename
	Filename  string    `json:"filename"`
	Hash      string    `json:"hash"`
	Parent    string    `json:"parent,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Commit) GetID() string { return recordKey(c.Filename, c.Seq) }

// ShortID is the abbreviated id used in command output.
func (c *Commit) ShortID() string {
	if len(c.ID) < 8 {
		return c.ID
	}
	return c.ID[:8]
}

type head struct {
	Filename string `json:"filename"`
	Seq      uint64 `json:"seq"`
	ID       string `json:"id"`
}

func (h *head) GetID() string { return h.Filename }

type idRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Seq      uint64 `json:"seq"`
}

func (r *idRef) GetID() string { return r.ID }

// History stores commit records, a head pointer per filename and an id
// index.
type History struct {
	commits *storage.BadgerStore
	heads   *storage.BadgerStore
	ids     *storage.BadgerStore
	now     func() time.Time
	newID   func() string
}

func New(db *badger.DB) *History {
	return &History{
		commits: storage.NewBadgerStore(db, "commit"),
		heads:   storage.NewBadgerStore(db, "head"),
		ids:     storage.NewBadgerStore(db, "commitid"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}
}

// Filenames are escaped in record keys so that the ':' separator cannot
// appear inside a filename prefix.
func filePrefix(filename string) string {
	return url.QueryEscape(filename) + ":"
}

// Sequence numbers are zero padded so key order is numeric order.
func recordKey(filename string, seq uint64) string {
	return fmt.Sprintf("%s%020d", filePrefix(filename), seq)
}

// Record appends a commit for filename. parent must be the id of the
// current head, or empty when the file has no history.
func (h *History) Record(filename, hash, parent, message string) (*Commit, error) {
	var c *Commit
	err := h.commits.DB().Update(func(txn *badger.Txn) error {
		var err error
		c, err = h.RecordTxn(txn, filename, hash, parent, message)
		return err
	})
	return c, err
}

func (h *History) RecordTxn(txn *badger.Txn, filename, hash, parent, message string) (*Commit, error) {
	if filename == "" || hash == "" {
		return nil, fmt.Errorf("recording requires a filename and a hash")
	}

	cur, err := h.headTxn(txn, filename)
	if err != nil {
		return nil, err
	}

	var seq uint64 = 1
	curID := ""
	if cur != nil {
		seq = cur.Seq + 1
		curID = cur.ID
	}
	if parent != curID {
		return nil, fmt.Errorf("%w: %s has head %q, got parent %q", ErrParentMismatch, filename, curID, parent)
	}

	c := &Commit{
		ID:        h.newID(),
		Seq:       seq,
		Filename:  filename,
		Hash:      hash,
		Parent:    parent,
		Message:   message,
		Timestamp: h.now(),
	}

	if err := h.commits.CreateTxn(txn, c); err != nil {
		return nil, fmt.Errorf("writing commit record: %w", err)
	}
	if err := h.ids.CreateTxn(txn, &idRef{ID: c.ID, Filename: filename, Seq: seq}); err != nil {
		return nil, fmt.Errorf("indexing commit id: %w", err)
	}
	if err := h.heads.PutTxn(txn, &head{Filename: filename, Seq: seq, ID: c.ID}); err != nil {
		return nil, fmt.Errorf("moving head: %w", err)
	}

	return c, nil
}

// Head returns the latest commit for filename, or nil if it has none.
func (h *History) Head(filename string) (*Commit, error) {
	var c *Commit
	err := h.commits.DB().View(func(txn *badger.Txn) error {
		var err error
		c, err = h.HeadTxn(txn, filename)
		return err
	})
	return c, err
}

func (h *History) HeadTxn(txn *badger.Txn, filename string) (*Commit, error) {
	cur, err := h.headTxn(txn, filename)
	if err != nil || cur == nil {
		return nil, err
	}
	return h.getTxn(txn, filename, cur.Seq)
}

func (h *History) headTxn(txn *badger.Txn, filename string) (*head, error) {
	var cur head
	err := h.heads.GetTxn(txn, filename, &cur)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading head of %s: %w", filename, err)
	}
	return &cur, nil
}

func (h *History) getTxn(txn *badger.Txn, filename string, seq uint64) (*Commit, error) {
	var c Commit
	if err := h.commits.GetTxn(txn, recordKey(filename, seq), &c); err != nil {
		return nil, fmt.Errorf("reading commit %d of %s: %w", seq, filename, err)
	}
	return &c, nil
}

// Get looks a commit up by id. Unique id prefixes of at least four
// characters are accepted.
func (h *History) Get(id string) (*Commit, error) {
	var c *Commit
	err := h.commits.DB().View(func(txn *badger.Txn) error {
		ref, err := h.resolveID(txn, id)
		if err != nil {
			return err
		}
		c, err = h.getTxn(txn, ref.Filename, ref.Seq)
		return err
	})
	return c, err
}

func (h *History) resolveID(txn *badger.Txn, id string) (*idRef, error) {
	var ref idRef
	err := h.ids.GetTxn(txn, id, &ref)
	if err == nil {
		return &ref, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if len(id) < 4 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommit, id)
	}

	var matches []idRef
	err = h.ids.ScanTxn(txn, id, func(_ string, val []byte) error {
		var r idRef
		if err := json.Unmarshal(val, &r); err != nil {
			return err
		}
		matches = append(matches, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommit, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s is ambiguous", ErrUnknownCommit, id)
	}
}

var errStop = errors.New("stop iteration")

// Log yields the commits of filename oldest to newest. Each range over
// the returned sequence reads the store afresh, so it can be re-run.
func (h *History) Log(filename string) iter.Seq2[*Commit, error] {
	return func(yield func(*Commit, error) bool) {
		err := h.commits.Scan(filePrefix(filename), func(_ string, val []byte) error {
			var c Commit
			if err := json.Unmarshal(val, &c); err != nil {
				return fmt.Errorf("decoding commit record: %w", err)
			}
			if !yield(&c, nil) {
				return errStop
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			yield(nil, err)
		}
	}
}

// Entries materialises Log.
func (h *History) Entries(filename string) ([]*Commit, error) {
	var out []*Commit
	for c, err := range h.Log(filename) {
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Files returns every filename that has at least one commit.
func (h *History) Files() ([]string, error) {
	var names []string
	err := h.heads.Scan("", func(_ string, val []byte) error {
		var cur head
		if err := json.Unmarshal(val, &cur); err != nil {
			return err
		}
		names = append(names, cur.Filename)
		return nil
	})
	return names, err
}
