package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"myvcs/internal/errors"
	"myvcs/internal/history"
	"myvcs/internal/staging"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Resolve turns name, relative to the repository root or absolute, into
// the slash-separated filename the stores are keyed by.
func (r *Repository) Resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.InvalidPath(name, "empty filename")
	}

	abs := name
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.Root, name)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(r.Root, abs)
	if err != nil {
		return "", errors.InvalidPath(name, "not under the repository root")
	}
	if rel == "." {
		return "", errors.InvalidPath(name, "is the repository root")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.InvalidPath(name, "outside the repository root")
	}

	first := strings.SplitN(rel, string(filepath.Separator), 2)[0]
	if first == DirName {
		return "", errors.InvalidPath(name, "inside the repository directory")
	}

	return filepath.ToSlash(rel), nil
}

// WorkingPath is the on-disk location of a resolved filename.
func (r *Repository) WorkingPath(filename string) string {
	return filepath.Join(r.Root, filepath.FromSlash(filename))
}

func (r *Repository) readWorkingFile(filename string) ([]byte, error) {
	path := r.WorkingPath(filename)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.FileNotFound(filename)
	}
	if err != nil {
		return nil, errors.Internal("reading working file", err)
	}
	if info.IsDir() {
		return nil, errors.FileNotFound(filename).Wrap(fmt.Errorf("%s is a directory", path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Internal("reading working file", err)
	}
	return content, nil
}

// Add stages the current content of the working file. Adding again
// replaces the staged entry.
func (r *Repository) Add(name string) (*staging.Entry, error) {
	filename, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	log := r.Logger.ForFile(filename)

	content, err := r.readWorkingFile(filename)
	if err != nil {
		return nil, err
	}

	hash, err := r.Safe.Put(content)
	if err != nil {
		return nil, classify(err, "storing content")
	}

	entry, err := r.Index.Stage(filename, hash)
	if err != nil {
		return nil, classify(err, "staging file")
	}

	log.Info("staged", zap.String("hash", hash), zap.Int("size", len(content)))
	return entry, nil
}

// Commit records the staged content of name as its new head and clears
// the staging entry, both in one transaction.
func (r *Repository) Commit(name, message string) (*history.Commit, error) {
	filename, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}
	log := r.Logger.ForFile(filename)

	entry, err := r.Index.Peek(filename)
	if err != nil {
		return nil, classify(err, "reading staging index")
	}
	if entry == nil {
		return nil, errors.NothingStaged(filename)
	}

	ok, err := r.Safe.Exists(entry.Hash)
	if err != nil {
		return nil, classify(err, "checking staged content")
	}
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("staged content %s for %q is missing from the store", entry.Hash, filename))
	}

	var c *history.Commit
	err = r.DB.Update(func(txn *badger.Txn) error {
		// Re-read inside the transaction so the record and the clear
		// agree on the same entry.
		entry, err := r.Index.PeekTxn(txn, filename)
		if err != nil {
			return err
		}
		if entry == nil {
			return errors.NothingStaged(filename)
		}

		parent := ""
		head, err := r.History.HeadTxn(txn, filename)
		if err != nil {
			return err
		}
		if head != nil {
			parent = head.ID
		}

		c, err = r.History.RecordTxn(txn, filename, entry.Hash, parent, message)
		if err != nil {
			return err
		}
		_, err = r.Index.ClearTxn(txn, filename)
		return err
	})
	if err != nil {
		return nil, classify(err, "committing")
	}

	log.Info("committed",
		zap.String("commit", c.ID),
		zap.Uint64("seq", c.Seq),
		zap.String("hash", c.Hash))
	return c, nil
}

// Revert overwrites the working file with its head snapshot and discards
// any staged entry. It never creates a commit.
func (r *Repository) Revert(name string) (*history.Commit, error) {
	filename, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	head, err := r.History.Head(filename)
	if err != nil {
		return nil, classify(err, "reading history")
	}
	if head == nil {
		return nil, errors.NoCommit(filename)
	}
	if err := r.restore(filename, head); err != nil {
		return nil, err
	}
	return head, nil
}

// RevertTo is Revert for an earlier commit of name, given by id or unique
// id prefix. The head does not move.
func (r *Repository) RevertTo(name, ref string) (*history.Commit, error) {
	filename, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	head, err := r.History.Head(filename)
	if err != nil {
		return nil, classify(err, "reading history")
	}
	if head == nil {
		return nil, errors.NoCommit(filename)
	}

	c, err := r.History.Get(ref)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("no commit named %q", ref))
	}
	if c.Filename != filename {
		return nil, errors.NotFound(fmt.Sprintf("commit %s belongs to %q, not %q", c.ShortID(), c.Filename, filename))
	}
	if err := r.restore(filename, c); err != nil {
		return nil, err
	}
	return c, nil
}

// restore writes the content of c to the working file and drops the staged
// entry. The write runs inside the transaction that deletes the entry, so
// a failed write keeps it staged.
func (r *Repository) restore(filename string, c *history.Commit) error {
	log := r.Logger.ForFile(filename)

	content, err := r.Safe.Get(c.Hash)
	if err != nil {
		return classify(err, fmt.Sprintf("reading content of commit %s", c.ShortID()))
	}

	var cleared bool
	err = r.DB.Update(func(txn *badger.Txn) error {
		var err error
		if cleared, err = r.Index.ClearTxn(txn, filename); err != nil {
			return err
		}
		if err := writeWorkingFile(r.WorkingPath(filename), content); err != nil {
			return errors.Internal("writing working file", err)
		}
		return nil
	})
	if err != nil {
		return classify(err, "clearing staged entry")
	}

	log.Info("reverted",
		zap.String("commit", c.ID),
		zap.Uint64("seq", c.Seq),
		zap.Bool("discarded_staged", cleared))
	return nil
}

// Remove unstages name without touching the working file.
func (r *Repository) Remove(name string) (*staging.Entry, error) {
	filename, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	entry, err := r.Index.Peek(filename)
	if err != nil {
		return nil, classify(err, "reading staging index")
	}
	if entry == nil {
		return nil, errors.NothingStaged(filename)
	}

	if _, err := r.Index.Clear(filename); err != nil {
		return nil, classify(err, "clearing staged entry")
	}

	r.Logger.ForFile(filename).Info("unstaged", zap.String("hash", entry.Hash))
	return entry, nil
}

// Log returns the commits of name newest first, at most limit of them
// when limit is positive.
func (r *Repository) Log(name string, limit int) ([]*history.Commit, error) {
	filename, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	entries, err := r.History.Entries(filename)
	if err != nil {
		return nil, classify(err, "reading history")
	}

	out := make([]*history.Commit, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

// Show returns a commit and its content. ref is a tracked filename (its
// head is shown) or a commit id or unique id prefix.
func (r *Repository) Show(ref string) (*history.Commit, []byte, error) {
	var c *history.Commit

	filename, pathErr := r.Resolve(ref)
	if pathErr == nil {
		head, err := r.History.Head(filename)
		if err != nil {
			return nil, nil, classify(err, "reading history")
		}
		c = head
	}

	if c == nil {
		byID, err := r.History.Get(ref)
		switch {
		case err == nil:
			c = byID
		case pathErr == nil:
			return nil, nil, errors.NoCommit(filename)
		default:
			return nil, nil, classify(err, fmt.Sprintf("no commit named %q", ref))
		}
	}

	content, err := r.Safe.Get(c.Hash)
	if err != nil {
		return nil, nil, classify(err, fmt.Sprintf("reading content of commit %s", c.ShortID()))
	}
	return c, content, nil
}

// writeWorkingFile replaces path atomically, keeping the mode of the file
// it replaces.
func writeWorkingFile(path string, content []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
