package repo

import (
	"context"
	"os"
	"sort"

	"myvcs/internal/errors"
	"myvcs/internal/history"
	"myvcs/internal/safe"
	"myvcs/internal/staging"

	"go.uber.org/zap"
)

// State is where a file sits in the add/commit/revert cycle.
type State string

const (
	StateUntracked State = "untracked"
	StateStaged    State = "staged"
	StateCommitted State = "committed"
	StateModified  State = "modified"
	StateMissing   State = "missing"
)

// FileStatus describes one file against its staged entry and head.
type FileStatus struct {
	Filename    string
	State       State
	Exists      bool
	WorkingHash string
	Staged      *staging.Entry
	Head        *history.Commit
}

// Dirty reports whether the working file differs from what the next
// commit or revert would use.
func (s FileStatus) Dirty() bool {
	if !s.Exists {
		return s.Head != nil || s.Staged != nil
	}
	switch {
	case s.Staged != nil:
		return s.WorkingHash != s.Staged.Hash
	case s.Head != nil:
		return s.WorkingHash != s.Head.Hash
	}
	return true
}

// Status reports the state of the named files, or of every staged or
// committed file when names is empty. Results are ordered by filename.
func (r *Repository) Status(names ...string) ([]FileStatus, error) {
	filenames, err := r.statusTargets(names)
	if err != nil {
		return nil, err
	}

	out := make([]FileStatus, 0, len(filenames))
	for _, filename := range filenames {
		st, err := r.fileStatus(filename)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *Repository) statusTargets(names []string) ([]string, error) {
	seen := map[string]bool{}
	var filenames []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			filenames = append(filenames, f)
		}
	}

	if len(names) > 0 {
		for _, name := range names {
			f, err := r.Resolve(name)
			if err != nil {
				return nil, err
			}
			add(f)
		}
		sort.Strings(filenames)
		return filenames, nil
	}

	staged, err := r.Index.List()
	if err != nil {
		return nil, classify(err, "listing staged files")
	}
	for _, e := range staged {
		add(e.Filename)
	}

	committed, err := r.History.Files()
	if err != nil {
		return nil, classify(err, "listing committed files")
	}
	for _, f := range committed {
		add(f)
	}

	sort.Strings(filenames)
	return filenames, nil
}

func (r *Repository) fileStatus(filename string) (FileStatus, error) {
	st := FileStatus{Filename: filename}

	var err error
	if st.Staged, err = r.Index.Peek(filename); err != nil {
		return st, classify(err, "reading staging index")
	}
	if st.Head, err = r.History.Head(filename); err != nil {
		return st, classify(err, "reading history")
	}

	content, err := os.ReadFile(r.WorkingPath(filename))
	switch {
	case err == nil:
		st.Exists = true
		st.WorkingHash = safe.Hash(content)
	case os.IsNotExist(err):
	default:
		return st, errors.Internal("reading working file", err)
	}

	switch {
	case st.Staged != nil:
		st.State = StateStaged
	case st.Head != nil && !st.Exists:
		st.State = StateMissing
	case st.Head != nil && st.WorkingHash == st.Head.Hash:
		st.State = StateCommitted
	case st.Head != nil:
		st.State = StateModified
	default:
		st.State = StateUntracked
	}
	return st, nil
}

// VerifyReport summarises an integrity check.
type VerifyReport struct {
	Blobs   int
	Commits int
	Staged  int
	// Problems maps a blob hash to what is wrong with it.
	Problems map[string]string
}

func (v *VerifyReport) OK() bool { return len(v.Problems) == 0 }

// Verify re-hashes every stored blob and checks that every commit and
// staged entry references a readable blob.
func (r *Repository) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{Problems: map[string]string{}}

	err := r.Safe.Walk(func(meta safe.BlobMeta) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Blobs++
		if err := r.Safe.Verify(meta.Hash); err != nil {
			report.Problems[meta.Hash] = err.Error()
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, "walking content store")
	}

	check := func(hash, owner string) {
		if _, bad := report.Problems[hash]; bad {
			return
		}
		ok, err := r.Safe.Exists(hash)
		if err != nil || !ok {
			report.Problems[hash] = "referenced by " + owner + " but not stored"
		}
	}

	files, err := r.History.Files()
	if err != nil {
		return nil, classify(err, "listing committed files")
	}
	for _, f := range files {
		for c, err := range r.History.Log(f) {
			if err != nil {
				return nil, classify(err, "reading history")
			}
			report.Commits++
			check(c.Hash, "commit "+c.ShortID())
		}
	}

	staged, err := r.Index.List()
	if err != nil {
		return nil, classify(err, "listing staged files")
	}
	for _, e := range staged {
		report.Staged++
		check(e.Hash, "staged "+e.Filename)
	}

	if !report.OK() {
		r.Logger.Warn("integrity problems found", zap.Int("count", len(report.Problems)))
	}
	return report, nil
}
