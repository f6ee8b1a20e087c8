package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"myvcs/internal/errors"
	"myvcs/internal/history"
	"myvcs/internal/repo"
	"myvcs/internal/staging"

	"github.com/spf13/cobra"
)

// errorView is the --json form of a failure on stderr.
type errorView struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code     errors.ErrorType `json:"code"`
	Message  string           `json:"message"`
	ExitCode int              `json:"exit_code"`
	Details  any              `json:"details,omitempty"`
}

// reportError writes err to w as a single line, "myvcs: <CODE>: <message>",
// or as a JSON object with --json.
func (a *app) reportError(w io.Writer, err error) {
	e := errors.As(err)
	if a.json {
		_ = json.NewEncoder(w).Encode(errorView{Error: errorBody{
			Code:     e.Type,
			Message:  e.Error(),
			ExitCode: errors.ExitCode(e),
			Details:  e.Details,
		}})
		return
	}
	fmt.Fprintf(w, "myvcs: %s: %s\n", e.Type, e.Error())
}

// emit writes v as JSON with --json, otherwise calls text.
func (a *app) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if a.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errors.Internal("encoding output", err)
		}
		return nil
	}
	text(w)
	return nil
}

type entryView struct {
	File     string    `json:"file"`
	Hash     string    `json:"hash"`
	StagedAt time.Time `json:"staged_at"`
}

func newEntryView(e *staging.Entry) *entryView {
	if e == nil {
		return nil
	}
	return &entryView{File: e.Filename, Hash: e.Hash, StagedAt: e.StagedAt}
}

type commitView struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	File      string    `json:"file"`
	Hash      string    `json:"hash"`
	Parent    string    `json:"parent,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newCommitView(c *history.Commit) *commitView {
	if c == nil {
		return nil
	}
	return &commitView{
		ID:        c.ID,
		Seq:       c.Seq,
		File:      c.Filename,
		Hash:      c.Hash,
		Parent:    c.Parent,
		Message:   c.Message,
		Timestamp: c.Timestamp,
	}
}

type statusView struct {
	File        string      `json:"file"`
	State       repo.State  `json:"state"`
	Exists      bool        `json:"exists"`
	Dirty       bool        `json:"dirty"`
	WorkingHash string      `json:"working_hash,omitempty"`
	Staged      *entryView  `json:"staged,omitempty"`
	Head        *commitView `json:"head,omitempty"`
}

func newStatusView(s repo.FileStatus) statusView {
	return statusView{
		File:        s.Filename,
		State:       s.State,
		Exists:      s.Exists,
		Dirty:       s.Dirty(),
		WorkingHash: s.WorkingHash,
		Staged:      newEntryView(s.Staged),
		Head:        newCommitView(s.Head),
	}
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
