package main

import (
	"fmt"
	"io"
	"os"

	"myvcs/internal/errors"
	"myvcs/internal/repo"
	"myvcs/internal/staging"

	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Stage the current content of files",
		Long: `Stores each file's current content and stages it for the next commit.
Adding again replaces the staged content. All files are checked before
any is staged, so a missing or invalid name changes nothing.`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepo(cmd, func(r *repo.Repository) error {
				filenames, err := a.resolveAll(r, args)
				if err != nil {
					return err
				}
				for _, f := range filenames {
					info, err := os.Stat(r.WorkingPath(f))
					if err != nil || info.IsDir() {
						return errors.FileNotFound(f)
					}
				}

				entries := make([]*staging.Entry, 0, len(filenames))
				for _, f := range filenames {
					entry, err := r.Add(f)
					if err != nil {
						return err
					}
					entries = append(entries, entry)
				}

				return a.emit(cmd, entryViews(entries), func(w io.Writer) {
					for _, e := range entries {
						fmt.Fprintf(w, "Staged %s (%s)\n", e.Filename, shortHash(e.Hash))
					}
				})
			})
		},
	}
}

// entryViews keeps the single-file JSON shape an object and uses an
// array only when several files were named.
func entryViews(entries []*staging.Entry) any {
	if len(entries) == 1 {
		return newEntryView(entries[0])
	}
	views := make([]*entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e))
	}
	return views
}
