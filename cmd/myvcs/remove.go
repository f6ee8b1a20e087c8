package main

import (
	"fmt"
	"io"

	"myvcs/internal/errors"
	"myvcs/internal/repo"
	"myvcs/internal/staging"

	"github.com/spf13/cobra"
)

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <file>...",
		Aliases: []string{"rm", "unstage"},
		Short:   "Unstage files",
		Long: `Discards the staged content of each file. The working files are left
untouched. Nothing is unstaged unless every named file has a staged entry.`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRepo(cmd, func(r *repo.Repository) error {
				filenames, err := a.resolveAll(r, args)
				if err != nil {
					return err
				}
				for _, f := range filenames {
					entry, err := r.Index.Peek(f)
					if err != nil {
						return errors.Internal("reading staging index", err)
					}
					if entry == nil {
						return errors.NothingStaged(f)
					}
				}

				entries := make([]*staging.Entry, 0, len(filenames))
				for _, f := range filenames {
					entry, err := r.Remove(f)
					if err != nil {
						return err
					}
					entries = append(entries, entry)
				}

				return a.emit(cmd, entryViews(entries), func(w io.Writer) {
					for _, e := range entries {
						fmt.Fprintf(w, "Unstaged %s\n", e.Filename)
					}
				})
			})
		},
	}
}
