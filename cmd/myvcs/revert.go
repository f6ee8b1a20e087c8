package main

import (
	"fmt"
	"io"

	"myvcs/internal/history"
	"myvcs/internal/repo"

	"github.com/spf13/cobra"
)

func newRevertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revert <file>",
		Short: "Restore a file to a committed snapshot",
		Long: `Overwrites the working file with its most recent committed snapshot, or
with an earlier one given by --to, and discards any staged content. No
commit is created and the history is left as it is.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			name, err := a.path(args[0])
			if err != nil {
				return err
			}

			return a.withRepo(cmd, func(r *repo.Repository) error {
				var c *history.Commit
				if to != "" {
					c, err = r.RevertTo(name, to)
				} else {
					c, err = r.Revert(name)
				}
				if err != nil {
					return err
				}
				return a.emit(cmd, newCommitView(c), func(w io.Writer) {
					fmt.Fprintf(w, "Reverted %s to %s (#%d)\n", c.Filename, c.ShortID(), c.Seq)
				})
			})
		},
	}

	cmd.Flags().String("to", "", "Commit id or unique id prefix to restore instead of the latest")
	return cmd
}
