package main

import (
	"fmt"
	"io"

	"myvcs/internal/repo"

	"github.com/spf13/cobra"
)

func newCommitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <file>",
		Short: "Record the staged content of a file",
		Long:  `Records the staged snapshot as the file's newest commit and clears the staging entry.`,
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, _ := cmd.Flags().GetString("message")
			name, err := a.path(args[0])
			if err != nil {
				return err
			}

			return a.withRepo(cmd, func(r *repo.Repository) error {
				c, err := r.Commit(name, message)
				if err != nil {
					return err
				}
				return a.emit(cmd, newCommitView(c), func(w io.Writer) {
					fmt.Fprintf(w, "Committed %s as %s (#%d)\n", c.Filename, c.ShortID(), c.Seq)
				})
			})
		},
	}

	cmd.Flags().StringP("message", "m", "", "Commit message")
	return cmd
}
