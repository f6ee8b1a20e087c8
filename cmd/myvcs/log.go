package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"myvcs/internal/history"
	"myvcs/internal/repo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newLogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <file>",
		Short: "Show the commit history of a file",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			name, err := a.path(args[0])
			if err != nil {
				return err
			}

			return a.withRepo(cmd, func(r *repo.Repository) error {
				commits, err := r.Log(name, limit)
				if err != nil {
					return err
				}

				views := make([]*commitView, 0, len(commits))
				for _, c := range commits {
					views = append(views, newCommitView(c))
				}
				return a.emit(cmd, views, func(w io.Writer) {
					printLog(w, commits)
				})
			})
		},
	}

	cmd.Flags().IntP("limit", "n", 0, "Show at most this many commits")
	return cmd
}

func printLog(w io.Writer, commits []*history.Commit) {
	yellow := color.New(color.FgYellow).SprintFunc()

	if len(commits) == 0 {
		fmt.Fprintln(w, "No commits yet")
		return
	}

	for i, c := range commits {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (#%d)\n", yellow("commit "+c.ID), c.Seq)
		fmt.Fprintf(w, "Date:   %s\n", c.Timestamp.Local().Format(time.RFC1123Z))
		fmt.Fprintf(w, "Hash:   %s\n", c.Hash)
		if c.Message != "" {
			fmt.Fprintln(w)
			for _, line := range strings.Split(c.Message, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
}
