package main

import (
	"fmt"
	"io"

	"myvcs/internal/repo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [files...]",
		Short: "Show the state of tracked files",
		Long:  `Shows each file's state: untracked, staged, committed, modified or missing. Without arguments every staged or committed file is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := make([]string, 0, len(args))
			for _, arg := range args {
				name, err := a.path(arg)
				if err != nil {
					return err
				}
				names = append(names, name)
			}

			return a.withRepo(cmd, func(r *repo.Repository) error {
				statuses, err := r.Status(names...)
				if err != nil {
					return err
				}

				views := make([]statusView, 0, len(statuses))
				for _, s := range statuses {
					views = append(views, newStatusView(s))
				}
				return a.emit(cmd, views, func(w io.Writer) {
					printStatus(w, statuses)
				})
			})
		},
	}
}

func printStatus(w io.Writer, statuses []repo.FileStatus) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	if len(statuses) == 0 {
		fmt.Fprintln(w, "Nothing tracked yet (use \"myvcs add <file>\" to stage a file)")
		return
	}

	for _, s := range statuses {
		var mark, note string
		switch s.State {
		case repo.StateStaged:
			mark = green("A")
			if s.Dirty() {
				note = yellow(" (changed since add)")
			}
		case repo.StateModified:
			mark = yellow("M")
		case repo.StateMissing:
			mark = red("D")
		case repo.StateUntracked:
			mark = blue("?")
		default:
			mark = " "
		}
		fmt.Fprintf(w, "%s %-10s %s%s\n", mark, s.State, s.Filename, note)
	}
}
