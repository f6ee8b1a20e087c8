package main

import (
	"fmt"
	"io"
	"sort"

	"myvcs/internal/errors"
	"myvcs/internal/repo"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the integrity of stored content",
		Long:  `Re-hashes every stored snapshot and checks that all commits and staged entries reference readable content. Exits with CORRUPT when a problem is found.`,
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRepo(cmd, func(r *repo.Repository) error {
				report, err := r.Verify(cmd.Context())
				if err != nil {
					return err
				}

				out := struct {
					Blobs    int               `json:"blobs"`
					Commits  int               `json:"commits"`
					Staged   int               `json:"staged"`
					OK       bool              `json:"ok"`
					Problems map[string]string `json:"problems,omitempty"`
				}{report.Blobs, report.Commits, report.Staged, report.OK(), report.Problems}

				err = a.emit(cmd, out, func(w io.Writer) {
					printVerify(w, report)
				})
				if err != nil {
					return err
				}

				if !report.OK() {
					return errors.Corrupt(fmt.Sprintf("%d damaged or missing snapshot(s)", len(report.Problems)), report.Problems)
				}
				return nil
			})
		},
	}
}

func printVerify(w io.Writer, report *repo.VerifyReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "Checked %d snapshot(s), %d commit(s), %d staged file(s)\n",
		report.Blobs, report.Commits, report.Staged)

	if report.OK() {
		fmt.Fprintln(w, green("ok"))
		return
	}

	hashes := make([]string, 0, len(report.Problems))
	for h := range report.Problems {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	for _, h := range hashes {
		fmt.Fprintf(w, "%s %s: %s\n", red("✗"), shortHash(h), report.Problems[h])
	}
}
