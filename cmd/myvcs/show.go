package main

import (
	"myvcs/internal/errors"
	"myvcs/internal/repo"

	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file|commit>",
		Short: "Print the content of a commit",
		Long: `Writes the committed content to stdout. The argument is a tracked file,
whose latest commit is shown, or a commit id or unique id prefix. With
--json the commit is printed with its content base64 encoded.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]

			return a.withRepo(cmd, func(r *repo.Repository) error {
				// A tracked file is resolved against the working directory
				// like every other verb. Anything else goes through as is.
				target := ref
				if p, err := a.path(ref); err == nil {
					if f, err := r.Resolve(p); err == nil {
						if head, _ := r.History.Head(f); head != nil {
							target = p
						}
					}
				}

				c, content, err := r.Show(target)
				if err != nil {
					return err
				}

				if a.json {
					out := struct {
						*commitView
						Content []byte `json:"content"`
					}{newCommitView(c), content}
					return a.emit(cmd, out, nil)
				}

				if _, err := cmd.OutOrStdout().Write(content); err != nil {
					return errors.Internal("writing content", err)
				}
				return nil
			})
		},
	}
}
