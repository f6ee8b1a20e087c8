package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"

	"myvcs/internal/errors"
	"myvcs/internal/repo"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [name]",
		Short: "Initialize a new repository",
		Long: `Creates an empty repository in the working directory. Running init
on an initialized directory fails with ALREADY_INITIALIZED unless
--exist-ok is given.`,
		Args: maximumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existOK, _ := cmd.Flags().GetBool("exist-ok")

			root, err := a.workDir()
			if err != nil {
				return err
			}
			name := filepath.Base(root)
			if len(args) == 1 {
				name = args[0]
			}

			created := true
			err = repo.Init(cmd.Context(), root, name, a.options())
			if existOK && stderrors.Is(err, errors.ErrAlreadyInitialized) {
				created, err = false, nil
			}
			if err != nil {
				return err
			}

			out := struct {
				Root    string `json:"root"`
				Name    string `json:"name"`
				Created bool   `json:"created"`
			}{root, name, created}

			return a.emit(cmd, out, func(w io.Writer) {
				if created {
					fmt.Fprintln(w, "Initialized empty repository in", filepath.Join(root, repo.DirName))
				} else {
					fmt.Fprintln(w, "Repository already initialized in", filepath.Join(root, repo.DirName))
				}
			})
		},
	}

	cmd.Flags().Bool("exist-ok", false, "Succeed without changes if the repository already exists")
	return cmd
}
