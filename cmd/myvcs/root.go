package main

import (
	"fmt"

	"myvcs/internal/errors"
	"myvcs/internal/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "myvcs",
		Short: "Per-file snapshot version control",
		Long: `myvcs keeps a linear history of snapshots for individual files.
Stage a file with add, record it with commit and restore the last
committed snapshot with revert.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.EffectiveLevel(a.logLevel, "")
			logger, err := logging.NewLoggerTo(cmd.ErrOrStderr(), level)
			if err != nil {
				return errors.Usage(fmt.Sprintf("invalid log level %q", level)).Wrap(err)
			}
			a.logger = logger
			if a.noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Usage(err.Error())
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.dir, "repo", "C", "", "Run as if started in this directory (default: current directory)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides MYVCS_LOG_LEVEL and the repository config")
	flags.BoolVar(&a.json, "json", false, "Output in JSON format")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	flags.DurationVar(&a.lockTimeout, "lock-timeout", 0, "How long to wait for the repository lock (default: from config)")

	rootCmd.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newCommitCmd(a),
		newRevertCmd(a),
		newRemoveCmd(a),
		newStatusCmd(a),
		newLogCmd(a),
		newShowCmd(a),
		newVerifyCmd(a),
		newWatchCmd(a),
	)

	return rootCmd
}

// exactArgs is cobra.ExactArgs reporting a USAGE error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.Usage(fmt.Sprintf("%s: %v", cmd.CommandPath(), err))
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return errors.Usage(fmt.Sprintf("%s: %v", cmd.CommandPath(), err))
		}
		return nil
	}
}

func maximumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MaximumNArgs(n)(cmd, args); err != nil {
			return errors.Usage(fmt.Sprintf("%s: %v", cmd.CommandPath(), err))
		}
		return nil
	}
}
