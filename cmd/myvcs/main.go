// cmd/myvcs/main.go
package main

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"myvcs/internal/config"
	"myvcs/internal/errors"
	"myvcs/internal/logging"
	"myvcs/internal/repo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(version, a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err == nil {
		return 0
	}

	// Anything cobra rejects before a command runs is a usage error.
	if !stderrors.As(err, new(*errors.Error)) {
		err = errors.Usage(err.Error())
	}
	if a.logger != nil {
		a.logger.Debug("command failed", zap.Error(err))
	}
	a.reportError(stderr, err)
	return errors.ExitCode(err)
}

type app struct {
	dir         string
	logLevel    string
	json        bool
	noColor     bool
	lockTimeout time.Duration

	logger *logging.Logger
}

// workDir is where repository discovery starts and what relative file
// arguments are resolved against.
func (a *app) workDir() (string, error) {
	dir := a.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Internal("getting current directory", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Internal("resolving working directory", err)
	}
	return abs, nil
}

func (a *app) path(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return name, nil
	}
	wd, err := a.workDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, name), nil
}

// resolveAll maps file arguments to repository filenames, dropping
// repeats. It fails on the first invalid name.
func (a *app) resolveAll(r *repo.Repository, args []string) ([]string, error) {
	seen := make(map[string]bool, len(args))
	filenames := make([]string, 0, len(args))
	for _, arg := range args {
		name, err := a.path(arg)
		if err != nil {
			return nil, err
		}
		f, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			filenames = append(filenames, f)
		}
	}
	return filenames, nil
}

func (a *app) options() repo.Options {
	return repo.Options{Logger: a.logger, LockTimeout: a.lockTimeout}
}

// adoptConfigLevel switches to the repository's configured log level
// when neither the flag nor the environment picked one.
func (a *app) adoptConfigLevel(cmd *cobra.Command, wd string) {
	current := logging.EffectiveLevel(a.logLevel, "")
	root, err := repo.FindRoot(wd)
	if err != nil {
		return
	}
	cfg, err := config.Load(filepath.Join(root, repo.DirName, config.FileName))
	if err != nil {
		return
	}
	level := logging.EffectiveLevel(a.logLevel, cfg.LogLevel)
	if level == current {
		return
	}
	logger, err := logging.NewLoggerTo(cmd.ErrOrStderr(), level)
	if err != nil {
		a.logger.Warn("ignoring configured log level", zap.String("level", level), zap.Error(err))
		return
	}
	a.logger = logger
}

func (a *app) open(cmd *cobra.Command) (*repo.Repository, error) {
	wd, err := a.workDir()
	if err != nil {
		return nil, err
	}
	a.adoptConfigLevel(cmd, wd)
	return repo.Open(cmd.Context(), wd, a.options())
}

// withRepo opens the repository for the duration of fn. The lock is
// released before the command returns, whatever fn does.
func (a *app) withRepo(cmd *cobra.Command, fn func(*repo.Repository) error) (err error) {
	r, err := a.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = errors.Internal("closing repository", cerr)
		}
	}()
	return fn(r)
}
