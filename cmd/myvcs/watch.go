package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"myvcs/internal/errors"
	"myvcs/internal/repo"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <files...>",
		Short: "Stage files automatically when they change",
		Long: `Watches the given files and runs add whenever one is written. With
--commit every staged change is committed right away. The repository
is only locked while a change is being recorded.`,
		Args: minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debounce, _ := cmd.Flags().GetDuration("debounce")
			commit, _ := cmd.Flags().GetBool("commit")
			message, _ := cmd.Flags().GetString("message")

			fw, err := a.newFileWatcher(cmd, args)
			if err != nil {
				return err
			}
			fw.debounce = debounce
			fw.commit = commit
			fw.message = message

			return fw.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().Duration("debounce", 300*time.Millisecond, "Quiet period before a change is recorded")
	cmd.Flags().Bool("commit", false, "Commit each change after staging it")
	cmd.Flags().StringP("message", "m", "auto: watch", "Commit message used with --commit")
	return cmd
}

// fileWatcher maps filesystem events on a fixed set of working files to
// add, and optionally commit, calls.
type fileWatcher struct {
	a        *app
	root     string
	targets  map[string]string // working path -> filename
	debounce time.Duration
	commit   bool
	message  string
	logger   *zap.Logger
}

func (a *app) newFileWatcher(cmd *cobra.Command, args []string) (*fileWatcher, error) {
	fw := &fileWatcher{
		a:        a,
		targets:  make(map[string]string, len(args)),
		debounce: 300 * time.Millisecond,
	}

	err := a.withRepo(cmd, func(r *repo.Repository) error {
		fw.root = r.Root
		for _, arg := range args {
			name, err := a.path(arg)
			if err != nil {
				return err
			}
			filename, err := r.Resolve(name)
			if err != nil {
				return err
			}
			fw.targets[r.WorkingPath(filename)] = filename
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	fw.logger = a.logger.Named("watch")
	return fw, nil
}

// dirs returns the parent directories to watch. Editors often replace a
// file by renaming over it, so watching the file itself would lose it.
func (fw *fileWatcher) dirs() []string {
	seen := map[string]bool{}
	var dirs []string
	for path := range fw.targets {
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// match reports the tracked filename an event refers to.
func (fw *fileWatcher) match(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return "", false
	}
	filename, ok := fw.targets[filepath.Clean(event.Name)]
	return filename, ok
}

func (fw *fileWatcher) run(ctx context.Context, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Internal("creating file watcher", err)
	}
	defer watcher.Close()

	for _, dir := range fw.dirs() {
		if err := watcher.Add(dir); err != nil {
			return errors.Internal(fmt.Sprintf("watching %s", dir), err)
		}
	}

	fmt.Fprintf(out, "Watching %d file(s) in %s...\n", len(fw.targets), fw.root)

	timer := time.NewTimer(fw.debounce)
	timer.Stop()
	pending := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			filename, ok := fw.match(event)
			if !ok {
				continue
			}
			pending[filename] = true
			timer.Reset(fw.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			err := fw.flush(ctx, out, pending)
			switch {
			case err == nil:
				clear(pending)
			case stderrors.Is(err, errors.ErrBusy):
				fw.logger.Info("repository busy, retrying", zap.Int("pending", len(pending)))
				timer.Reset(fw.debounce)
			default:
				return err
			}
		}
	}
}

// flush records every pending file in a single open-lock-close cycle.
// Files that are unchanged since their last add or commit are skipped.
func (fw *fileWatcher) flush(ctx context.Context, out io.Writer, pending map[string]bool) error {
	filenames := make([]string, 0, len(pending))
	for f := range pending {
		filenames = append(filenames, f)
	}
	sort.Strings(filenames)

	r, err := repo.Open(ctx, fw.root, fw.a.options())
	if err != nil {
		return err
	}
	defer r.Close()

	statuses, err := r.Status(filenames...)
	if err != nil {
		return err
	}

	for _, st := range statuses {
		if !st.Exists || !st.Dirty() {
			continue
		}

		entry, err := r.Add(st.Filename)
		if stderrors.Is(err, errors.ErrFileNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if !fw.commit {
			fmt.Fprintf(out, "Staged %s (%s)\n", entry.Filename, shortHash(entry.Hash))
			continue
		}

		c, err := r.Commit(entry.Filename, fw.message)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Committed %s as %s (#%d)\n", c.Filename, c.ShortID(), c.Seq)
	}
	return nil
}
