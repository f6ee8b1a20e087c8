// internal/repo/repo.go
package repo

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"myvcs/internal/config"
	"myvcs/internal/errors"
	"myvcs/internal/history"
	"myvcs/internal/lock"
	"myvcs/internal/logging"
	"myvcs/internal/safe"
	"myvcs/internal/staging"
	"myvcs/internal/storage"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DirName is the repository directory created at the root of the
// working tree.
const DirName = ".myvcs"

const (
	dbDir      = "db"
	objectsDir = "objects"
	lockFile   = "lock"
)

// Repository is an open, locked repository. Every operation runs against
// the state loaded by Open; Close persists nothing further and releases
// the lock.
type Repository struct {
	Root    string // working tree root
	Dir     string // Root/.myvcs
	Config  *config.Config
	DB      *badger.DB
	Safe    *safe.Safe
	Index   *staging.Index
	History *history.History
	Logger  *logging.Logger

	lock *lock.Lock
}

// Options tunes Init and Open.
type Options struct {
	Logger *logging.Logger
	// LockTimeout overrides the configured lock timeout when positive.
	LockTimeout time.Duration
}

func (o Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.Nop()
	}
	return o.Logger
}

func (o Options) lockTimeout(cfg *config.Config) time.Duration {
	if o.LockTimeout > 0 {
		return o.LockTimeout
	}
	return cfg.LockTimeout
}

// IsInitialized reports whether root holds a populated repository.
func IsInitialized(root string) bool {
	_, err := os.Stat(filepath.Join(root, DirName, config.FileName))
	return err == nil
}

// Init creates an empty repository at root. An already initialized root
// is an ALREADY_INITIALIZED error; callers that want idempotent init
// check for that code.
func Init(ctx context.Context, root, name string, opts Options) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return errors.Internal("resolving repository root", err)
	}
	logger := opts.logger()

	if IsInitialized(absRoot) {
		return errors.AlreadyInitialized(absRoot)
	}

	dir := filepath.Join(absRoot, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Internal("creating repository directory", err)
	}

	cfg := config.Default()
	l, err := acquire(ctx, dir, opts.lockTimeout(cfg))
	if err != nil {
		return err
	}
	defer l.Release()

	// Another init may have finished while we waited for the lock.
	if IsInitialized(absRoot) {
		return errors.AlreadyInitialized(absRoot)
	}

	for _, sub := range []string{dbDir, objectsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return errors.Internal(fmt.Sprintf("creating %s directory", sub), err)
		}
	}

	db, err := storage.OpenDB(filepath.Join(dir, dbDir))
	if err != nil {
		return errors.Internal("creating database", err)
	}
	if err := db.Close(); err != nil {
		return errors.Internal("closing database", err)
	}

	// The config file is written last: its presence marks a complete init.
	cfg.Name = name
	cfg.Created = time.Now().UTC()
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return errors.Internal("writing config", err)
	}

	logger.Info("initialized repository", zap.String("root", absRoot), zap.String("name", name))
	return nil
}

// FindRoot searches start and its parents for an initialized repository.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Internal("resolving start directory", err)
	}
	origin := dir

	for {
		if IsInitialized(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotInitialized(origin)
}

// Open locates the repository containing start, takes the repository
// lock and loads its stores. The lock is held until Close.
func Open(ctx context.Context, start string, opts Options) (*Repository, error) {
	root, err := FindRoot(start)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(root, DirName)
	logger := opts.logger()

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		return nil, errors.Internal("loading config", err)
	}

	l, err := acquire(ctx, dir, opts.lockTimeout(cfg))
	if err != nil {
		return nil, err
	}

	r := &Repository{
		Root:   root,
		Dir:    dir,
		Config: cfg,
		Logger: logger,
		lock:   l,
	}

	r.DB, err = storage.OpenDB(filepath.Join(dir, dbDir))
	if err != nil {
		r.Close()
		return nil, errors.Internal("opening database", err)
	}

	r.Safe, err = safe.New(r.DB, safe.Options{
		Root:      filepath.Join(dir, objectsDir),
		CacheSize: cfg.CacheSize,
		Compression: safe.CompressionOptions{
			Enabled: cfg.Compression.Enabled,
			MinSize: cfg.Compression.MinSize,
			Level:   cfg.Compression.Level,
		},
		Logger: logger.Logger,
	})
	if err != nil {
		r.Close()
		return nil, errors.Internal("opening content store", err)
	}

	r.Index = staging.NewIndex(r.DB)
	r.History = history.New(r.DB)

	logger.Debug("opened repository", zap.String("root", root))
	return r, nil
}

func acquire(ctx context.Context, dir string, timeout time.Duration) (*lock.Lock, error) {
	l, err := lock.Acquire(ctx, filepath.Join(dir, lockFile), timeout)
	if err == nil {
		return l, nil
	}
	if stderrors.Is(err, lock.ErrTimeout) {
		return nil, errors.Busy(fmt.Sprintf("repository is locked by another process (waited %s)", timeout)).Wrap(err)
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return nil, errors.Busy("gave up waiting for the repository lock").Wrap(err)
	}
	return nil, errors.Internal("acquiring repository lock", err)
}

// Close releases the stores and the repository lock. The lock is
// released even when closing a store fails.
func (r *Repository) Close() error {
	if r == nil {
		return nil
	}

	var err error
	if r.Safe != nil {
		r.Safe.Close()
		r.Safe = nil
	}
	if r.DB != nil {
		err = multierr.Append(err, r.DB.Close())
		r.DB = nil
	}
	err = multierr.Append(err, r.lock.Release())
	r.lock = nil

	if err != nil {
		return fmt.Errorf("closing repository: %w", err)
	}
	return nil
}

// classify maps store-level failures onto the command error taxonomy.
func classify(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case stderrors.As(err, new(*errors.Error)):
		return err
	case stderrors.Is(err, safe.ErrContentNotFound):
		return errors.NotFound(what).Wrap(err)
	case stderrors.Is(err, safe.ErrHashMismatch):
		return errors.Corrupt(what, nil).Wrap(err)
	case stderrors.Is(err, history.ErrUnknownCommit):
		return errors.NotFound(what).Wrap(err)
	default:
		return errors.Internal(what, err)
	}
}
