// internal/safe/safe.go
package safe

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"myvcs/internal/storage"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrInvalidHash     = errors.New("invalid content hash")
	ErrHashMismatch    = errors.New("content hash mismatch")
)

const metaPrefix = "blob"

// BlobMeta stores metadata about stored content
type BlobMeta struct {
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	StoredSize int64     `json:"stored_size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *BlobMeta) GetID() string { return m.Hash }

// Safe is the content-addressed blob store. Blobs are immutable: once a
// hash is stored its content never changes and is never removed.
type Safe struct {
	root   string
	meta   *storage.BadgerStore
	cache  *lru.Cache[string, []byte]
	comp   *compressionManager
	logger *zap.Logger
}

// Options configures Safe behavior
type Options struct {
	Root        string // Root directory for blob files
	CacheSize   int    // Number of blobs to cache
	Compression CompressionOptions
	Logger      *zap.Logger
}

// New creates a new Safe instance
func New(db *badger.DB, opts Options) (*Safe, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}

	if err := os.MkdirAll(opts.Root, 0755); err != nil {
		return nil, fmt.Errorf("creating root directory: %w", err)
	}

	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	cache, err := lru.New[string, []byte](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	comp, err := newCompressionManager(opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("creating compression manager: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Safe{
		root:   opts.Root,
		meta:   storage.NewBadgerStore(db, metaPrefix),
		cache:  cache,
		comp:   comp,
		logger: logger,
	}, nil
}

// Hash returns the content address of content.
func Hash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Put stores content if absent and returns its hash. Storing content that
// is already present performs no write.
func (s *Safe) Put(content []byte) (string, error) {
	if content == nil {
		content = []byte{}
	}

	hash := Hash(content)
	path := s.contentPath(hash)

	meta, err := s.getMeta(hash)
	switch {
	case err == nil:
		if _, statErr := os.Stat(path); statErr == nil {
			s.logger.Debug("blob already stored", zap.String("hash", hash))
			return hash, nil
		}
		// Metadata without a file: rewrite the blob from the caller's bytes.
		s.logger.Warn("blob file missing, restoring", zap.String("hash", hash))
	case errors.Is(err, ErrContentNotFound):
		meta = BlobMeta{Hash: hash, Size: int64(len(content)), CreatedAt: time.Now().UTC()}
	default:
		return "", fmt.Errorf("checking existence: %w", err)
	}

	data, compressed := s.comp.compress(content)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("writing content file: %w", err)
	}

	meta.Compressed = compressed
	meta.StoredSize = int64(len(data))
	if err := s.meta.Put(&meta); err != nil {
		return "", fmt.Errorf("storing metadata: %w", err)
	}

	s.cache.Add(hash, bytes.Clone(content))
	s.logger.Debug("blob stored",
		zap.String("hash", hash),
		zap.Int64("size", meta.Size),
		zap.Bool("compressed", compressed))

	return hash, nil
}

// Get retrieves content by hash
func (s *Safe) Get(hash string) ([]byte, error) {
	if !isValidHash(hash) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}

	// The cache owns its slices; callers always get a copy.
	if content, ok := s.cache.Get(hash); ok {
		return bytes.Clone(content), nil
	}

	meta, err := s.getMeta(hash)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.contentPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (file missing)", ErrContentNotFound, hash)
		}
		return nil, fmt.Errorf("reading content: %w", err)
	}

	content := data
	if meta.Compressed {
		content, err = s.comp.decompress(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrHashMismatch, hash, err)
		}
	}

	if Hash(content) != hash {
		return nil, fmt.Errorf("%w: %s", ErrHashMismatch, hash)
	}

	s.cache.Add(hash, content)
	return bytes.Clone(content), nil
}

// Exists checks if content exists
func (s *Safe) Exists(hash string) (bool, error) {
	if !isValidHash(hash) {
		return false, fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}

	if s.cache.Contains(hash) {
		return true, nil
	}

	_, err := s.getMeta(hash)
	if errors.Is(err, ErrContentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Verify re-reads a blob from disk, bypassing the cache, and checks that
// it still hashes to its address.
func (s *Safe) Verify(hash string) error {
	s.cache.Remove(hash)
	_, err := s.Get(hash)
	return err
}

// Walk calls fn for the metadata of every stored blob, ordered by hash.
func (s *Safe) Walk(fn func(meta BlobMeta) error) error {
	return s.meta.Scan("", func(_ string, val []byte) error {
		var meta BlobMeta
		if err := json.Unmarshal(val, &meta); err != nil {
			return fmt.Errorf("decoding blob metadata: %w", err)
		}
		return fn(meta)
	})
}

// Close releases the compression codecs.
func (s *Safe) Close() {
	s.comp.close()
	s.cache.Purge()
}

// Internal helper functions

func (s *Safe) contentPath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}

func isValidHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

func (s *Safe) getMeta(hash string) (BlobMeta, error) {
	var meta BlobMeta
	err := s.meta.Get(hash, &meta)
	if errors.Is(err, storage.ErrNotFound) {
		return meta, fmt.Errorf("%w: %s", ErrContentNotFound, hash)
	}
	return meta, err
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so a reader never sees a partial blob.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0444); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
