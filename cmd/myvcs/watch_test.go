package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"myvcs/internal/logging"
	"myvcs/internal/repo"
	"myvcs/internal/safe"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is written by the watch loop and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFileWatcherMatch(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	fw := &fileWatcher{targets: map[string]string{path: "a.txt"}}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"other file", fsnotify.Event{Name: filepath.Join(root, "b.txt"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filename, ok := fw.match(tt.event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, "a.txt", filename)
			}
		})
	}
}

func TestFileWatcherDirs(t *testing.T) {
	fw := &fileWatcher{targets: map[string]string{
		"/r/a.txt":     "a.txt",
		"/r/b.txt":     "b.txt",
		"/r/doc/c.txt": "doc/c.txt",
	}}
	assert.Equal(t, []string{filepath.Dir("/r/a.txt"), filepath.Dir("/r/doc/c.txt")}, fw.dirs())
}

func startWatch(t *testing.T, dir string, args ...string) (*syncBuffer, func() int) {
	t.Helper()
	t.Setenv(logging.EnvLevel, "")

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	errOut := &syncBuffer{}
	done := make(chan int, 1)

	argv := append([]string{"-C", dir, "--no-color", "watch", "--debounce", "50ms"}, args...)
	go func() { done <- run(ctx, argv, out, errOut) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching")
	}, 5*time.Second, 10*time.Millisecond, errOut.String())

	stop := func() int {
		cancel()
		select {
		case code := <-done:
			return code
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop")
			return -1
		}
	}
	return out, stop
}

func TestWatchStagesChanges(t *testing.T) {
	dir := newRepoDir(t)
	writeFile(t, dir, "a.txt", "v1")

	out, stop := startWatch(t, dir, "a.txt")

	writeFile(t, dir, "a.txt", "v2")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Staged a.txt")
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, 0, stop())

	r, err := repo.Open(context.Background(), dir, repo.Options{})
	require.NoError(t, err)
	defer r.Close()

	entry, err := r.Index.Peek("a.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, safe.Hash([]byte("v2")), entry.Hash)
}

func TestWatchCommit(t *testing.T) {
	dir := newRepoDir(t)
	writeFile(t, dir, "a.txt", "v1")

	out, stop := startWatch(t, dir, "--commit", "-m", "autosave", "a.txt")

	writeFile(t, dir, "a.txt", "v2")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Committed a.txt")
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, 0, stop())

	r, err := repo.Open(context.Background(), dir, repo.Options{})
	require.NoError(t, err)
	defer r.Close()

	head, err := r.History.Head("a.txt")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, safe.Hash([]byte("v2")), head.Hash)
	assert.Equal(t, "autosave", head.Message)
}

func TestWatchRejectsBadTargets(t *testing.T) {
	dir := newRepoDir(t)

	res := runIn(t, dir, "watch", "../outside.txt")
	assert.Equal(t, 25, res.code)

	res = runIn(t, dir, "watch")
	assert.Equal(t, 2, res.code)
}
