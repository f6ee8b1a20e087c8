package lock

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	l, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	require.NoError(t, l.Release())

	// Released locks can be taken again
	l2, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquireContendedTimesOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	held, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer held.Release()

	start := time.Now()
	_, err = Acquire(context.Background(), path, 100*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAcquireAfterHolderReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	held, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		held.Release()
	}()

	l, err := Acquire(context.Background(), path, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestAcquireCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")

	held, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Acquire(ctx, path, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReleaseTwice(t *testing.T) {
	l, err := Acquire(context.Background(), filepath.Join(t.TempDir(), "lock"), time.Second)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	assert.NoError(t, l.Release())

	var nilLock *Lock
	assert.NoError(t, nilLock.Release())
}
