package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

func quickRetry() sberrors.RetryConfig {
	return sberrors.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestFileLock_TryLock_Exclusive(t *testing.T) {
	// Given: two lock handles on the same path
	path := filepath.Join(t.TempDir(), "sub", "cache.lock")
	first := NewFileLock(path)
	second := NewFileLock(path)

	// When: the first acquires
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = first.Unlock() }()

	// Then: the second cannot
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, first.IsLocked())
	assert.False(t, second.IsLocked())
	assert.Equal(t, path, first.Path())
}

func TestFileLock_Unlock_ReleasesForOthers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.lock")
	first := NewFileLock(path)
	second := NewFileLock(path)

	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Unlock())
	assert.False(t, first.IsLocked())

	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
}

func TestFileLock_Unlock_SafeWhenNotHeld(t *testing.T) {
	l := NewFileLock(filepath.Join(t.TempDir(), "cache.lock"))

	assert.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock())
}

func TestFileLock_LockContext(t *testing.T) {
	t.Run("acquires free lock", func(t *testing.T) {
		l := NewFileLock(filepath.Join(t.TempDir(), "cache.lock"))

		require.NoError(t, l.LockContext(context.Background(), quickRetry()))
		assert.True(t, l.IsLocked())
		require.NoError(t, l.Unlock())
	})

	t.Run("busy after retries", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.lock")
		holder := NewFileLock(path)
		ok, err := holder.TryLock()
		require.NoError(t, err)
		require.True(t, ok)
		defer func() { _ = holder.Unlock() }()

		err = NewFileLock(path).LockContext(context.Background(), quickRetry())

		require.Error(t, err)
		assert.ErrorIs(t, err, sberrors.ErrCacheBusy)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewFileLock(filepath.Join(t.TempDir(), "cache.lock")).LockContext(ctx, quickRetry())

		assert.ErrorIs(t, err, context.Canceled)
	})
}
