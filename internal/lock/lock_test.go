package lock

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "pipeline.lock")

	l, err := Acquire(path, 0)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, l.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Releasing twice must stay quiet.
	assert.NoError(t, l.Release())
}

func TestAcquireHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")

	first, err := Acquire(path, 0)
	require.NoError(t, err)
	defer first.Release()

	_, err = Acquire(path, 0)
	assert.ErrorIs(t, err, ErrHeld)
}

func TestAcquireStaleTakeover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	l, err := Acquire(path, time.Hour)
	require.NoError(t, err, "a lock older than the stale threshold should be taken over")
	require.NoError(t, l.Release())
}

func TestAcquireFreshLockNotStolen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o644))

	_, err := Acquire(path, time.Hour)
	assert.ErrorIs(t, err, ErrHeld)
}
