package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, 7, 2, 12, 0, 0, 0, time.UTC)
	}
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "success_"), filepath.Join(dir, "error_")).WithClock(fixedClock())

	require.NoError(t, w.Success("sentinel-2-l2a", "prod-1"))
	require.NoError(t, w.Success("sentinel-2-l2a", "prod-2"))
	require.NoError(t, w.Failure("sentinel-3-syn-l2", "prod-3", 502, "upstream\nbroken"))
	require.NoError(t, w.Skipped("sentinel-2-l2a", "prod-4"))

	succ, err := os.ReadFile(filepath.Join(dir, "success_2024-07-02"))
	require.NoError(t, err)
	assert.Equal(t, "sentinel-2-l2a,prod-1\nsentinel-2-l2a,prod-2\n", string(succ))

	errs, err := os.ReadFile(filepath.Join(dir, "error_2024-07-02"))
	require.NoError(t, err)
	assert.Equal(t,
		"sentinel-3-syn-l2,prod-3,502:upstream broken\nsentinel-2-l2a,prod-4,0,Skipped existing product\n",
		string(errs))
}

func TestWriterCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	w := New(filepath.Join(dir, "reports", "success_"), "").WithClock(fixedClock())
	require.NoError(t, w.Success("c", "p"))
	_, err := os.Stat(filepath.Join(dir, "reports", "success_2024-07-02"))
	assert.NoError(t, err)
}

func TestWriterEmptyPrefixIsNoop(t *testing.T) {
	w := New("", "").WithClock(fixedClock())
	assert.NoError(t, w.Success("c", "p"))
	assert.NoError(t, w.Failure("c", "p", -1, "x"))
}
