package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eo-cat/sentinel-stac/internal/lister"
	"github.com/eo-cat/sentinel-stac/internal/lock"
)

type fakeLister struct {
	ids []string
	err error
}

func (f *fakeLister) Run(context.Context) (lister.Result, error) {
	if f.err != nil {
		return lister.Result{}, f.err
	}
	return lister.Result{IDs: f.ids}, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
}

func (r *recordingPublisher) publish(_ context.Context, id string) error {
	r.mu.Lock()
	r.calls = append(r.calls, id)
	r.mu.Unlock()
	if r.failFor[id] {
		return errors.New("publish failed")
	}
	return nil
}

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "pipeline.lock")
}

func TestRunAllSucceed(t *testing.T) {
	pub := &recordingPublisher{}
	p := New(&fakeLister{ids: []string{"A", "B", "C"}}, pub.publish, lockPath(t), 1, nil, nil)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Listed)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, []string{"A", "B", "C"}, pub.calls, "sequential publishing preserves list order")
	assert.NotEmpty(t, summary.RunID)
}

func TestRunPartialFailure(t *testing.T) {
	pub := &recordingPublisher{failFor: map[string]bool{"B": true}}
	p := New(&fakeLister{ids: []string{"A", "B", "C"}}, pub.publish, lockPath(t), 1, nil, nil)

	summary, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrPartialFailure)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"B"}, summary.FailedIDs)
	assert.Len(t, pub.calls, 3, "a failed product must not stop the rest")
}

func TestRunListerFailure(t *testing.T) {
	pub := &recordingPublisher{}
	p := New(&fakeLister{err: errors.New("catalogue down")}, pub.publish, lockPath(t), 1, nil, nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPartialFailure)
	assert.Empty(t, pub.calls)
}

func TestRunRespectsLock(t *testing.T) {
	path := lockPath(t)
	held, err := lock.Acquire(path, 0)
	require.NoError(t, err)
	defer held.Release()

	p := New(&fakeLister{ids: []string{"A"}}, (&recordingPublisher{}).publish, path, 1, nil, nil)
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, lock.ErrHeld)
}

func TestRunReleasesLock(t *testing.T) {
	path := lockPath(t)
	p := New(&fakeLister{ids: nil}, (&recordingPublisher{}).publish, path, 1, nil, nil)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	// Lock must be free again after the run.
	l, err := lock.Acquire(path, 0)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestRunConcurrent(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E", "F"}
	pub := &recordingPublisher{failFor: map[string]bool{"C": true, "E": true}}
	p := New(&fakeLister{ids: ids}, pub.publish, lockPath(t), 3, nil, nil)

	summary, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrPartialFailure)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, pub.calls, len(ids))
}
