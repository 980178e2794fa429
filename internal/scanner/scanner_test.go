package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) onChange(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, names)
}

func (r *recorder) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.mkv"))
	touch(t, filepath.Join(dir, ".hidden"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "A.Show"), 0755))

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"A.Show", "b.mkv"}, names)

	_, err = List(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		prev     []string
		next     []string
		expected []string
	}{
		{"nothing before", nil, []string{"a", "b"}, []string{"a", "b"}},
		{"one new", []string{"a"}, []string{"a", "b"}, []string{"b"}},
		{"removal is not an addition", []string{"a", "b"}, []string{"a"}, nil},
		{"unchanged", []string{"a"}, []string{"a"}, nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Diff(test.prev, test.next))
		})
	}
}

func TestPollingWatcher(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.mkv"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	watcher := NewPollingWatcher(dir, 20*time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx, rec.onChange) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.mkv"}, rec.last())

	// unchanged listings are not reported again
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	touch(t, filepath.Join(dir, "b.mkv"))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.mkv", "b.mkv"}, rec.last())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPollingWatcherMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	go func() { _ = NewPollingWatcher(dir, 20*time.Millisecond, nil).Watch(ctx, rec.onChange) }()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	require.NoError(t, os.Mkdir(dir, 0755))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.last())
}

func TestFSNotifyWatcher(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.mkv"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	watcher := NewFSNotifyWatcher(dir, nil)
	watcher.Debounce = 20 * time.Millisecond
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx, rec.onChange) }()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.mkv"}, rec.last())

	touch(t, filepath.Join(dir, "b.mkv"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"a.mkv", "b.mkv"}, rec.last())
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestFSNotifyWatcherMissingDirectory(t *testing.T) {
	watcher := NewFSNotifyWatcher(filepath.Join(t.TempDir(), "missing"), nil)
	err := watcher.Watch(context.Background(), func([]string) {})
	assert.Error(t, err)
}
