// Package scanner reports the top-level entries of a directory as they change.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls onChange with the full sorted listing of a directory, once
// at start and again whenever the listing may have changed. Watch blocks
// until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, onChange func(names []string)) error
}

// List returns the sorted top-level names in dir, hidden entries excluded
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name()[0] == '.' {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names, nil
}

// Diff returns the names in next that are not in prev, in next's order
func Diff(prev, next []string) []string {
	seen := make(map[string]struct{}, len(prev))
	for _, name := range prev {
		seen[name] = struct{}{}
	}

	var added []string
	for _, name := range next {
		if _, ok := seen[name]; !ok {
			added = append(added, name)
		}
	}
	return added
}

// FSNotifyWatcher follows a local directory through inotify. Bursts of events
// are collapsed into one listing after Debounce.
type FSNotifyWatcher struct {
	Dir      string
	Debounce time.Duration
	Logger   *slog.Logger
}

func NewFSNotifyWatcher(dir string, logger *slog.Logger) *FSNotifyWatcher {
	return &FSNotifyWatcher{Dir: dir, Debounce: 500 * time.Millisecond, Logger: logger}
}

func (w *FSNotifyWatcher) Watch(ctx context.Context, onChange func([]string)) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scanner", "dir", w.Dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.Dir, err)
	}

	report := func() {
		names, err := List(w.Dir)
		if err != nil {
			logger.Error("Failed to list directory", "error", err)
			return
		}
		onChange(names)
	}
	report()

	debounce := time.NewTimer(w.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("Directory event", "event", event.String())
			debounce.Reset(w.Debounce)

		case <-debounce.C:
			report()

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			logger.Error("Watcher error", "error", err)
		}
	}
}

// PollingWatcher re-reads a directory on an interval. It suits network mounts
// where inotify never fires. onChange runs only when the listing differs from
// the previous one.
type PollingWatcher struct {
	Dir      string
	Interval time.Duration
	Logger   *slog.Logger
}

func NewPollingWatcher(dir string, interval time.Duration, logger *slog.Logger) *PollingWatcher {
	return &PollingWatcher{Dir: dir, Interval: interval, Logger: logger}
}

func (w *PollingWatcher) Watch(ctx context.Context, onChange func([]string)) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scanner", "dir", w.Dir)

	interval := w.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	var last []string
	reported := false
	poll := func() {
		names, err := List(w.Dir)
		if err != nil {
			logger.Warn("Failed to list directory; will retry", "error", err)
			return
		}
		if reported && slices.Equal(last, names) {
			return
		}
		last, reported = names, true
		onChange(names)
	}

	poll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}
