package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"
	"os"
	"time"
)

// Watcher polls the store file and calls onChange when its content changes.
// A missing file counts as empty content, so deleting the file is a change.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func()
	logger   *slog.Logger

	lastMtime time.Time
	lastHash  [sha256.Size]byte
	lastSeen  bool
}

// NewWatcher records the file's current state as the baseline.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger, onChange func()) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Watcher{path: path, interval: interval, onChange: onChange, logger: logger}
	w.lastMtime, w.lastHash, w.lastSeen, _ = w.snapshot()
	return w
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.check()
		}
	}
}

// check compares mtime first and only hashes when it moved.
func (w *Watcher) check() {
	mtime, hash, seen, err := w.snapshot()
	if err != nil {
		w.logger.Warn("store watcher: cannot read file", "path", w.path, "error", err.Error())
		return
	}
	if seen == w.lastSeen && mtime.Equal(w.lastMtime) {
		return
	}

	changed := seen != w.lastSeen || hash != w.lastHash
	w.lastMtime = mtime
	w.lastHash = hash
	w.lastSeen = seen
	if !changed {
		return
	}

	w.logger.Info("store watcher: content changed", "path", w.path)
	if w.onChange != nil {
		w.onChange()
	}
}

func (w *Watcher) snapshot() (time.Time, [sha256.Size]byte, bool, error) {
	var zero [sha256.Size]byte

	info, err := os.Stat(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, zero, false, nil
		}
		return time.Time{}, zero, false, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return time.Time{}, zero, false, err
	}
	return info.ModTime(), sha256.Sum256(data), true, nil
}
