package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last file event before a reload.
const DefaultDebounce = 500 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	onApply  func(Report, error)
}

// WithDebounce sets the quiet period before a changed file is reloaded.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// OnApply registers a callback run after every reload attempt.
func OnApply(fn func(Report, error)) WatchOption {
	return func(c *watchConfig) { c.onApply = fn }
}

// Watch reapplies the batch file at path whenever its content changes, until
// ctx is done. Applying is a merge, so a reload only adds what is new. The
// parent directory is watched so that editors replacing the file are seen.
func (l *Loader) Watch(ctx context.Context, path string, opts ...WatchOption) error {
	cfg := watchConfig{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&cfg)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	lastHash, _ := fileHash(abs)
	l.logger.Info("watching batch file for reload", "path", abs, "debounce", cfg.debounce)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(cfg.debounce)
			} else {
				timer.Reset(cfg.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("Watcher error", "error", err)

		case <-fire:
			fire = nil
			hash, err := fileHash(abs)
			if err != nil {
				l.logger.Warn("batch file unreadable, waiting for next change", "path", abs, "error", err)
				continue
			}
			if hash == lastHash {
				continue
			}
			lastHash = hash
			rep, err := l.LoadFile(ctx, abs)
			if err != nil {
				l.logger.Error("failed to reload batch file", "path", abs, "error", err)
			} else {
				l.logger.Info("reload applied", "path", abs, "created", rep.Created(), "merged", rep.Merged(), "skipped", rep.Skipped)
			}
			if cfg.onApply != nil {
				cfg.onApply(rep, err)
			}
		}
	}
}

func fileHash(path string) ([32]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
