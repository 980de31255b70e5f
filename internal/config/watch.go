package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher reloads a config file when it changes and hands every valid
// result to a callback. Invalid edits are logged and skipped.
type Watcher struct {
	// path is the config file being watched.
	path string
	// onChange receives each successfully reloaded config.
	onChange func(*Config)
	// done is closed by [Watcher.Close].
	done chan struct{}
	// fsw is nil when the watcher is polling.
	fsw *fsnotify.Watcher
	// once makes [Watcher.Close] idempotent.
	once sync.Once
	// pollInterval is the stat period used when fsnotify is unavailable.
	pollInterval time.Duration
}

// Watch starts watching path. The parent directory is watched rather than
// the file itself so that editors replacing the file by rename are seen.
// When fsnotify is unavailable the watcher falls back to polling.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	w := &Watcher{
		path:         path,
		onChange:     onChange,
		done:         make(chan struct{}),
		pollInterval: 2 * time.Second,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, polling config file", "error", err)
		go w.poll()
		return w, nil
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		slog.Info("cannot watch config directory, polling config file", "path", path, "error", err)
		go w.poll()
		return w, nil
	}
	w.fsw = fsw
	go w.watch()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) poll() {
	var lastMod time.Time
	if info, err := os.Stat(w.path); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				w.reload()
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadFile(w.path)
	if err != nil {
		slog.Warn("ignoring invalid config change", "path", w.path, "error", err)
		return
	}
	slog.Debug("config reloaded", "path", w.path)
	w.onChange(cfg)
}
