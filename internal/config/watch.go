package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which replace the file by renaming a temporary copy are seen.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching path. The watch is active when NewWatcher
// returns.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	return &Watcher{path: abs, watcher: w}, nil
}

// Run calls fn with the reloaded config after every write or create of
// the file, until ctx is done or the watcher is closed. A file
// that fails to parse is reported through fn's error argument and the
// watch continues.
func (w *Watcher) Run(ctx context.Context, fn func(Config, error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.reloads(event) {
				continue
			}
			fn(Load(w.path))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			fn(Config{}, fmt.Errorf("config: watch: %w", err))
		}
	}
}

// reloads reports whether event leaves new content at the watched path.
// A rename of the path moves the file away; an atomic save shows up as a
// create of the path once the replacement lands.
func (w *Watcher) reloads(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

// Close stops the watch. Run returns after Close.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Watch is NewWatcher followed by Run; the watcher is closed when Run
// returns.
func Watch(ctx context.Context, path string, fn func(Config, error)) error {
	w, err := NewWatcher(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx, fn)
}
