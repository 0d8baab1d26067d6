package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	if err := os.WriteFile(path, []byte("[scene]\nseed = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seeds := make(chan uint32, 16)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(cfg Config, err error) {
			if err == nil {
				seeds <- cfg.Scene.Seed
			}
		})
	}()

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[scene]\nseed = 42\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case seed := <-seeds:
			if seed == 42 {
				cancel()
				if err := <-done; err != context.Canceled {
					t.Errorf("Run() = %v, want context.Canceled", err)
				}
				w.Close()
				return
			}
		case <-deadline:
			t.Fatal("no reload after writing the watched file")
		}
	}
}

func TestWatcher_ReportsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	errs := make(chan error, 16)
	go func() {
		_ = w.Run(context.Background(), func(_ Config, err error) {
			if err != nil {
				errs <- err
			}
		})
	}()

	if err := os.WriteFile(path, []byte("[scene]\ncount = 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	select {
	case <-errs:
	case <-time.After(5 * time.Second):
		t.Fatal("invalid file did not produce an error")
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "scene.toml")); err == nil {
		t.Error("watching a missing directory succeeded")
	}
}

func TestWatcher_Reloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	w := &Watcher{path: path}
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"rename away", fsnotify.Event{Name: path, Op: fsnotify.Rename}, false},
		{"remove", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: path + ".tmp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.reloads(tt.event); got != tt.want {
				t.Errorf("reloads(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestWatcher_AtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	if err := os.WriteFile(path, []byte("[scene]\nseed = 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	type result struct {
		seed uint32
		err  error
	}
	results := make(chan result, 16)
	go func() {
		_ = w.Run(context.Background(), func(cfg Config, err error) {
			results <- result{cfg.Scene.Seed, err}
		})
	}()

	// Move the old file aside, then rename the new content into place.
	if err := os.Rename(path, path+".bak"); err != nil {
		t.Fatal(err)
	}
	tmp := filepath.Join(dir, "scene.toml.tmp")
	if err := os.WriteFile(tmp, []byte("[scene]\nseed = 9\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-results:
			if r.err != nil {
				t.Fatalf("atomic save reported %v", r.err)
			}
			if r.seed == 9 {
				return
			}
		case <-deadline:
			t.Fatal("no reload after atomic save")
		}
	}
}
