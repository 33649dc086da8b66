package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, filter FilterFunc) *Watcher {
	t.Helper()
	w, err := New(root, filter, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		_ = w.Close()
	})
	return w
}

// waitFor drains events until one matches or the timeout hits.
func waitFor(t *testing.T, ch <-chan FileEvent, match func(FileEvent) bool) FileEvent {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("event channel closed")
			}
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestWatcher_CreateEmitsAdded(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, nil)

	path := filepath.Join(root, "new.go")
	require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))

	ev := waitFor(t, w.Events(), func(ev FileEvent) bool {
		return ev.FilePath == path && ev.Type == EventAdded
	})
	assert.Equal(t, EventAdded, ev.Type)
}

func TestWatcher_WriteEmitsModified(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "existing.go")
	require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))

	w := startWatcher(t, root, nil)
	require.NoError(t, os.WriteFile(path, []byte("package x\n\nfunc F() {}\n"), 0o644))

	waitFor(t, w.Events(), func(ev FileEvent) bool {
		return ev.FilePath == path && ev.Type == EventModified
	})
}

func TestWatcher_RemoveEmitsDeleted(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "doomed.go")
	require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))

	w := startWatcher(t, root, nil)
	require.NoError(t, os.Remove(path))

	waitFor(t, w.Events(), func(ev FileEvent) bool {
		return ev.FilePath == path && ev.Type == EventDeleted
	})
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, nil)

	subdir := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	// Give the watcher a moment to pick up the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(subdir, "inner.go")
	require.NoError(t, os.WriteFile(path, []byte("package pkg\n"), 0o644))

	waitFor(t, w.Events(), func(ev FileEvent) bool {
		return ev.FilePath == path && ev.Type == EventAdded
	})
}

func TestWatcher_FilterSkipsFiles(t *testing.T) {
	root := t.TempDir()
	filter := func(path string, isDir bool) bool {
		return isDir || !strings.HasSuffix(path, ".log")
	}
	w := startWatcher(t, root, filter)

	skipped := filepath.Join(root, "noise.log")
	kept := filepath.Join(root, "code.go")
	require.NoError(t, os.WriteFile(skipped, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(kept, []byte("package x\n"), 0o644))

	ev := waitFor(t, w.Events(), func(ev FileEvent) bool {
		return ev.Type == EventAdded
	})
	assert.Equal(t, kept, ev.FilePath)
}

func TestWatcher_FilterSkipsSubtrees(t *testing.T) {
	root := t.TempDir()
	ignored := filepath.Join(root, "node_modules")
	require.NoError(t, os.Mkdir(ignored, 0o755))

	filter := func(path string, isDir bool) bool {
		return filepath.Base(path) != "node_modules"
	}
	w := startWatcher(t, root, filter)

	require.NoError(t, os.WriteFile(filepath.Join(ignored, "dep.js"), []byte("x"), 0o644))
	kept := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(kept, []byte("package main\n"), 0o644))

	ev := waitFor(t, w.Events(), func(ev FileEvent) bool {
		return ev.Type == EventAdded
	})
	assert.Equal(t, kept, ev.FilePath)
}
