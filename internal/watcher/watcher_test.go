package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rybkr/fffpicker/internal/index"
	"github.com/rybkr/fffpicker/internal/model"
)

func mkEvent(name string) fsnotify.Event {
	return fsnotify.Event{Name: name, Op: fsnotify.Write}
}

// TestWatcherDetectsNewFile is scenario test 5 from spec §8: creating a file
// while the watcher runs must make it observable in the index (and, by
// extension, in the next fuzzy_search) without a manual rescan.
func TestWatcherDetectsNewFile(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(root, rel), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed file: %v", err)
		}
	}

	idx := index.New(nil)
	idx.UpdateFiles([]model.FileItem{
		{RelativePath: "a.txt", AbsPath: filepath.Join(root, "a.txt")},
		{RelativePath: "b.txt", AbsPath: filepath.Join(root, "b.txt")},
	}, nil, nil)
	store := index.NewStore()
	store.PublishFrom(idx)

	w := New(root, "", idx, store, nil, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	newPath := filepath.Join(root, "new.txt")
	if err := os.WriteFile(newPath, []byte("created"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if idx.ContainsPath("new.txt") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if !idx.ContainsPath("new.txt") {
		t.Fatalf("expected new.txt to appear in the index after creation")
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 files total, got %d", idx.Len())
	}

	snap := store.Load()
	if snap.Generation != idx.Generation() {
		t.Fatalf("expected published snapshot to reflect the new generation")
	}
}

// TestWatcherWatchesNewlyCreatedDirectory guards against a regression where
// a directory-create event was dropped by the should-add-file filter before
// walkAndWatch ever ran, leaving files later created inside that directory
// unobserved until a manual rescan.
func TestWatcherWatchesNewlyCreatedDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	idx := index.New(nil)
	idx.UpdateFiles([]model.FileItem{{RelativePath: "a.txt", AbsPath: filepath.Join(root, "a.txt")}}, nil, nil)
	store := index.NewStore()
	store.PublishFrom(idx)

	w := New(root, "", idx, store, nil, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	subdir := filepath.Join(root, "sub")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatalf("create subdir: %v", err)
	}

	// Give the watcher time to observe the directory-create event and
	// register a watch on it before a file appears inside.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(subdir, "nested.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("create nested file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if idx.ContainsPath("sub/nested.txt") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if !idx.ContainsPath("sub/nested.txt") {
		t.Fatalf("expected sub/nested.txt to appear in the index without a manual rescan")
	}
}

func TestWatcherRemovesDeletedFile(t *testing.T) {
	root := t.TempDir()
	toDelete := filepath.Join(root, "gone.txt")
	if err := os.WriteFile(toDelete, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	idx := index.New(nil)
	idx.UpdateFiles([]model.FileItem{{RelativePath: "gone.txt", AbsPath: toDelete}}, nil, nil)
	store := index.NewStore()
	store.PublishFrom(idx)

	w := New(root, "", idx, store, nil, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(toDelete); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !idx.ContainsPath("gone.txt") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if idx.ContainsPath("gone.txt") {
		t.Fatalf("expected gone.txt to be removed from the index")
	}
}

func TestShouldIgnoreLockFiles(t *testing.T) {
	if !shouldIgnoreEvent(mkEvent("/repo/.git/index.lock")) {
		t.Fatalf("expected lock files to be ignored")
	}
}

func TestShouldNotIgnoreWriteEvent(t *testing.T) {
	if shouldIgnoreEvent(mkEvent("/repo/a.txt")) {
		t.Fatalf("expected a write event on a normal file to not be ignored")
	}
}
