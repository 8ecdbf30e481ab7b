package fffpicker

import (
	"os"
	"path/filepath"
	"testing"
)

// resetGlobals clears package-level state between tests, since the
// embedding API is a process-wide singleton by design.
func resetGlobals(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	if globalPicker != nil {
		globalPicker.StopBackgroundMonitor()
	}
	globalPicker = nil
	globalTracker = nil
	globalMu.Unlock()
}

func TestInitFilePickerIsSingleton(t *testing.T) {
	resetGlobals(t)
	defer resetGlobals(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	ok, err := InitFilePicker(root)
	if err != nil || !ok {
		t.Fatalf("expected first InitFilePicker to succeed, got ok=%v err=%v", ok, err)
	}

	ok, err = InitFilePicker(root)
	if err != nil {
		t.Fatalf("unexpected error on second init: %v", err)
	}
	if ok {
		t.Fatalf("expected second InitFilePicker to report false")
	}
}

func TestFuzzySearchFilesBeforeInit(t *testing.T) {
	resetGlobals(t)
	defer resetGlobals(t)

	_, err := FuzzySearchFiles("anything", 10, 1, "")
	if err == nil {
		t.Fatalf("expected an error before InitFilePicker is called")
	}
}

func TestInitFrecencyIsSingleton(t *testing.T) {
	resetGlobals(t)
	defer resetGlobals(t)

	if !InitFrecency("", false) {
		t.Fatalf("expected first InitFrecency to succeed")
	}
	if InitFrecency("", false) {
		t.Fatalf("expected second InitFrecency to report false")
	}
	DestroyFrecency()
}

func TestFullLifecycle(t *testing.T) {
	resetGlobals(t)
	defer resetGlobals(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "needle.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if ok, err := InitFilePicker(root); err != nil || !ok {
		t.Fatalf("InitFilePicker failed: ok=%v err=%v", ok, err)
	}

	if done, err := WaitForInitialScan(2000); err != nil || !done {
		t.Fatalf("WaitForInitialScan failed: done=%v err=%v", done, err)
	}

	result, err := FuzzySearchFiles("needle", 10, 2, "")
	if err != nil {
		t.Fatalf("FuzzySearchFiles failed: %v", err)
	}
	if len(result.Items) == 0 || result.Items[0].RelativePath != "needle.txt" {
		t.Fatalf("expected needle.txt to be found, got %+v", result.Items)
	}

	if err := StopBackgroundMonitor(); err != nil {
		t.Fatalf("StopBackgroundMonitor failed: %v", err)
	}
}
