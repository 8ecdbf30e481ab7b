package picker

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func seedWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":        "package main",
		"src/widget.go":  "package src",
		"README.md":      "# readme",
	}
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return root
}

func TestNewRejectsInvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil, DefaultConfig())
	if err != ErrInvalidPath {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestNewScansAndPublishesSnapshot(t *testing.T) {
	root := seedWorkspace(t)
	p, err := New(root, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.StopBackgroundMonitor()

	files := p.GetCachedFiles()
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %v", len(files), files)
	}
}

func TestFuzzySearchFindsExactFilename(t *testing.T) {
	root := seedWorkspace(t)
	p, err := New(root, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.StopBackgroundMonitor()

	result := p.FuzzySearch("main.go", 10, 2, "")
	if len(result.Items) == 0 {
		t.Fatalf("expected at least one match")
	}
	if result.Items[0].RelativePath != "main.go" {
		t.Fatalf("expected main.go to be the top hit, got %s", result.Items[0].RelativePath)
	}
	if result.TotalFiles != 3 {
		t.Fatalf("expected total_files 3, got %d", result.TotalFiles)
	}
}

func TestTriggerRescanPicksUpNewFile(t *testing.T) {
	root := seedWorkspace(t)
	p, err := New(root, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.StopBackgroundMonitor()

	if err := os.WriteFile(filepath.Join(root, "extra.go"), []byte("package main"), 0o644); err != nil {
		t.Fatalf("write extra file: %v", err)
	}

	p.TriggerRescan()
	if !p.WaitForInitialScan(2 * time.Second) {
		t.Fatalf("expected rescan to finish within timeout")
	}

	files := p.GetCachedFiles()
	if len(files) != 4 {
		t.Fatalf("expected 4 files after rescan, got %d", len(files))
	}
}

func TestAccessFileRecordsFrecency(t *testing.T) {
	root := seedWorkspace(t)
	p, err := New(root, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.StopBackgroundMonitor()

	if err := p.AccessFile("main.go"); err != nil {
		t.Fatalf("unexpected error recording access: %v", err)
	}
}

func TestGetScanProgressTotalEqualsScanned(t *testing.T) {
	root := seedWorkspace(t)
	p, err := New(root, nil, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.StopBackgroundMonitor()

	progress := p.GetScanProgress()
	if progress.TotalFiles != progress.ScannedFiles {
		t.Fatalf("expected total_files == scanned_files, got %d != %d", progress.TotalFiles, progress.ScannedFiles)
	}
}
