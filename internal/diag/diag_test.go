package diag

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rybkr/fffpicker/internal/picker"
)

func newTestPicker(t *testing.T) *picker.Picker {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	p, err := picker.New(root, nil, picker.DefaultConfig())
	if err != nil {
		t.Fatalf("construct picker: %v", err)
	}
	t.Cleanup(p.StopBackgroundMonitor)
	return p
}

func TestServerHealthz(t *testing.T) {
	p := newTestPicker(t)
	server := New("127.0.0.1:0", p, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

// TestGenerationReflectsIndexNotFileCount guards against the regression
// where the broadcast generation was a file-count surrogate: a rescan that
// leaves the file count unchanged must still advance the reported
// generation, since the index's own generation counter advances on every
// mutation, including ones that touch only git status.
func TestGenerationReflectsIndexNotFileCount(t *testing.T) {
	p := newTestPicker(t)

	before := p.Generation()
	p.TriggerRescan()
	if !p.WaitForInitialScan(2 * time.Second) {
		t.Fatalf("rescan did not complete in time")
	}

	if p.Generation() <= before {
		t.Fatalf("expected generation to advance after rescan, had %d now %d", before, p.Generation())
	}
	if p.GetScanProgress().TotalFiles != 1 {
		t.Fatalf("expected file count unchanged at 1, got %d", p.GetScanProgress().TotalFiles)
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	p := newTestPicker(t)
	server := New("127.0.0.1:0", p, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// give the listener goroutine a moment to begin serving (or fail fast
	// on an address conflict; either way Shutdown must be safe to call).
	time.Sleep(50 * time.Millisecond)
	server.Shutdown()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("unexpected Start error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start did not return after Shutdown")
	}
}
