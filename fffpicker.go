// Package fffpicker provides an in-process fuzzy file picker: given a
// workspace root, it maintains a continuously up-to-date index of tracked
// files and answers low-latency fuzzy-match queries against it. This file
// is the package-level embedding surface (spec §6): a host (editor plugin,
// CLI) drives a single global Picker instance through these functions,
// mirroring the lazily-initialised global handles the original Lua FFI
// layer exposed.
package fffpicker

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rybkr/fffpicker/internal/diag"
	"github.com/rybkr/fffpicker/internal/frecency"
	"github.com/rybkr/fffpicker/internal/model"
	"github.com/rybkr/fffpicker/internal/picker"
)

// ErrAlreadyInitialized names the already-initialised condition. No
// function in this package returns it: InitFrecency and InitFilePicker
// report that condition as a false result.
var ErrAlreadyInitialized = errors.New("fffpicker: already initialized")

var (
	globalMu       sync.RWMutex
	globalTracker  *frecency.MemoryTracker
	globalPicker   *picker.Picker
)

// InitFrecency initialises the global frecency tracker once. Returns false
// if already initialised. unsafeNoLock is accepted for contract parity with
// the embedding API but has no effect: this implementation's tracker is
// always mutex-guarded.
func InitFrecency(dbPath string, unsafeNoLock bool) bool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalTracker != nil {
		return false
	}
	globalTracker = frecency.NewMemoryTracker(0)
	return true
}

// DestroyFrecency tears down the global frecency tracker.
func DestroyFrecency() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalTracker = nil
}

// InitFilePicker constructs the global Picker rooted at basePath and spawns
// its watcher. Returns false if already initialised.
func InitFilePicker(basePath string) (bool, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPicker != nil {
		return false, nil
	}

	var tracker frecency.Tracker
	if globalTracker != nil {
		tracker = globalTracker
	}

	p, err := picker.New(basePath, tracker, picker.DefaultConfig())
	if err != nil {
		return false, err
	}
	globalPicker = p
	return true, nil
}

// ScanFiles schedules a manual full rescan on a background goroutine.
func ScanFiles() error {
	p, err := currentPicker()
	if err != nil {
		return err
	}
	p.TriggerRescan()
	return nil
}

// GetCachedFiles returns the current sequence of FileItem.
func GetCachedFiles() ([]model.FileItem, error) {
	p, err := currentPicker()
	if err != nil {
		return nil, err
	}
	return p.GetCachedFiles(), nil
}

// FuzzySearchFiles runs a query against the current snapshot.
func FuzzySearchFiles(query string, maxResults, maxThreads int, currentFile string) (model.SearchResult, error) {
	p, err := currentPicker()
	if err != nil {
		return model.SearchResult{}, err
	}
	return p.FuzzySearch(query, maxResults, maxThreads, currentFile), nil
}

// AccessFile records an access hit in frecency.
func AccessFile(path string) error {
	globalMu.RLock()
	tracker := globalTracker
	globalMu.RUnlock()

	if tracker == nil {
		return nil
	}
	return tracker.TrackAccess(path)
}

// GetScanProgress reports {total_files, scanned_files, is_scanning}.
func GetScanProgress() (picker.ScanProgress, error) {
	p, err := currentPicker()
	if err != nil {
		return picker.ScanProgress{}, err
	}
	return p.GetScanProgress(), nil
}

// IsScanning reports the atomic scan-in-progress flag.
func IsScanning() bool {
	globalMu.RLock()
	p := globalPicker
	globalMu.RUnlock()
	if p == nil {
		return false
	}
	return p.IsScanning()
}

// RefreshGitStatus returns the current files (stub for a future full
// refresh, matching the embedding contract).
func RefreshGitStatus() ([]model.FileItem, error) {
	p, err := currentPicker()
	if err != nil {
		return nil, err
	}
	return p.RefreshGitStatus(), nil
}

// StopBackgroundMonitor sets the shutdown signal on the global picker.
func StopBackgroundMonitor() error {
	p, err := currentPicker()
	if err != nil {
		return err
	}
	p.StopBackgroundMonitor()
	return nil
}

// WaitForInitialScan polls until idle or timeoutMs elapses (default 5000).
func WaitForInitialScan(timeoutMs int) (bool, error) {
	p, err := currentPicker()
	if err != nil {
		return false, err
	}
	timeout := 5 * time.Second
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return p.WaitForInitialScan(timeout), nil
}

// InitTracing sets up a structured-logging sink at the given path and
// level, installing it as the default slog logger (ambient §7.1).
func InitTracing(logPath string, level string) error {
	return initTracing(logPath, level)
}

// StartDiagServer starts the optional diagnostics/introspection server
// (SPEC_FULL.md §10.3) bound to the global picker, listening at addr. The
// caller owns the returned server's lifecycle and must call Shutdown.
func StartDiagServer(addr string) (*diag.Server, error) {
	p, err := currentPicker()
	if err != nil {
		return nil, err
	}

	server := diag.New(addr, p, slog.Default())
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("diagnostics server error", "err", err)
		}
	}()
	return server, nil
}

func currentPicker() (*picker.Picker, error) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalPicker == nil {
		return nil, picker.ErrNotInitialized
	}
	return globalPicker, nil
}
