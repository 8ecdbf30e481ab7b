// Package watcher consumes filesystem change notifications, debounces them,
// and drives the incremental mutation of the file index: inserts on create,
// removals on delete, and bulk git-status refreshes for affected paths.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rybkr/fffpicker/internal/frecency"
	"github.com/rybkr/fffpicker/internal/gitstatus"
	"github.com/rybkr/fffpicker/internal/index"
	"github.com/rybkr/fffpicker/internal/model"
	"github.com/rybkr/fffpicker/internal/scanner"
)

// DebounceWindow is the usability-tuned quiet interval after which a batch
// of filesystem events is processed as one unit.
const DebounceWindow = 500 * time.Millisecond

// Watcher owns a dedicated fsnotify-backed goroutine that mutates idx and
// re-publishes store on every processed batch.
type Watcher struct {
	basePath   string
	gitWorkdir string
	idx        *index.FileIndex
	store      *index.Store
	tracker    frecency.Tracker
	logger     *slog.Logger

	fsw *fsnotify.Watcher

	shutdownMu    sync.Mutex
	shutdownCond  *sync.Cond
	shutdown      bool

	wg sync.WaitGroup
}

// New constructs a Watcher bound to idx and store. Call Start to begin
// watching.
func New(basePath, gitWorkdir string, idx *index.FileIndex, store *index.Store, tracker frecency.Tracker, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		basePath:   basePath,
		gitWorkdir: gitWorkdir,
		idx:        idx,
		store:      store,
		tracker:    tracker,
		logger:     logger,
	}
	w.shutdownCond = sync.NewCond(&w.shutdownMu)
	return w
}

// Start begins watching basePath recursively. Fatal to the watcher only:
// if the debouncer cannot be created or the initial watch cannot be
// established, Start returns an error and the watcher thread never starts;
// queries continue to work against the last good snapshot.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	if err := walkAndWatch(fsw, w.basePath, w.logger); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Info("watching workspace for changes", "path", w.basePath)
	return nil
}

// Stop sets the shutdown signal, wakes the condition variable, and waits
// for the watcher goroutine to exit.
func (w *Watcher) Stop() {
	w.shutdownMu.Lock()
	w.shutdown = true
	w.shutdownMu.Unlock()
	w.shutdownCond.Broadcast()

	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.wg.Wait()
}

// walkAndWatch recursively registers fsnotify watches on dir and every
// subdirectory, since fsnotify does not recurse on its own. If dir itself
// cannot be stat'ed, that error is returned; entries that cannot be read
// during the walk are skipped, and directories that cannot be watched are
// logged.
func walkAndWatch(fsw *fsnotify.Watcher, dir string, logger *slog.Logger) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return err
	}

	return filepath.Walk(dir, func(p string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // skip unreadable entries
		}
		if isGitDir(p) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.IsDir() {
			if addErr := fsw.Add(p); addErr != nil {
				logger.Warn("failed to watch directory", "dir", p, "err", addErr)
			}
		}
		return nil
	})
}

func isGitDir(p string) bool {
	base := filepath.Base(p)
	return base == ".git"
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var (
		debounceTimer *time.Timer
		pending       []fsnotify.Event
		pendingMu     sync.Mutex
	)

	flush := func() {
		pendingMu.Lock()
		batch := pending
		pending = nil
		pendingMu.Unlock()

		if len(batch) > 0 {
			w.processBatch(batch)
		}
	}

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return
			}
			if shouldIgnoreEvent(event) {
				continue
			}

			pendingMu.Lock()
			pending = append(pending, event)
			pendingMu.Unlock()

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(DebounceWindow, flush)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return
			}
			w.logger.Error("watcher error", "err", err)
		}
	}
}

// shouldIgnoreEvent filters out events the watcher should never act on:
// lockfiles and any event kind outside Write/Create/Remove/Rename.
func shouldIgnoreEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return true
	}
	base := filepath.Base(event.Name)
	if strings.HasSuffix(base, ".lock") {
		return true
	}
	return false
}

// processBatch implements §4.6 steps 1-3: filter, classify, and refresh
// git status for affected paths.
func (w *Watcher) processBatch(events []fsnotify.Event) {
	var affected []string

	for _, event := range events {
		rel, err := filepath.Rel(w.basePath, event.Name)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		switch {
		case event.Op&fsnotify.Create != 0:
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = walkAndWatch(w.fsw, event.Name, w.logger)
				// Files created inside the directory before its watch was
				// registered produced no events of their own; add them now.
				_ = filepath.WalkDir(event.Name, func(p string, d os.DirEntry, walkErr error) error {
					if walkErr != nil || d.IsDir() || !scanner.ShouldAddNewFile(p, w.gitWorkdir) {
						return nil //nolint:nilerr // best-effort, like the initial scan
					}
					childRel, relErr := filepath.Rel(w.basePath, p)
					if relErr != nil {
						return nil //nolint:nilerr
					}
					childRel = filepath.ToSlash(childRel)
					w.handleCreate(p, childRel)
					affected = append(affected, childRel)
					return nil
				})
				continue
			}

			if !scanner.ShouldAddNewFile(event.Name, w.gitWorkdir) {
				continue
			}
			w.handleCreate(event.Name, rel)
			affected = append(affected, rel)

		case event.Op&fsnotify.Remove != 0:
			if w.idx.RemoveFileByPath(rel) {
				w.store.PublishFrom(w.idx)
			}

		case event.Op&fsnotify.Write != 0:
			if w.idx.ContainsPath(rel) {
				affected = append(affected, rel)
			}

		default:
			if w.idx.ContainsPath(rel) {
				affected = append(affected, rel)
			}
		}
	}

	if len(affected) > 0 {
		w.refreshGitStatusForPaths(affected)
	}
}

func (w *Watcher) handleCreate(absPath, rel string) {
	if w.idx.ContainsPath(rel) {
		return
	}

	info, err := os.Stat(absPath)
	var size, modified int64
	if err == nil {
		size = info.Size()
		modified = info.ModTime().Unix()
	}

	w.idx.InsertFileSorted(model.FileItem{
		AbsPath:      absPath,
		RelativePath: rel,
		FileName:     filepath.Base(absPath),
		Extension:    strings.TrimPrefix(filepath.Ext(absPath), "."),
		Directory:    filepath.ToSlash(filepath.Dir(rel)),
		Size:         size,
		ModifiedUnix: modified,
	})
	w.store.PublishFrom(w.idx)
}

// refreshGitStatusForPaths reads the repository's full status, picks out
// the affected relative paths, overwrites each matched file's git status,
// bulk-refreshes frecency, and publishes a snapshot.
func (w *Watcher) refreshGitStatusForPaths(affected []string) {
	cache, ok := gitstatus.ReadGitStatus(w.gitWorkdir)
	if !ok {
		return
	}

	affectedSet := make(map[string]bool, len(affected))
	for _, rel := range affected {
		affectedSet[rel] = true
	}

	updates := make(map[string]*model.GitStatus)
	for _, rel := range affected {
		abs := filepath.Join(w.basePath, filepath.FromSlash(rel))
		if status, found := cache.Lookup(abs); found {
			s := status
			updates[rel] = &s
		} else {
			updates[rel] = nil
		}
	}

	w.idx.UpdateGitStatusForPaths(updates, w.tracker)
	w.store.PublishFrom(w.idx)
}
