// Package index implements the authoritative File Index and the immutable
// Search Snapshot published from it, including the lock-ordering discipline
// the rest of the system depends on: the index lock is never held while the
// snapshot lock is taken.
package index

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rybkr/fffpicker/internal/frecency"
	"github.com/rybkr/fffpicker/internal/gitstatus"
	"github.com/rybkr/fffpicker/internal/model"
)

// FileIndex is the authoritative, sorted, mutation-tracked file list.
type FileIndex struct {
	mu             sync.RWMutex
	files          []model.FileItem
	lastUpdate     time.Time
	gitCache       *gitstatus.Cache
	generation     uint64
	logger         *slog.Logger
}

// New constructs an empty FileIndex.
func New(logger *slog.Logger) *FileIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileIndex{logger: logger}
}

// UpdateFiles replaces the entire file list. files must already be sorted
// by RelativePath; this is the caller's contract (UpdateFiles does not
// re-sort), and a violation is logged rather than silently accepted. Bumps
// the generation, refreshes last_update, and recomputes every file's
// frecency triplet.
func (idx *FileIndex) UpdateFiles(files []model.FileItem, gitCache *gitstatus.Cache, tracker frecency.Tracker) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !sort.SliceIsSorted(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	}) {
		idx.logger.Warn("UpdateFiles received unsorted input; index invariants require sorted order", "count", len(files))
	}

	idx.files = files
	idx.gitCache = gitCache
	idx.lastUpdate = time.Now()
	idx.generation++

	idx.refreshFrecencyLocked(tracker)
}

// InsertFileSorted inserts file at its sorted position. If the relative
// path already exists, logs and does nothing.
func (idx *FileIndex) InsertFileSorted(file model.FileItem) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos := sort.Search(len(idx.files), func(i int) bool {
		return idx.files[i].RelativePath >= file.RelativePath
	})
	if pos < len(idx.files) && idx.files[pos].RelativePath == file.RelativePath {
		idx.logger.Debug("file already indexed, skipping insert", "path", file.RelativePath)
		return
	}

	idx.files = append(idx.files, model.FileItem{})
	copy(idx.files[pos+1:], idx.files[pos:len(idx.files)-1])
	idx.files[pos] = file
	idx.generation++
}

// RemoveFileByPath removes the file at relativePath if present. Returns
// whether a removal happened.
func (idx *FileIndex) RemoveFileByPath(relativePath string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos := sort.Search(len(idx.files), func(i int) bool {
		return idx.files[i].RelativePath >= relativePath
	})
	if pos >= len(idx.files) || idx.files[pos].RelativePath != relativePath {
		return false
	}

	idx.files = append(idx.files[:pos], idx.files[pos+1:]...)
	idx.generation++
	return true
}

// ContainsPath reports whether relativePath is present in the index.
func (idx *FileIndex) ContainsPath(relativePath string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pos := sort.Search(len(idx.files), func(i int) bool {
		return idx.files[i].RelativePath >= relativePath
	})
	return pos < len(idx.files) && idx.files[pos].RelativePath == relativePath
}

// FindFileIndex returns the position of relativePath if present, and
// whether it was found. If not found, the position is the sorted insertion
// point.
func (idx *FileIndex) FindFileIndex(relativePath string) (pos int, found bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pos = sort.Search(len(idx.files), func(i int) bool {
		return idx.files[i].RelativePath >= relativePath
	})
	found = pos < len(idx.files) && idx.files[pos].RelativePath == relativePath
	return pos, found
}

// UpdateGitStatusForPaths overwrites the git status of each indexed file
// named in statuses (keyed by relative path), then bulk-refreshes frecency
// for every indexed file (modification score depends on git status).
func (idx *FileIndex) UpdateGitStatusForPaths(statuses map[string]*model.GitStatus, tracker frecency.Tracker) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for relPath, status := range statuses {
		pos := sort.Search(len(idx.files), func(i int) bool {
			return idx.files[i].RelativePath >= relPath
		})
		if pos < len(idx.files) && idx.files[pos].RelativePath == relPath {
			idx.files[pos].GitStatus = status
		}
	}

	idx.refreshFrecencyLocked(tracker)
	idx.generation++
}

// refreshFrecencyLocked recomputes (access, modification, total) for every
// file from tracker. Must be called with idx.mu held for writing. A missing
// tracker leaves scores as-is.
func (idx *FileIndex) refreshFrecencyLocked(tracker frecency.Tracker) {
	if tracker == nil {
		return
	}
	for i := range idx.files {
		f := &idx.files[i]
		status := gitstatus.FormatGitStatus(f.GitStatus)
		f.AccessFrecency = tracker.AccessScore(f.RelativePath)
		f.ModificationFrecency = tracker.ModificationScore(f.RelativePath, f.ModifiedUnix, status)
		f.TotalFrecency = f.AccessFrecency + f.ModificationFrecency
	}
}

// Generation returns the current scan generation.
func (idx *FileIndex) Generation() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.generation
}

// Len returns the number of indexed files.
func (idx *FileIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.files)
}

// Snapshot is an immutable, value-copied publication of the index at one
// generation.
type Snapshot struct {
	Files      []model.FileItem
	Generation uint64
}

// PublishSnapshot produces a new Snapshot: a value-copy of the current
// files plus the current generation. Callers should acquire the index
// read lock, copy, release, then take the snapshot write lock separately —
// this method performs exactly that acquire/copy/release half; storing the
// result is the caller's responsibility via Store.
func (idx *FileIndex) PublishSnapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	files := make([]model.FileItem, len(idx.files))
	copy(files, idx.files)

	return Snapshot{Files: files, Generation: idx.generation}
}

// Store holds the current SearchSnapshot behind its own lock, independent
// of FileIndex's lock. Never held simultaneously with FileIndex.mu.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Publish overwrites the stored snapshot. Never blocks readers for more
// than a single assignment.
func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

// Load returns the currently published snapshot.
func (s *Store) Load() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// TryLoad attempts a non-blocking read of the currently published
// snapshot. Returns false if the write lock is currently held.
func (s *Store) TryLoad() (Snapshot, bool) {
	if !s.mu.TryRLock() {
		return Snapshot{}, false
	}
	defer s.mu.RUnlock()
	return s.snapshot, true
}

// PublishFrom performs the full publish sequence described in §4.7:
// acquire the index read lock, value-copy files + generation, release,
// acquire the snapshot write lock, overwrite. The index lock is never held
// while the snapshot lock is taken.
func (s *Store) PublishFrom(idx *FileIndex) {
	snap := idx.PublishSnapshot()
	s.Publish(snap)
}
