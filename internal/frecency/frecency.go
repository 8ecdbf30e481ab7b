// Package frecency defines the frecency tracker contract consumed by the
// index and scorer, and provides a default in-process implementation.
package frecency

import (
	"container/list"
	"sync"
)

// Tracker is the external frecency collaborator (spec §6). Implementations
// are keyed by workspace-relative path.
type Tracker interface {
	// AccessScore returns the access-frecency score for key.
	AccessScore(key string) int64
	// ModificationScore returns the modification-frecency score for key,
	// given the file's modification time (seconds since epoch) and its
	// current git-status symbol (as produced by gitstatus.FormatGitStatus).
	ModificationScore(key string, modifiedUnix int64, statusSymbol string) int64
	// TrackAccess records an access hit for key.
	TrackAccess(key string) error
}

// entry wraps one path's counters for LRU eviction.
type entry struct {
	key          string
	accessCount  int64
	lastAccessed int64
	lastModified int64
	lastStatus   string
}

// MemoryTracker is the default in-memory Tracker, an LRU-bounded table of
// per-path counters adapted from a generic doubly-linked-list cache.
type MemoryTracker struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List
	clock   int64
}

// NewMemoryTracker creates a tracker holding at most maxSize paths. If
// maxSize <= 0, defaults to 10000.
func NewMemoryTracker(maxSize int) *MemoryTracker {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryTracker{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// AccessScore returns ten times the number of recorded accesses for key;
// how recent those accesses were does not affect it. Missing keys score 0.
func (t *MemoryTracker) AccessScore(key string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.items[key]
	if !ok {
		return 0
	}
	e := elem.Value.(*entry)
	return e.accessCount * 10
}

// ModificationScore weights the file by its git status: files with an
// in-progress (non-clean, non-clear) status score higher, biasing results
// toward what's currently being worked on. The modification time only
// gates the score (0 when unset); how recent it is does not change it.
func (t *MemoryTracker) ModificationScore(key string, modifiedUnix int64, statusSymbol string) int64 {
	if modifiedUnix <= 0 {
		return 0
	}

	var base int64 = 1
	switch statusSymbol {
	case "modified", "staged_modified", "untracked", "staged_new":
		base = 3
	case "deleted", "staged_deleted", "renamed":
		base = 2
	case "clean", "clear", "ignored", "unknown", "":
		base = 1
	}
	return base
}

// TrackAccess records an access hit for key, inserting or promoting it in
// the LRU order and evicting the least-recently-used entry if over
// capacity.
func (t *MemoryTracker) TrackAccess(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clock++

	if elem, ok := t.items[key]; ok {
		e := elem.Value.(*entry)
		e.accessCount++
		e.lastAccessed = t.clock
		t.order.MoveToFront(elem)
		return nil
	}

	e := &entry{key: key, accessCount: 1, lastAccessed: t.clock}
	elem := t.order.PushFront(e)
	t.items[key] = elem

	if t.order.Len() > t.maxSize {
		lru := t.order.Back()
		t.order.Remove(lru)
		delete(t.items, lru.Value.(*entry).key)
	}

	return nil
}

// RecordModification stores the modification time and status symbol last
// observed for key, without affecting LRU order (a passive observation,
// not a user access).
func (t *MemoryTracker) RecordModification(key string, modifiedUnix int64, statusSymbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elem, ok := t.items[key]; ok {
		e := elem.Value.(*entry)
		e.lastModified = modifiedUnix
		e.lastStatus = statusSymbol
		return
	}

	e := &entry{key: key, lastModified: modifiedUnix, lastStatus: statusSymbol}
	elem := t.order.PushBack(e)
	t.items[key] = elem

	if t.order.Len() > t.maxSize {
		if lru := elem.Prev(); lru != nil {
			t.order.Remove(lru)
			delete(t.items, lru.Value.(*entry).key)
		}
	}
}

// Len returns the number of tracked paths.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Clear empties the tracker.
func (t *MemoryTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]*list.Element)
	t.order = list.New()
}
