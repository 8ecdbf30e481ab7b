// Package gitstatus provides a sorted, binary-searchable snapshot of a git
// working tree's status, backed by go-git/go-git/v5.
package gitstatus

import (
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/rybkr/fffpicker/internal/model"
)

// Cache holds two parallel, path-sorted sequences: paths and their
// corresponding statuses. Construction sorts once; lookups binary search.
type Cache struct {
	paths    []string
	statuses []model.GitStatus
}

// New builds a Cache from unsorted (absolutePath, status) entries.
func New(entries map[string]model.GitStatus) *Cache {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	statuses := make([]model.GitStatus, len(paths))
	for i, p := range paths {
		statuses[i] = entries[p]
	}

	return &Cache{paths: paths, statuses: statuses}
}

// Lookup returns the status recorded for absolutePath, if any.
func (c *Cache) Lookup(absolutePath string) (model.GitStatus, bool) {
	if c == nil {
		return model.GitStatus{}, false
	}
	i := sort.SearchStrings(c.paths, absolutePath)
	if i < len(c.paths) && c.paths[i] == absolutePath {
		return c.statuses[i], true
	}
	return model.GitStatus{}, false
}

// Len reports the number of entries in the cache.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.paths)
}

// ReadGitStatus opens the repository containing workdir (if any), requests
// status including untracked files, and builds a Cache of absolute paths to
// status. Any error (no repository, enumeration failure) is swallowed and
// reported as (nil, false): the index must still work without git.
func ReadGitStatus(workdir string) (*Cache, bool) {
	if workdir == "" {
		return nil, false
	}

	repo, err := git.PlainOpenWithOptions(workdir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, false
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, false
	}

	status, err := wt.Status()
	if err != nil {
		return nil, false
	}

	root := wt.Filesystem.Root()
	entries := make(map[string]model.GitStatus, len(status))
	for relPath, fileStatus := range status {
		abs := filepath.Join(root, filepath.FromSlash(relPath))
		entries[abs] = model.GitStatus{
			Worktree: model.StatusCode(fileStatus.Worktree),
			Staging:  model.StatusCode(fileStatus.Staging),
		}
	}

	return New(entries), true
}

// IsModifiedStatus returns true iff status represents a working-tree
// modification, a new (untracked or staged) file, or a rename.
func IsModifiedStatus(status *model.GitStatus) bool {
	if status == nil {
		return false
	}
	switch {
	case status.Worktree == model.Modified:
		return true
	case status.Staging == model.Modified:
		return true
	case status.Worktree == model.Untracked:
		return true
	case status.Staging == model.Added:
		return true
	case status.Worktree == model.Renamed:
		return true
	}
	return false
}

// FormatGitStatus maps a status bit-set to its symbolic string. Precedence,
// evaluated in order: working-tree states, then index states, then ignored,
// then clean.
func FormatGitStatus(status *model.GitStatus) string {
	if status == nil {
		return "clear"
	}

	switch status.Worktree {
	case model.Untracked:
		return "untracked"
	case model.Modified:
		return "modified"
	case model.Deleted:
		return "deleted"
	case model.Renamed:
		return "renamed"
	}

	switch status.Staging {
	case model.Added:
		return "staged_new"
	case model.Modified:
		return "staged_modified"
	case model.Deleted:
		return "staged_deleted"
	}

	if status.Worktree == model.Ignored || status.Staging == model.Ignored {
		return "ignored"
	}

	if status.Worktree == model.Unmodified && status.Staging == model.Unmodified {
		return "clean"
	}
	if status.Worktree == 0 && status.Staging == 0 {
		return "clean"
	}

	return "unknown"
}
