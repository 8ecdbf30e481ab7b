// Package scanner performs the initial parallel workspace walk and applies
// the git-status overlay to the resulting file list.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/rybkr/fffpicker/internal/gitstatus"
	"github.com/rybkr/fffpicker/internal/model"
)

// ErrInvalidPath is returned when the workspace root does not exist.
var ErrInvalidPath = fmt.Errorf("workspace root does not exist")

// Scan walks basePath with the ignore-aware walker and concurrently reads
// git status from gitWorkdir (if non-empty), then applies the git overlay
// in parallel over the collected files. Returns files unsorted; the caller
// sorts before indexing.
func Scan(basePath, gitWorkdir string) ([]model.FileItem, *gitstatus.Cache, error) {
	if info, err := os.Stat(basePath); err != nil || !info.IsDir() {
		return nil, nil, ErrInvalidPath
	}

	var (
		wg       sync.WaitGroup
		files    []model.FileItem
		gitCache *gitstatus.Cache
		gitErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				gitErr = fmt.Errorf("git status worker panicked: %v", r)
			}
		}()
		cache, ok := gitstatus.ReadGitStatus(gitWorkdir)
		if ok {
			gitCache = cache
		}
	}()

	files = walkFiles(basePath)

	wg.Wait()
	if gitErr != nil {
		return nil, nil, gitErr
	}

	applyGitOverlay(files, gitCache)

	return files, gitCache, nil
}

// walkFiles collects every regular, non-ignored, non-.git file under
// basePath. Individual entry errors are swallowed (best-effort).
func walkFiles(basePath string) []model.FileItem {
	matcher := loadIgnoreMatcher(basePath)

	var files []model.FileItem
	_ = filepath.WalkDir(basePath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // per-entry walk errors are swallowed
		}

		if isGitFile(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(basePath, p)
		if err != nil {
			return nil //nolint:nilerr
		}
		rel = filepath.ToSlash(rel)

		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}

		info, err := d.Info()
		var size int64
		var modified int64
		if err == nil {
			size = info.Size()
			modified = info.ModTime().Unix()
		}

		files = append(files, model.FileItem{
			AbsPath:      p,
			RelativePath: rel,
			FileName:     filepath.Base(p),
			Extension:    strings.TrimPrefix(filepath.Ext(p), "."),
			Directory:    filepath.ToSlash(filepath.Dir(rel)),
			Size:         size,
			ModifiedUnix: modified,
		})
		return nil
	})

	return files
}

// loadIgnoreMatcher builds an ignore matcher from .gitignore and
// .git/info/exclude at the workspace root, if present. Returns nil if
// neither file exists.
func loadIgnoreMatcher(basePath string) *ignore.GitIgnore {
	var lines []string

	for _, rel := range []string{".gitignore", filepath.Join(".git", "info", "exclude")} {
		data, err := os.ReadFile(filepath.Join(basePath, rel))
		if err != nil {
			continue
		}
		lines = append(lines, strings.Split(string(data), "\n")...)
	}

	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}

// isGitFile reports whether p lies inside a .git directory.
func isGitFile(p string) bool {
	return strings.Contains(filepath.ToSlash(p), "/.git/") || strings.HasSuffix(filepath.ToSlash(p), "/.git")
}

// applyGitOverlay sets each file's GitStatus by absolute-path lookup in
// cache, sharded across a bounded worker pool.
func applyGitOverlay(files []model.FileItem, cache *gitstatus.Cache) {
	if cache == nil || len(files) == 0 {
		return
	}

	workers := runtime.NumCPU()
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	chunk := (len(files) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= len(files) {
			break
		}
		end := start + chunk
		if end > len(files) {
			end = len(files)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if status, ok := cache.Lookup(files[i].AbsPath); ok {
					s := status
					files[i].GitStatus = &s
				}
			}
		}(start, end)
	}
	wg.Wait()
}

// ShouldAddNewFile reports whether a newly-created path at absPath should
// be added to the index: it must not be a git internal, must be a regular
// file, and — if a repository exists at gitWorkdir — must not be ignored.
func ShouldAddNewFile(absPath, gitWorkdir string) bool {
	if isGitFile(absPath) {
		return false
	}

	info, err := os.Stat(absPath)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if gitWorkdir == "" {
		return true
	}

	matcher := loadIgnoreMatcher(gitWorkdir)
	if matcher == nil {
		return true
	}
	rel, err := filepath.Rel(gitWorkdir, absPath)
	if err != nil {
		return true
	}
	return !matcher.MatchesPath(filepath.ToSlash(rel))
}
