// Package model holds the value types shared across the index, scanner,
// watcher, and scorer: the indexed file record, its diagnostic score, and
// the scoring context threaded through a single query.
package model

import "strings"

// FileItem describes one workspace file as tracked by the index.
//
// RelativePath is the primary sort key and is always compared
// lexicographically. ModifiedUnix is zero if the modification time could
// not be read. GitStatus is nil when the file is outside any repository
// or status could not be computed.
type FileItem struct {
	AbsPath      string
	RelativePath string
	FileName     string
	Extension    string
	Directory    string
	Size         int64
	ModifiedUnix int64

	AccessFrecency       int64
	ModificationFrecency int64
	TotalFrecency        int64

	GitStatus     *GitStatus
	IsCurrentFile bool
}

// GitStatus is the bit-set reported by the git interface for one path:
// the worktree state and the index (staged) state, following go-git's
// StatusCode vocabulary.
type GitStatus struct {
	Worktree StatusCode
	Staging  StatusCode
}

// StatusCode mirrors go-git's plumbing/format/index status codes closely
// enough to drive format_git_status without depending on go-git types
// outside of internal/gitstatus.
type StatusCode byte

const (
	Unmodified StatusCode = ' '
	Untracked  StatusCode = '?'
	Modified   StatusCode = 'M'
	Added      StatusCode = 'A'
	Deleted    StatusCode = 'D'
	Renamed    StatusCode = 'R'
	Copied     StatusCode = 'C'
	UpdatedButUnmerged StatusCode = 'U'
	Ignored    StatusCode = '!'
)

// Score is the diagnostic breakdown attached to one search hit.
// RelationBonus is retained for wire compatibility with the embedding
// contract; it is never set by the scorer.
type Score struct {
	Total               int64
	BaseScore           int64
	FilenameBonus       int64
	SpecialFilenameBonus int64
	FrecencyBoost       int64
	DistancePenalty     int64
	RelationBonus       int64
	MatchType           MatchType
}

// MatchType classifies how a hit was produced.
type MatchType string

const (
	MatchExactFilename MatchType = "exact_filename"
	MatchFuzzyFilename MatchType = "fuzzy_filename"
	MatchFuzzyPath     MatchType = "fuzzy_path"
	MatchFrecency      MatchType = "frecency"
)

// CurrentFileData precomputes the stem and directory components of the
// "current file" once per query instead of per candidate inside the
// scoring loop. DirParts is nil only on the zero value (no current file);
// a current file living at the workspace root has a non-nil, empty
// DirParts, so the two cases can be told apart downstream.
type CurrentFileData struct {
	RelativePath string
	Stem         string
	DirParts     []string
}

// NewCurrentFileData precomputes stem and directory parts for relPath.
// Returns the zero value with an empty RelativePath if relPath is empty.
func NewCurrentFileData(relPath string) CurrentFileData {
	if relPath == "" {
		return CurrentFileData{}
	}
	return CurrentFileData{
		RelativePath: relPath,
		Stem:         stem(relPath),
		DirParts:     splitDirComponents(relPath),
	}
}

// stem returns the base filename without its final extension.
func stem(path string) string {
	base := path
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		return base[:idx]
	}
	return base
}

// splitDirComponents splits the parent directory of path into normal
// components, dropping root, current-dir ("."), and parent-dir ("..")
// tokens. A path with no parent directory (one living at the workspace
// root) yields a non-nil, empty slice — distinct from the nil DirParts of
// the zero CurrentFileData, which means "no current file at all".
func splitDirComponents(path string) []string {
	dir := path
	if idx := strings.LastIndexAny(dir, "/\\"); idx >= 0 {
		dir = dir[:idx]
	} else {
		dir = ""
	}
	if dir == "" {
		return []string{}
	}
	parts := strings.Split(strings.ReplaceAll(dir, "\\", "/"), "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ScoringContext carries the per-query parameters consumed by the scorer.
type ScoringContext struct {
	Query                       string
	CurrentFile                 string
	CurrentFileData             CurrentFileData
	MaxTypos                    int
	MaxThreads                  int
	DirectoryDistancePenalty    int64
	FilenameSimilarityBonusMax  int64
	FilenameSimilarityThreshold float64
}

// SearchResult is the wire shape produced by a fuzzy query.
type SearchResult struct {
	Items       []FileItem
	Scores      []Score
	TotalMatched int
	TotalFiles   int
}

// MaxTyposFor computes the caller-side max_typos parameter:
// clamp(floor(len(query)/4), 2, 6).
func MaxTyposFor(query string) int {
	n := len(query) / 4
	if n < 2 {
		return 2
	}
	if n > 6 {
		return 6
	}
	return n
}
