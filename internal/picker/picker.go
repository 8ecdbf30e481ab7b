// Package picker is the facade: lifecycle, query entry point, and scan-state
// signalling, wiring the index, scanner, watcher, scorer, and frecency
// tracker into the embedding API described in spec §6.
package picker

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-git/v5"

	"github.com/rybkr/fffpicker/internal/frecency"
	"github.com/rybkr/fffpicker/internal/index"
	"github.com/rybkr/fffpicker/internal/matcher"
	"github.com/rybkr/fffpicker/internal/model"
	"github.com/rybkr/fffpicker/internal/scanner"
	"github.com/rybkr/fffpicker/internal/scorer"
	"github.com/rybkr/fffpicker/internal/watcher"
)

// ErrInvalidPath is returned by New when basePath does not exist.
var ErrInvalidPath = scanner.ErrInvalidPath

// ErrNotInitialized is returned by package-level operations before
// InitFilePicker has succeeded.
var ErrNotInitialized = errors.New("picker: not initialized")

// snapshotReadTimeout and snapshotReadInterval bound the query-side retry
// on snapshot contention (spec §4.8 step 1).
const (
	snapshotReadTimeout  = 100 * time.Millisecond
	snapshotReadInterval = 1 * time.Millisecond
)

// scanProgressPollInterval is how often WaitForInitialScan polls is_scanning.
const scanProgressPollInterval = 50 * time.Millisecond

// Config carries tunables a host may override; matches the teacher's
// env-var-with-flag-override precedence pattern (see cmd/fffpicker).
type Config struct {
	DirectoryDistancePenalty    int64
	FilenameSimilarityBonusMax  int64
	FilenameSimilarityThreshold float64
	FrecencyCacheSize           int
	Logger                      *slog.Logger
}

// DefaultConfig returns the tunables used when a host supplies none.
func DefaultConfig() Config {
	return Config{
		DirectoryDistancePenalty:    -2,
		FilenameSimilarityBonusMax:  50,
		FilenameSimilarityThreshold: 0.6,
		FrecencyCacheSize:           10000,
	}
}

// Picker is the in-process file-picker facade: it owns a FileIndex and a
// Store (SearchSnapshot holder) and drives the scanner and watcher against
// them.
type Picker struct {
	basePath   string
	gitWorkdir string
	cfg        Config
	logger     *slog.Logger

	idx   *index.FileIndex
	store *index.Store

	tracker frecency.Tracker
	match   matcher.Matcher
	watch   *watcher.Watcher

	isScanning atomic.Bool

	shutdownOnce sync.Once
}

// New constructs a Picker rooted at basePath, discovers an enclosing git
// repository if any, and starts the background watcher. Returns
// ErrInvalidPath if basePath does not exist.
func New(basePath string, tracker frecency.Tracker, cfg Config) (*Picker, error) {
	if tracker == nil {
		tracker = frecency.NewMemoryTracker(cfg.FrecencyCacheSize)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	gitWorkdir := discoverGitWorkdir(basePath)

	p := &Picker{
		basePath:   basePath,
		gitWorkdir: gitWorkdir,
		cfg:        cfg,
		logger:     cfg.Logger,
		idx:        index.New(cfg.Logger),
		store:      index.NewStore(),
		tracker:    tracker,
		match:      matcher.FuzzyMatcher{},
	}

	files, gitCache, err := scanner.Scan(basePath, gitWorkdir)
	if err != nil {
		return nil, err
	}

	sortFilesByRelativePath(files)
	p.idx.UpdateFiles(files, gitCache, p.tracker)
	p.store.PublishFrom(p.idx)

	p.watch = watcher.New(basePath, gitWorkdir, p.idx, p.store, p.tracker, p.logger)
	if err := p.watch.Start(); err != nil {
		p.logger.Error("failed to start watcher, continuing without live updates", "err", err)
	}

	return p, nil
}

// discoverGitWorkdir returns the working-tree root of the repository
// enclosing basePath, or "" if none.
func discoverGitWorkdir(basePath string) string {
	repo, err := git.PlainOpenWithOptions(basePath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}
	return wt.Filesystem.Root()
}

func sortFilesByRelativePath(files []model.FileItem) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
}

// TriggerRescan runs a full rescan on a background goroutine: sets
// is_scanning, scans, calls UpdateFiles, publishes, clears is_scanning.
// This is the resolution of spec §9's open question about the truncated
// trigger_rescan fragment.
func (p *Picker) TriggerRescan() {
	p.isScanning.Store(true)
	go func() {
		defer p.isScanning.Store(false)

		files, gitCache, err := scanner.Scan(p.basePath, p.gitWorkdir)
		if err != nil {
			p.logger.Error("rescan failed", "err", err)
			return
		}
		sortFilesByRelativePath(files)
		p.idx.UpdateFiles(files, gitCache, p.tracker)
		p.store.PublishFrom(p.idx)
	}()
}

// GetCachedFiles returns the current sequence of files in the live
// snapshot.
func (p *Picker) GetCachedFiles() []model.FileItem {
	return p.store.Load().Files
}

// AccessFile records an access hit in the frecency tracker.
func (p *Picker) AccessFile(relativePath string) error {
	return p.tracker.TrackAccess(relativePath)
}

// ScanProgress is the {total_files, scanned_files, is_scanning} triplet of
// spec §6. The original never tracks partial progress, so total and
// scanned are always equal.
type ScanProgress struct {
	TotalFiles   int
	ScannedFiles int
	IsScanning   bool
}

// GetScanProgress reports the current scan progress.
func (p *Picker) GetScanProgress() ScanProgress {
	n := len(p.store.Load().Files)
	return ScanProgress{TotalFiles: n, ScannedFiles: n, IsScanning: p.IsScanning()}
}

// IsScanning reports the atomic scan-in-progress flag.
func (p *Picker) IsScanning() bool {
	return p.isScanning.Load()
}

// Generation returns the index's current scan generation, which advances on
// every insert, removal, full rescan, and git-status refresh — including
// ones that leave the file count unchanged.
func (p *Picker) Generation() uint64 {
	return p.idx.Generation()
}

// RefreshGitStatus is a stub returning the current cached files, matching
// the embedding contract's "stub for a future full refresh".
func (p *Picker) RefreshGitStatus() []model.FileItem {
	return p.GetCachedFiles()
}

// StopBackgroundMonitor sets the shutdown signal and stops the watcher.
func (p *Picker) StopBackgroundMonitor() {
	p.shutdownOnce.Do(func() {
		if p.watch != nil {
			p.watch.Stop()
		}
	})
}

// WaitForInitialScan polls IsScanning every 50ms until idle or timeout
// elapses (default 5s). Returns whether the picker is idle.
func (p *Picker) WaitForInitialScan(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	deadline := time.Now().Add(timeout)
	for {
		if !p.IsScanning() {
			return true
		}
		if time.Now().After(deadline) {
			return !p.IsScanning()
		}
		time.Sleep(scanProgressPollInterval)
	}
}

// FuzzySearch implements §4.8: bounded-retry snapshot read, scoring,
// sort-and-truncate, and result materialization.
func (p *Picker) FuzzySearch(query string, maxResults, maxThreads int, currentFile string) model.SearchResult {
	snap, ok := p.readSnapshotWithRetry()
	if !ok {
		return model.SearchResult{}
	}

	ctx := model.ScoringContext{
		Query:                       query,
		CurrentFile:                 currentFile,
		CurrentFileData:             model.NewCurrentFileData(currentFile),
		MaxTypos:                    model.MaxTyposFor(query),
		MaxThreads:                  max(maxThreads, 1),
		DirectoryDistancePenalty:    p.cfg.DirectoryDistancePenalty,
		FilenameSimilarityBonusMax:  p.cfg.FilenameSimilarityBonusMax,
		FilenameSimilarityThreshold: p.cfg.FilenameSimilarityThreshold,
	}

	scored := scorer.MatchAndScore(snap.Files, ctx, p.match)
	totalMatched := len(scored)

	scored = scorer.SortAndTruncate(scored, snap.Files, maxResults)

	items := make([]model.FileItem, len(scored))
	scores := make([]model.Score, len(scored))
	for i, s := range scored {
		items[i] = snap.Files[s.Index]
		scores[i] = s.Score
	}

	return model.SearchResult{
		Items:        items,
		Scores:       scores,
		TotalMatched: totalMatched,
		TotalFiles:   len(snap.Files),
	}
}

// readSnapshotWithRetry attempts a non-blocking snapshot read, retrying
// every snapshotReadInterval until it succeeds or snapshotReadTimeout
// elapses. On timeout it gives up and the caller returns an empty result.
func (p *Picker) readSnapshotWithRetry() (index.Snapshot, bool) {
	deadline := time.Now().Add(snapshotReadTimeout)
	for {
		if snap, ok := p.store.TryLoad(); ok {
			return snap, true
		}
		if time.Now().After(deadline) {
			return index.Snapshot{}, false
		}
		time.Sleep(snapshotReadInterval)
	}
}
