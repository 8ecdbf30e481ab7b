package scorer

import (
	"testing"

	"github.com/rybkr/fffpicker/internal/matcher"
	"github.com/rybkr/fffpicker/internal/model"
)

func newCtx(query, currentFile string) model.ScoringContext {
	return model.ScoringContext{
		Query:                       query,
		CurrentFile:                 currentFile,
		CurrentFileData:             model.NewCurrentFileData(currentFile),
		MaxTypos:                    model.MaxTyposFor(query),
		MaxThreads:                  1,
		DirectoryDistancePenalty:    -2,
		FilenameSimilarityBonusMax:  50,
		FilenameSimilarityThreshold: 0.6,
	}
}

func fileAt(relPath string) model.FileItem {
	return model.FileItem{
		RelativePath: relPath,
		FileName:     baseName(relPath),
	}
}

func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// TestExactFilenameBeatsSubstring is scenario test 1 from spec §8.
func TestExactFilenameBeatsSubstring(t *testing.T) {
	files := []model.FileItem{fileAt("src/main.rs"), fileAt("src/mainloop.rs")}
	ctx := newCtx("main.rs", "")

	scored := MatchAndScore(files, ctx, matcher.FuzzyMatcher{})
	scored = SortAndTruncate(scored, files, 0)

	if len(scored) < 2 {
		t.Fatalf("expected at least 2 results, got %d", len(scored))
	}
	if files[scored[0].Index].RelativePath != "src/main.rs" {
		t.Fatalf("expected src/main.rs first, got %s", files[scored[0].Index].RelativePath)
	}
	if scored[0].Score.MatchType != model.MatchExactFilename {
		t.Fatalf("expected exact_filename match type, got %s", scored[0].Score.MatchType)
	}
}

// TestEntryPointBonus is scenario test 2 from spec §8. The query "lrs" is a
// subsequence of both filenames but a literal substring of neither, so the
// fuzzy_filename branch (which takes precedence over the entry-point branch
// whenever the query is a literal substring) never fires here — only
// src/lib.rs's entry-point status gives it a special_filename_bonus.
func TestEntryPointBonus(t *testing.T) {
	files := []model.FileItem{fileAt("src/lib.rs"), fileAt("src/library.rs")}
	ctx := newCtx("lrs", "")

	scored := MatchAndScore(files, ctx, matcher.FuzzyMatcher{})
	scored = SortAndTruncate(scored, files, 0)

	if len(scored) < 1 {
		t.Fatalf("expected at least 1 result")
	}
	if files[scored[0].Index].RelativePath != "src/lib.rs" {
		t.Fatalf("expected src/lib.rs first, got %s", files[scored[0].Index].RelativePath)
	}
	if scored[0].Score.SpecialFilenameBonus <= 0 {
		t.Fatalf("expected a positive special_filename_bonus, got %d", scored[0].Score.SpecialFilenameBonus)
	}
}

// TestCurrentFileDemotion is scenario test 4 from spec §8.
func TestCurrentFileDemotion(t *testing.T) {
	files := []model.FileItem{fileAt("foo.rs"), fileAt("bar.rs")}
	ctx := newCtx("", "foo.rs")

	scored := scoreAllByFrecency(files, ctx)
	scored = SortAndTruncate(scored, files, 0)

	last := scored[len(scored)-1]
	if files[last.Index].RelativePath != "foo.rs" {
		t.Fatalf("expected foo.rs last, got %s", files[last.Index].RelativePath)
	}
	if last.Score.Total != currentFileDemotionOther {
		t.Fatalf("expected demotion of %d, got %d", currentFileDemotionOther, last.Score.Total)
	}
}

func TestCurrentFileDemotionModified(t *testing.T) {
	files := []model.FileItem{
		{RelativePath: "foo.rs", FileName: "foo.rs", GitStatus: &model.GitStatus{Worktree: model.Modified}},
	}
	ctx := newCtx("", "foo.rs")

	scored := scoreAllByFrecency(files, ctx)
	if scored[0].Score.Total != currentFileDemotionModified {
		t.Fatalf("expected demotion of %d, got %d", currentFileDemotionModified, scored[0].Score.Total)
	}
}

func TestShortQueryReturnsAllFilesAsFrecency(t *testing.T) {
	files := []model.FileItem{fileAt("a.txt"), fileAt("b.txt"), fileAt("c.txt")}
	ctx := newCtx("a", "")

	scored := MatchAndScore(files, ctx, matcher.FuzzyMatcher{})
	if len(scored) != len(files) {
		t.Fatalf("expected %d results for short query, got %d", len(files), len(scored))
	}
	for _, s := range scored {
		if s.Score.MatchType != model.MatchFrecency {
			t.Fatalf("expected match_type frecency, got %s", s.Score.MatchType)
		}
	}
}

func TestSortStableTieBreakByModifiedTime(t *testing.T) {
	files := []model.FileItem{
		{RelativePath: "a.txt", FileName: "a.txt", ModifiedUnix: 100},
		{RelativePath: "b.txt", FileName: "b.txt", ModifiedUnix: 200},
	}
	scored := []Scored{
		{Index: 0, Score: model.Score{Total: 10}},
		{Index: 1, Score: model.Score{Total: 10}},
	}

	sorted := SortAndTruncate(scored, files, 0)
	if files[sorted[0].Index].RelativePath != "b.txt" {
		t.Fatalf("expected b.txt first (more recently modified), got %s", files[sorted[0].Index].RelativePath)
	}
}
