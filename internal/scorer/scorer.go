// Package scorer implements the composite-score pipeline: matching a query
// against a file list and producing diagnostic Score values per candidate.
package scorer

import (
	"sort"
	"strings"

	"github.com/rybkr/fffpicker/internal/gitstatus"
	"github.com/rybkr/fffpicker/internal/matcher"
	"github.com/rybkr/fffpicker/internal/model"
	"github.com/rybkr/fffpicker/internal/pathutil"
)

const (
	exactFilenameBonusDivisor   = 5
	exactFilenameBonusMultiplier = 2
	fuzzyFilenameBonusDivisor   = 5
	specialEntryBonusPercent    = 18

	currentFileDemotionModified = -150
	currentFileDemotionOther    = -300
)

// entryPointFiles is the exact-filename set of conventional module/package
// entry points.
var entryPointFiles = map[string]bool{
	"mod.rs": true, "lib.rs": true, "main.rs": true,
	"index.js": true, "index.jsx": true, "index.ts": true, "index.tsx": true,
	"index.mjs": true, "index.cjs": true, "index.vue": true,
	"__init__.py": true, "__main__.py": true,
	"main.go": true, "main.c": true,
	"index.php": true,
	"main.rb": true, "index.rb": true,
}

// Scored pairs a file-slice index with its Score.
type Scored struct {
	Index int
	Score model.Score
}

// MatchAndScore matches ctx.Query against files and returns one Scored
// entry per result, unsorted, ready for the caller to sort and truncate.
func MatchAndScore(files []model.FileItem, ctx model.ScoringContext, m matcher.Matcher) []Scored {
	if len(ctx.Query) < 2 {
		return scoreAllByFrecency(files, ctx)
	}

	haystack := make([]string, len(files))
	for i, f := range files {
		haystack[i] = f.RelativePath
	}

	matches := m.MatchList(ctx.Query, haystack, matcher.Options{
		Prefilter: true,
		MaxTypos:  ctx.MaxTypos,
		Sort:      false,
		Threads:   ctx.MaxThreads,
	})

	out := make([]Scored, 0, len(matches))
	for _, match := range matches {
		file := files[match.Index]
		out = append(out, scoreMainPath(match.Index, file, match.BaseScore, ctx))
	}
	return out
}

func scoreMainPath(index int, file model.FileItem, baseScore int64, ctx model.ScoringContext) Scored {
	frecencyBoost := saturatingMul(baseScore, file.TotalFrecency) / 100
	distancePenalty := pathutil.DistancePenaltyPrecomputed(ctx.CurrentFileData.DirParts, file.RelativePath, ctx.DirectoryDistancePenalty)

	filenameBonus, matchType, special := calculateFilenameBonus(file.FileName, ctx.Query, baseScore)

	total := saturatingAdd(saturatingAdd(baseScore, frecencyBoost), saturatingAdd(distancePenalty, filenameBonus))

	var specialBonus int64
	if special {
		specialBonus = filenameBonus
	}

	return Scored{
		Index: index,
		Score: model.Score{
			Total:                total,
			BaseScore:            baseScore,
			FilenameBonus:        filenameBonus,
			SpecialFilenameBonus: specialBonus,
			FrecencyBoost:        frecencyBoost,
			DistancePenalty:      distancePenalty,
			MatchType:            matchType,
		},
	}
}

func calculateFilenameBonus(fileName, query string, baseScore int64) (bonus int64, matchType model.MatchType, special bool) {
	if strings.EqualFold(fileName, query) {
		return saturatingDiv(baseScore, exactFilenameBonusDivisor) * exactFilenameBonusMultiplier, model.MatchExactFilename, false
	}
	if strings.Contains(strings.ToLower(fileName), strings.ToLower(query)) {
		return saturatingDiv(baseScore, fuzzyFilenameBonusDivisor), model.MatchFuzzyFilename, false
	}
	if isSpecialEntryPointFile(fileName) {
		return saturatingMul(baseScore, specialEntryBonusPercent) / 100, model.MatchFuzzyPath, true
	}
	return 0, model.MatchFuzzyPath, false
}

func isSpecialEntryPointFile(fileName string) bool {
	return entryPointFiles[fileName]
}

func scoreAllByFrecency(files []model.FileItem, ctx model.ScoringContext) []Scored {
	out := make([]Scored, len(files))
	for i, file := range files {
		totalFrecency := saturatingAdd(file.AccessFrecency, saturatingMul(file.ModificationFrecency, 4))
		distancePenalty := pathutil.DistancePenaltyPrecomputed(ctx.CurrentFileData.DirParts, file.RelativePath, ctx.DirectoryDistancePenalty)

		var currentFileBonus int64
		if ctx.CurrentFile != "" && ctx.CurrentFile == file.RelativePath {
			if gitstatus.IsModifiedStatus(file.GitStatus) {
				currentFileBonus = currentFileDemotionModified
			} else {
				currentFileBonus = currentFileDemotionOther
			}
		}

		total := saturatingAdd(saturatingAdd(totalFrecency, distancePenalty), currentFileBonus)

		out[i] = Scored{
			Index: i,
			Score: model.Score{
				Total:           total,
				FrecencyBoost:   totalFrecency,
				DistancePenalty: distancePenalty,
				MatchType:       model.MatchFrecency,
			},
		}
	}
	return out
}

// SortAndTruncate sorts descending by Total, tie-breaking by descending
// modification time, then truncates to maxResults.
func SortAndTruncate(scored []Scored, files []model.FileItem, maxResults int) []Scored {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		return files[a.Index].ModifiedUnix > files[b.Index].ModifiedUnix
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return maxInt64
		}
		return minInt64
	}
	return sum
}

func saturatingMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/b != a {
		if (a > 0) == (b > 0) {
			return maxInt64
		}
		return minInt64
	}
	return p
}

func saturatingDiv(a int64, b int64) int64 {
	if b == 0 {
		return 0
	}
	return a / b
}

const (
	maxInt64 = int64(1<<63 - 1)
	minInt64 = -maxInt64 - 1
)
