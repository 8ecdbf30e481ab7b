// Package pathutil computes the directory-distance penalty, which the
// scorer uses to bias results toward files near the editor's current file,
// and a filename-similarity bonus between two paths. The scorer does not
// apply the similarity bonus.
package pathutil

import (
	"strings"

	"github.com/rybkr/fffpicker/internal/model"
	"github.com/xrash/smetrics"
)

const maxPenaltyLevelMultiplier = 10

// jaroWinklerBoostThreshold and jaroWinklerPrefixSize are the standard
// Jaro-Winkler tuning parameters, matching strsim's defaults.
const (
	jaroWinklerBoostThreshold = 0.7
	jaroWinklerPrefixSize     = 4
)

// DistancePenalty computes the directory-distance penalty between the
// current file and a candidate's relative path. With no current file, or
// when both files share a parent directory, the penalty is zero.
func DistancePenalty(currentFile, candidateRelPath string, perLevelPenalty int64) int64 {
	if currentFile == "" {
		return 0
	}
	return distancePenalty(dirComponents(currentFile), dirComponents(candidateRelPath), perLevelPenalty)
}

// DistancePenaltyPrecomputed is the variant that takes the current file's
// directory components precomputed once per query. currentDirParts must be
// nil only when there is no current file at all; a current file at the
// workspace root is represented by a non-nil, empty slice (see
// model.NewCurrentFileData), so it still incurs a penalty against
// candidates in subdirectories.
func DistancePenaltyPrecomputed(currentDirParts []string, candidateRelPath string, perLevelPenalty int64) int64 {
	if currentDirParts == nil {
		return 0
	}
	return distancePenalty(currentDirParts, dirComponents(candidateRelPath), perLevelPenalty)
}

func distancePenalty(currentParts, candidateParts []string, perLevelPenalty int64) int64 {
	if sameDir(currentParts, candidateParts) {
		return 0
	}

	common := longestCommonPrefixLen(currentParts, candidateParts)
	d := int64((len(currentParts) - common) + (len(candidateParts) - common))

	penalty := d * perLevelPenalty
	limit := maxPenaltyLevelMultiplier * perLevelPenalty
	if perLevelPenalty < 0 {
		if penalty < limit {
			return limit
		}
		return penalty
	}
	if penalty > limit {
		return limit
	}
	return penalty
}

func sameDir(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func longestCommonPrefixLen(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func dirComponents(relPath string) []string {
	dir := relPath
	if idx := strings.LastIndexAny(dir, "/\\"); idx >= 0 {
		dir = dir[:idx]
	} else {
		dir = ""
	}
	if dir == "" {
		return nil
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

// FilenameSimilarityBonus computes the filename-structural bonus between
// the current file and a candidate path, based on Jaro-Winkler similarity
// of their file stems.
func FilenameSimilarityBonus(currentPath, candidatePath string, maxBonus int64, threshold float64) int64 {
	if currentPath == "" || candidatePath == "" || currentPath == candidatePath {
		return 0
	}
	return similarityBonus(model.NewCurrentFileData(currentPath).Stem, stem(candidatePath), maxBonus, threshold)
}

// FilenameSimilarityBonusPrecomputed is the variant taking the current
// file's stem precomputed once per query.
func FilenameSimilarityBonusPrecomputed(currentStem, candidatePath string, maxBonus int64, threshold float64) int64 {
	if currentStem == "" {
		return 0
	}
	return similarityBonus(currentStem, stem(candidatePath), maxBonus, threshold)
}

func similarityBonus(currentStem, candidateStem string, maxBonus int64, threshold float64) int64 {
	if currentStem == "" || candidateStem == "" {
		return 0
	}

	similarity := smetrics.JaroWinkler(currentStem, candidateStem, jaroWinklerBoostThreshold, jaroWinklerPrefixSize)
	if similarity < threshold {
		return 0
	}
	return int64(similarity * float64(maxBonus))
}

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
