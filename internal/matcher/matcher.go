// Package matcher defines the approximate-string-matcher contract consumed
// by the scorer, and an adapter over sahilm/fuzzy implementing it.
package matcher

import (
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// Match is one matcher hit: the index into the haystack slice that was
// passed in, and a base score for that candidate.
type Match struct {
	Index     int
	BaseScore int64
}

// Options configures one MatchList call.
type Options struct {
	Prefilter bool
	MaxTypos  int
	Sort      bool
	Threads   int
}

// Matcher is the external approximate-matcher collaborator (spec §6).
type Matcher interface {
	MatchList(query string, haystack []string, opts Options) []Match
}

// FuzzyMatcher adapts github.com/sahilm/fuzzy to the Matcher contract.
type FuzzyMatcher struct{}

// haystackSource implements fuzzy.Source over a []string without copying.
type haystackSource []string

func (h haystackSource) String(i int) string { return h[i] }
func (h haystackSource) Len() int            { return len(h) }

// MatchList runs the query against haystack, sharded across opts.Threads
// goroutines when the haystack is large enough to benefit, then merges and
// optionally sorts the combined result.
func (FuzzyMatcher) MatchList(query string, haystack []string, opts Options) []Match {
	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}

	if query == "" {
		all := make([]Match, len(haystack))
		for i := range haystack {
			all[i] = Match{Index: i}
		}
		return all
	}

	if opts.Prefilter && !prefilterPossible(query, haystack) {
		return nil
	}

	var matches []Match
	if threads == 1 || len(haystack) < threads*64 {
		matches = matchShard(query, haystack, 0)
	} else {
		matches = matchParallel(query, haystack, threads)
	}

	if opts.MaxTypos > 0 {
		matches = filterByTypos(query, haystack, matches, opts.MaxTypos)
	}

	if opts.Sort {
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].BaseScore > matches[j].BaseScore
		})
	}

	return matches
}

func matchShard(query string, haystack []string, offset int) []Match {
	results := fuzzy.FindFrom(query, haystackSource(haystack))
	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = Match{Index: offset + r.Index, BaseScore: int64(r.Score)}
	}
	return out
}

func matchParallel(query string, haystack []string, threads int) []Match {
	n := len(haystack)
	chunk := (n + threads - 1) / threads

	var wg sync.WaitGroup
	results := make([][]Match, threads)

	for t := 0; t < threads; t++ {
		start := t * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(t, start, end int) {
			defer wg.Done()
			results[t] = matchShard(query, haystack[start:end], start)
		}(t, start, end)
	}
	wg.Wait()

	var merged []Match
	for _, shard := range results {
		merged = append(merged, shard...)
	}
	return merged
}

// prefilterPossible performs a cheap ASCII subsequence pre-check: if no
// candidate in haystack contains every rune of query as a subsequence
// (case-insensitive), skip the matcher entirely. This never rejects a
// haystack entry the real matcher would have accepted; it is a fast-path
// guard only.
func prefilterPossible(query string, haystack []string) bool {
	if query == "" {
		return true
	}
	lowerQuery := strings.ToLower(query)
	for _, h := range haystack {
		if isSubsequence(lowerQuery, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

func isSubsequence(needle, haystack string) bool {
	i := 0
	for j := 0; i < len(needle) && j < len(haystack); j++ {
		if needle[i] == haystack[j] {
			i++
		}
	}
	return i == len(needle)
}

// filterByTypos drops matches whose matched-index spread, relative to the
// query length, exceeds maxTypos — a tolerance heuristic standing in for
// sahilm/fuzzy's lack of a native edit-distance budget.
func filterByTypos(query string, haystack []string, matches []Match, maxTypos int) []Match {
	if query == "" {
		return matches
	}

	out := matches[:0:0]
	for _, m := range matches {
		result := fuzzy.Find(query, []string{haystack[m.Index]})
		if len(result) == 0 {
			continue
		}
		idxs := result[0].MatchedIndexes
		if len(idxs) == 0 {
			out = append(out, m)
			continue
		}
		spread := idxs[len(idxs)-1] - idxs[0] + 1
		typos := spread - len(idxs)
		if typos <= maxTypos {
			out = append(out, m)
		}
	}
	return out
}
