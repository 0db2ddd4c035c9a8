package resolver

import (
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aledsdavies/argbind/pkgs/params"
)

// maxSuggestDistance bounds the edit distance of a typo suggestion.
const maxSuggestDistance = 2

// findClosestMatch returns the candidate closest to target, or "" when
// nothing is close. Candidates containing target as a subsequence and
// candidates within maxSuggestDistance edits are eligible; the smallest
// edit distance wins, then the earliest candidate.
func findClosestMatch(target string, candidates []string) string {
	if target == "" || len(candidates) == 0 {
		return ""
	}

	eligible := make(map[int]bool)
	for _, rank := range fuzzy.RankFindFold(target, candidates) {
		eligible[rank.OriginalIndex] = true
	}

	folded := params.Fold(target)
	best, bestDistance := "", -1
	for i, c := range candidates {
		d := fuzzy.LevenshteinDistance(folded, params.Fold(c))
		if !eligible[i] && d > maxSuggestDistance {
			continue
		}
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}

// didYouMean formats a suggestion suffix for a message.
func didYouMean(prefix, target string, candidates []string) string {
	if match := findClosestMatch(target, candidates); match != "" {
		return "; did you mean " + prefix + match + "?"
	}
	return ""
}
