package merr

import "strings"

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// FindClosestMatch returns the candidate closest to name within a maximum
// edit distance of 3, or "" if nothing is close enough. Comparison is
// case-insensitive.
func FindClosestMatch(name string, candidates []string) string {
	const maxDistance = 3

	best := ""
	bestDist := maxDistance + 1
	lower := strings.ToLower(name)
	for _, c := range candidates {
		d := levenshtein(lower, strings.ToLower(c))
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// SuggestSimilar formats a "did you mean" hint, or "" when no candidate
// is close enough.
func SuggestSimilar(name string, candidates []string) string {
	match := FindClosestMatch(name, candidates)
	if match == "" {
		return ""
	}
	return "did you mean '" + match + "'?"
}
