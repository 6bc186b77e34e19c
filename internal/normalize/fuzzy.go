package normalize

import (
	"sort"
	"strings"
)

// tokenSetRatio scores the similarity of two strings on a 0-100 scale,
// ignoring word order and duplicate tokens. Both inputs are expected to be
// normalized already.
func tokenSetRatio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	setA := tokenSet(a)
	setB := tokenSet(b)

	var common, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	base := strings.Join(common, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	score := simpleRatio(base, combinedA)
	if s := simpleRatio(base, combinedB); s > score {
		score = s
	}
	if s := simpleRatio(combinedA, combinedB); s > score {
		score = s
	}
	return score
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// simpleRatio is an edit-distance similarity on a 0-100 scale. It uses the
// indel distance (substitution counts as delete+insert), which keeps the
// score equivalent to 2*matches/total.
func simpleRatio(a, b string) int {
	if a == b {
		return 100
	}
	total := len([]rune(a)) + len([]rune(b))
	if total == 0 {
		return 100
	}
	return (total - indelDistance(a, b)) * 100 / total
}

// indelDistance computes the edit distance between two strings where only
// insertions and deletions are allowed, using two rolling rows.
func indelDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
			} else {
				curr[j] = min(prev[j]+1, curr[j-1]+1)
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
