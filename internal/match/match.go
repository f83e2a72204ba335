// Package match scores query strings against contact names.
//
// Matching is case-insensitive and tiered: an exact-prefix hit always
// outranks a substring hit, which always outranks a bare subsequence hit.
// Each tier occupies a disjoint score band so length differences inside a
// tier can never flip tier order.
package match

import (
	"sort"
	"strings"

	"github.com/danhigham/tgsend/internal/domain"
)

// Score bands. Within a band the score scales with how much of the name the
// query covers, so tighter matches rank higher among equals.
const (
	prefixBase      = 90 // prefix matches land in [90, 100]
	substringBase   = 70 // substring matches land in [70, 89]
	subsequenceBase = 41 // subsequence matches land in [41, 69]

	// EmptyQueryScore is the uniform score assigned when there is nothing
	// to match against.
	EmptyQueryScore = 100
)

// Search ranks contacts against query, best first. Ties keep the original
// contact order. An empty query returns every contact at EmptyQueryScore in
// original order; a query matching nothing returns an empty slice.
func Search(query string, contacts []domain.Contact) []domain.MatchResult {
	if query == "" {
		results := make([]domain.MatchResult, 0, len(contacts))
		for _, c := range contacts {
			results = append(results, domain.MatchResult{Contact: c, Score: EmptyQueryScore})
		}
		return results
	}

	q := strings.ToLower(query)
	var results []domain.MatchResult
	for _, c := range contacts {
		score, ok := scoreName(q, strings.ToLower(c.Name))
		if !ok {
			continue
		}
		results = append(results, domain.MatchResult{Contact: c, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// scoreName scores a lowercased query against a lowercased name.
func scoreName(q, name string) (int, bool) {
	qLen := len([]rune(q))
	nLen := len([]rune(name))
	if qLen == 0 || nLen == 0 || qLen > nLen {
		return 0, false
	}

	// Coverage ratio shifts the score inside its band; the spans below are
	// one smaller than the band width so bands stay disjoint.
	switch {
	case strings.HasPrefix(name, q):
		return prefixBase + (10*qLen)/nLen, true
	case strings.Contains(name, q):
		return substringBase + (19*qLen)/nLen, true
	case isSubsequence(q, name):
		return subsequenceBase + (28*qLen)/nLen, true
	default:
		return 0, false
	}
}

// isSubsequence reports whether all runes of q appear in name, in order.
func isSubsequence(q, name string) bool {
	runes := []rune(name)
	i := 0
	for _, r := range q {
		for i < len(runes) && runes[i] != r {
			i++
		}
		if i == len(runes) {
			return false
		}
		i++
	}
	return true
}
