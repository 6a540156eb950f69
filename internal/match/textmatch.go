package match

import (
	"sort"
	"strings"
)

var punctuation = strings.NewReplacer(",", "", ".", "")

// TokenSet is the set of words in a normalized address.
type TokenSet map[string]struct{}

// Tokenize removes commas and periods from an address and splits the rest
// on whitespace. Duplicate words collapse.
func Tokenize(address string) TokenSet {
	fields := strings.Fields(punctuation.Replace(address))
	set := make(TokenSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// JaccardSimilarity computes |a ∩ b| / |a ∪ b|.
// Returns a value between 0.0 (no overlap) and 1.0 (identical sets); two
// empty sets score 0 so that addressless records never match each other.
func JaccardSimilarity(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	// Iterate the smaller set
	if len(a) > len(b) {
		a, b = b, a
	}

	intersection := 0
	for t := range a {
		if _, exists := b[t]; exists {
			intersection++
		}
	}

	// Union = |A| + |B| - |A ∩ B|
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

// IsSimilar returns true if the Jaccard similarity of a and b is strictly
// greater than threshold.
func IsSimilar(a, b TokenSet, threshold float64) bool {
	return JaccardSimilarity(a, b) > threshold
}
