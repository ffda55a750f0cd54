package certificate

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// levenshtein uses unit insertion, deletion and substitution costs. Inputs are normalized
// before comparison, so case sensitivity is left on to avoid a second lowering pass.
var levenshtein = &metrics.Levenshtein{
	CaseSensitive: true,
	InsertCost:    1,
	DeleteCost:    1,
	ReplaceCost:   1,
}

// Normalize lower-cases s and drops every rune that is not a letter or digit,
// so "ABC-123" and "abc 123" both become "abc123".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Distance is the classic Levenshtein edit distance between a and b, counted in runes.
func Distance(a, b string) int {
	return levenshtein.Distance(a, b)
}

// Similarity returns 1 - distance/len(longer) over the normalized strings, in [0, 1].
// Two strings that normalize to empty are identical.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" && nb == "" {
		return 1
	}
	return strutil.Similarity(na, nb, levenshtein)
}
