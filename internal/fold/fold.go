// Package fold provides case and diacritic insensitive text matching.
package fold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// String lower-cases s and strips combining marks, so "Magistério" folds to "magisterio".
func String(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Terms folds every term and drops blanks and duplicates, keeping first-seen order.
func Terms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, term := range in {
		f := String(term)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ContainsAny reports whether the folded haystack contains any already-folded term.
func ContainsAny(haystack string, folded []string) bool {
	h := String(haystack)
	if h == "" {
		return false
	}
	for _, term := range folded {
		if strings.Contains(h, term) {
			return true
		}
	}
	return false
}
