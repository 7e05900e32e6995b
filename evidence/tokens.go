package evidence

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords are dropped during normalization. Negation words are kept on
// purpose: "cannot delete" and "can delete" must stay distinguishable.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "with": true,
	"for": true, "as": true, "by": true, "at": true, "from": true,
	"is": true, "are": true, "be": true,
	"it": true, "its": true, "that": true, "this": true,
}

// negationMarkers flag a token as inverting the sense of its statement.
var negationMarkers = map[string]bool{
	"not": true, "no": true, "never": true, "cannot": true,
	"without": true, "disabled": true, "disallowed": true,
	"forbidden": true, "denied": true, "rejected": true,
	"prohibited": true,
}

// Tokens normalizes free text for overlap comparison: lowercased, split on
// non-alphanumeric runs, stopwords removed. Order and duplicates are
// preserved; callers needing set semantics build their own.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// NegationMarkers returns the distinct negation tokens present, sorted.
// Two texts whose marker sets disagree assert opposite polarity and are
// candidates for a contradiction rather than partial coverage.
func NegationMarkers(tokens []string) []string {
	found := make(map[string]bool)
	for _, t := range tokens {
		if negationMarkers[t] {
			found[t] = true
		}
	}

	out := make([]string, 0, len(found))
	for t := range found {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// tokenSet collapses a token slice into its distinct members.
func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
