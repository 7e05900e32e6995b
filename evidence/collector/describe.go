package collector

import (
	"strings"
	"unicode"
)

// annotations are the audit directives an author can place in a doc
// comment. Directives are the only way collected facts acquire security
// relevance; nothing is inferred from surrounding text.
//
//	audit:ignore          skip this declaration
//	audit:security        mark the fact security relevant
//	audit:fact <text>     use <text> as the fact description
type annotations struct {
	ignore   bool
	security bool
	text     string
}

// parseMarkers scans a doc comment for audit: directives and returns the
// annotations plus the comment with directive lines removed.
func parseMarkers(doc string) (annotations, string) {
	var ann annotations
	var kept []string

	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "audit:ignore":
			ann.ignore = true
		case trimmed == "audit:security":
			ann.security = true
		case strings.HasPrefix(trimmed, "audit:fact "):
			ann.text = strings.TrimSpace(strings.TrimPrefix(trimmed, "audit:fact "))
		default:
			kept = append(kept, line)
		}
	}

	return ann, strings.Join(kept, "\n")
}

// deriveDescription produces a fact description for a declaration. The
// first sentence of the doc comment wins, with the conventional leading
// identifier dropped; an undocumented declaration falls back to its
// humanized identifier.
func deriveDescription(doc, identifier string) string {
	if s := firstSentence(doc); s != "" {
		if rest, found := strings.CutPrefix(s, identifier+" "); found {
			s = rest
		}
		return strings.TrimSpace(s)
	}
	return humanizeIdentifier(identifier)
}

// firstSentence returns the first sentence of a comment, without its
// trailing period.
func firstSentence(doc string) string {
	doc = strings.TrimSpace(strings.ReplaceAll(doc, "\n", " "))
	if doc == "" {
		return ""
	}

	for i := 0; i < len(doc); i++ {
		if doc[i] == '.' && (i+1 == len(doc) || doc[i+1] == ' ') {
			return strings.TrimSpace(doc[:i])
		}
	}
	return doc
}

// humanizeIdentifier turns LoginWithPhone or render_stats_cards into
// "login with phone" and "render stats cards".
func humanizeIdentifier(name string) string {
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = nil
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '$':
			flush()
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				flush()
			} else if i > 0 && unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
				// An acronym run ends where the next word starts.
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	return strings.Join(words, " ")
}

// cleanComment strips comment syntax from a raw source comment: the /* */
// and // delimiters, leading asterisks, and JSDoc @tag lines.
func cleanComment(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "/**")
	raw = strings.TrimPrefix(raw, "/*")
	raw = strings.TrimSuffix(raw, "*/")

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimPrefix(line, "//")
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "@") {
			continue
		}
		lines = append(lines, line)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
