package loader

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semaudit/requirement"
)

// documentFrontmatter is the YAML frontmatter block of a markdown
// requirement document.
type documentFrontmatter struct {
	ID       string `yaml:"id"`
	Sequence int64  `yaml:"sequence"`
	Status   string `yaml:"status"`
	Feature  string `yaml:"feature"`
}

// criterionLineRe matches one acceptance criterion list item.
var criterionLineRe = regexp.MustCompile(`^\s*[-*]\s+\[([^\]\s]+)\]\s*(.*)$`)

// parseMarkdownDocument parses a requirement document written as markdown
// with YAML frontmatter. Criteria are authored as list items:
//
//	- [ac-1] login form accepts email address
//	- [ac-2] (supersedes auth-v1/ac-1) login form accepts phone number
//	- [ac-3] (removes auth-v1/ac-2)
//	- [ac-4] (security) passwords are hashed with bcrypt
//
// Lines that are not criterion items are ignored, so documents may carry
// prose and headings around the list. Field-level schema rules are checked
// later by requirement.Normalize.
func parseMarkdownDocument(path string, data []byte) (requirement.Document, error) {
	content := string(data)
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return requirement.Document{}, fmt.Errorf("missing yaml frontmatter")
	}

	block, body, err := splitFrontmatter(content)
	if err != nil {
		return requirement.Document{}, err
	}

	var fm documentFrontmatter
	if err := yaml.Unmarshal([]byte(block), &fm); err != nil {
		return requirement.Document{}, fmt.Errorf("parse frontmatter: %w", err)
	}

	doc := requirement.Document{
		ID:             fm.ID,
		SequenceNumber: fm.Sequence,
		Status:         requirement.Status(fm.Status),
		FeatureKey:     fm.Feature,
	}
	if doc.ID == "" {
		doc.ID = generateDocumentID(path, data)
	}

	criteria, err := parseCriteriaLines(body)
	if err != nil {
		return requirement.Document{}, err
	}
	doc.Criteria = criteria

	return doc, nil
}

// splitFrontmatter separates the YAML frontmatter block from the body.
func splitFrontmatter(content string) (string, string, error) {
	const delimiter = "---"

	// Skip the opening delimiter
	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	// Find the closing delimiter. CRLF content still matches because the
	// search anchors on the line feed.
	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		return "", "", fmt.Errorf("no closing frontmatter delimiter")
	}

	block := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}

	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}
	return block, body, nil
}

// parseCriteriaLines extracts acceptance criteria from markdown list items.
func parseCriteriaLines(body string) ([]requirement.Criterion, error) {
	var criteria []requirement.Criterion
	for n, line := range strings.Split(body, "\n") {
		m := criterionLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		c, err := parseCriterion(m[1], m[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}

// parseCriterion builds a criterion from its id and the remainder of the
// list item. Leading parenthesized annotations modify the criterion; the
// rest of the line is its text.
func parseCriterion(id, rest string) (requirement.Criterion, error) {
	c := requirement.Criterion{ID: id}

	rest = strings.TrimSpace(rest)
	for strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ")")
		if end < 0 {
			return requirement.Criterion{}, fmt.Errorf("criterion %s: unterminated annotation", id)
		}

		if err := applyAnnotation(&c, strings.TrimSpace(rest[1:end])); err != nil {
			return requirement.Criterion{}, err
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	c.Text = rest
	return c, nil
}

// applyAnnotation interprets one parenthesized criterion annotation.
func applyAnnotation(c *requirement.Criterion, ann string) error {
	verb, arg, _ := strings.Cut(ann, " ")
	switch verb {
	case "security":
		c.SecurityRelevant = true
		return nil
	case "supersedes":
		ref, err := parseRef(arg)
		if err != nil {
			return fmt.Errorf("criterion %s: supersedes: %w", c.ID, err)
		}
		c.Supersedes = &ref
		return nil
	case "removes":
		ref, err := parseRef(arg)
		if err != nil {
			return fmt.Errorf("criterion %s: removes: %w", c.ID, err)
		}
		c.Removes = &ref
		return nil
	default:
		return fmt.Errorf("criterion %s: unknown annotation %q", c.ID, ann)
	}
}

// parseRef parses a document/criterion reference such as "auth-v1/ac-2".
func parseRef(s string) (requirement.CriterionRef, error) {
	docID, critID, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || docID == "" || critID == "" {
		return requirement.CriterionRef{}, fmt.Errorf("reference %q must have the form document/criterion", s)
	}
	return requirement.CriterionRef{DocumentID: docID, CriterionID: critID}, nil
}

// generateDocumentID creates a stable document ID from the filename and a
// content hash, for documents that do not author one. References from
// later documents should use authored ids; the generated form exists so a
// lone document without history still loads.
func generateDocumentID(path string, content []byte) string {
	base := filepath.Base(path)
	name := sanitizeID(strings.TrimSuffix(base, filepath.Ext(base)))

	hash := sha256.Sum256(content)
	short := hex.EncodeToString(hash[:])[:12]

	return fmt.Sprintf("req.%s.%s", name, short)
}

// ContentHash computes a SHA256 hash of the content. Watchers use it to
// tell real edits apart from touch events; storage uses it to fingerprint
// run inputs.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// sanitizeID makes a string safe for use as a document ID.
func sanitizeID(s string) string {
	var buf bytes.Buffer
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z':
			buf.WriteRune(r)
		case r >= '0' && r <= '9':
			buf.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			buf.WriteRune('-')
		}
	}

	out := buf.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.Trim(out, "-")
	if out == "" {
		out = "document"
	}
	return out
}
