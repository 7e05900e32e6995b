package loader

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/c360studio/semaudit/requirement"
)

// Meta tag names recognized on HTML requirement documents.
const (
	metaID       = "semaudit-id"
	metaSequence = "semaudit-sequence"
	metaStatus   = "semaudit-status"
	metaFeature  = "semaudit-feature"
)

// bracketUnescaper undoes the bracket escaping the markdown converter
// applies to literal text, so criterion ids survive the round trip.
var bracketUnescaper = strings.NewReplacer(`\[`, `[`, `\]`, `]`)

// parseHTMLDocument parses a requirement document published as an HTML
// page. Document fields come from meta tags in the head:
//
//	<meta name="semaudit-id" content="auth-v2">
//	<meta name="semaudit-sequence" content="2">
//	<meta name="semaudit-status" content="approved">
//	<meta name="semaudit-feature" content="auth">
//
// Criteria use the same list item grammar as markdown documents. The page
// is reduced to its main content before conversion so navigation and
// boilerplate do not leak into criteria text.
func (l *Loader) parseHTMLDocument(path string, data []byte) (requirement.Document, error) {
	meta, err := extractMetaTags(data)
	if err != nil {
		return requirement.Document{}, err
	}
	if len(meta) == 0 {
		return requirement.Document{}, fmt.Errorf("no semaudit meta tags found")
	}

	doc := requirement.Document{
		ID:         meta[metaID],
		Status:     requirement.Status(meta[metaStatus]),
		FeatureKey: meta[metaFeature],
	}
	if raw := meta[metaSequence]; raw != "" {
		seq, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return requirement.Document{}, fmt.Errorf("meta %s: %w", metaSequence, err)
		}
		doc.SequenceNumber = seq
	}
	if doc.ID == "" {
		doc.ID = generateDocumentID(path, data)
	}

	markdown, err := l.htmlToMarkdown(path, data)
	if err != nil {
		return requirement.Document{}, err
	}

	criteria, err := parseCriteriaLines(markdown)
	if err != nil {
		return requirement.Document{}, err
	}
	doc.Criteria = criteria

	return doc, nil
}

// extractMetaTags collects semaudit meta tags from the document head.
func extractMetaTags(data []byte) (map[string]string, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	meta := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, content string
			for _, a := range n.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "content":
					content = a.Val
				}
			}
			if strings.HasPrefix(name, "semaudit-") {
				meta[name] = content
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return meta, nil
}

// htmlToMarkdown converts the page's main content to markdown.
func (l *Loader) htmlToMarkdown(path string, data []byte) (string, error) {
	markdown, err := l.converter.ConvertString(mainContent(path, data))
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return bracketUnescaper.Replace(markdown), nil
}

// mainContent extracts the main content area from an HTML page. Pages with
// a semantic main or article element use it directly; anything else goes
// through readability extraction, falling back to the whole document.
func mainContent(path string, data []byte) string {
	if root, err := html.Parse(bytes.NewReader(data)); err == nil {
		for _, tag := range []string{"main", "article"} {
			if n := findElement(root, tag); n != nil {
				return renderNode(n)
			}
		}
	}

	pageURL := &url.URL{Scheme: "file", Path: path}
	if article, err := readability.FromReader(bytes.NewReader(data), pageURL); err == nil && article.Content != "" {
		return article.Content
	}

	return string(data)
}

// findElement finds the first element with the given tag name.
func findElement(n *html.Node, tag string) *html.Node {
	var result *html.Node
	var find func(*html.Node)
	find = func(node *html.Node) {
		if result != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			result = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(n)
	return result
}

// renderNode renders a node and its children back to an HTML string.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.String()
}
