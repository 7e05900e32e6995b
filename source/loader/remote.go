package loader

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/c360studio/semaudit/requirement"
	"github.com/c360studio/semaudit/source/weburl"
)

// IsRemotePattern reports whether a document pattern is a URL rather than
// a filesystem glob. Both schemes route to the fetcher so http URLs fail
// with its clear HTTPS-only error instead of a glob error.
func IsRemotePattern(pattern string) bool {
	return strings.HasPrefix(pattern, "https://") || strings.HasPrefix(pattern, "http://")
}

// splitDocumentPatterns separates remote URL patterns from local glob
// patterns. Remote URLs are deduplicated and sorted so repeated loads
// fetch in the same order.
func splitDocumentPatterns(patterns []string) (local, remote []string) {
	seen := make(map[string]bool)
	for _, p := range patterns {
		if !IsRemotePattern(p) {
			local = append(local, p)
			continue
		}
		if !seen[p] {
			seen[p] = true
			remote = append(remote, p)
		}
	}
	sort.Strings(remote)
	return local, remote
}

// loadRemoteDocuments fetches and parses each remote document URL.
func (l *Loader) loadRemoteDocuments(urls []string) ([]requirement.Document, error) {
	var docs []requirement.Document
	for _, rawURL := range urls {
		ctx, cancel := context.WithTimeout(context.Background(), weburl.DefaultFetchTimeout)
		result, err := l.fetcher.Fetch(ctx, rawURL)
		cancel()
		if err != nil {
			return nil, err
		}

		parsed, err := l.parseRemoteDocument(rawURL, result.Body, result.ContentType)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rawURL, err)
		}
		docs = append(docs, parsed...)
	}
	return docs, nil
}

// parseRemoteDocument dispatches on the URL path extension, falling back
// to the response Content-Type. Documents without either parse as HTML,
// the common case for requirement pages published on the web.
func (l *Loader) parseRemoteDocument(rawURL string, body []byte, contentType string) ([]requirement.Document, error) {
	name := weburl.DocumentSlug(rawURL)

	switch remoteFormat(rawURL, contentType) {
	case ".yaml":
		return parseYAMLDocuments(body)
	case ".md":
		doc, err := parseMarkdownDocument(name, body)
		if err != nil {
			return nil, err
		}
		return []requirement.Document{doc}, nil
	default:
		doc, err := l.parseHTMLDocument(name, body)
		if err != nil {
			return nil, err
		}
		return []requirement.Document{doc}, nil
	}
}

// remoteFormat normalizes a remote document's format to one of ".yaml",
// ".md", or ".html".
func remoteFormat(rawURL, contentType string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		switch strings.ToLower(path.Ext(parsed.Path)) {
		case ".yaml", ".yml":
			return ".yaml"
		case ".md", ".markdown":
			return ".md"
		case ".html", ".htm":
			return ".html"
		}
	}

	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "application/yaml", "application/x-yaml", "text/yaml":
			return ".yaml"
		case "text/markdown":
			return ".md"
		}
	}

	return ".html"
}
