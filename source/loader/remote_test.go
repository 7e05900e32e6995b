package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semaudit/requirement"
)

func TestIsRemotePattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"https://example.com/reqs.yaml", true},
		{"http://example.com/reqs.yaml", true},
		{"requirements/**/*.yaml", false},
		{"/abs/path/auth.yaml", false},
		{"https-notes.md", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRemotePattern(tt.pattern), "pattern %q", tt.pattern)
	}
}

func TestSplitDocumentPatterns(t *testing.T) {
	local, remote := splitDocumentPatterns([]string{
		"https://b.example.com/spec",
		"requirements/**/*.yaml",
		"https://a.example.com/spec",
		"docs/auth.md",
		"https://b.example.com/spec",
	})

	assert.Equal(t, []string{"requirements/**/*.yaml", "docs/auth.md"}, local)
	assert.Equal(t, []string{"https://a.example.com/spec", "https://b.example.com/spec"}, remote)
}

func TestRemoteFormat(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		contentType string
		want        string
	}{
		{"yaml extension", "https://example.com/reqs.yaml", "", ".yaml"},
		{"yml extension", "https://example.com/reqs.yml", "text/plain", ".yaml"},
		{"markdown extension", "https://example.com/auth.md", "", ".md"},
		{"html extension", "https://example.com/auth.html", "", ".html"},
		{"extension beats content type", "https://example.com/auth.md", "text/html", ".md"},
		{"query string ignored", "https://example.com/reqs.yaml?v=2", "", ".yaml"},
		{"yaml content type", "https://example.com/reqs", "application/yaml", ".yaml"},
		{"yaml content type with charset", "https://example.com/reqs", "application/x-yaml; charset=utf-8", ".yaml"},
		{"markdown content type", "https://example.com/auth", "text/markdown", ".md"},
		{"html content type", "https://example.com/auth", "text/html; charset=utf-8", ".html"},
		{"no extension no content type", "https://example.com/specs/auth", "", ".html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, remoteFormat(tt.url, tt.contentType))
		})
	}
}

func TestParseRemoteDocument_YAML(t *testing.T) {
	l := NewDefault()
	body := []byte(`id: auth-v1
sequence: 1
status: done
feature: auth
criteria:
  - id: ac-1
    text: login form accepts email address
---
id: auth-v2
sequence: 2
status: approved
feature: auth
criteria:
  - id: ac-1
    text: login form accepts phone number
    supersedes:
      document: auth-v1
      criterion: ac-1
`)

	docs, err := l.parseRemoteDocument("https://example.com/requirements/auth.yaml", body, "application/yaml")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "auth-v1", docs[0].ID)
	assert.Equal(t, "auth-v2", docs[1].ID)
}

func TestParseRemoteDocument_Markdown(t *testing.T) {
	l := NewDefault()
	body := []byte(`---
id: billing-v1
sequence: 1
status: approved
feature: billing
---
# Billing

- [ac-1] invoices are generated monthly
- [ac-2] (security) card numbers are never stored
`)

	// No extension on the URL; Content-Type carries the format.
	docs, err := l.parseRemoteDocument("https://example.com/specs/billing", body, "text/markdown; charset=utf-8")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "billing-v1", doc.ID)
	assert.Equal(t, requirement.StatusApproved, doc.Status)
	require.Len(t, doc.Criteria, 2)
	assert.Equal(t, "invoices are generated monthly", doc.Criteria[0].Text)
	assert.True(t, doc.Criteria[1].SecurityRelevant)
}

func TestParseRemoteDocument_HTMLDefault(t *testing.T) {
	l := NewDefault()

	// Extension-less page with no useful Content-Type parses as HTML.
	docs, err := l.parseRemoteDocument("https://example.com/specs/auth", []byte(authPage), "")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "auth-v2", doc.ID)
	assert.Equal(t, "auth", doc.FeatureKey)
	require.Len(t, doc.Criteria, 2)
	assert.Equal(t, "login form accepts phone number", doc.Criteria[0].Text)
}

func TestParseRemoteDocument_GeneratedID(t *testing.T) {
	l := NewDefault()
	body := []byte(`---
sequence: 1
status: draft
feature: search
---
- [ac-1] results are ranked by relevance
`)

	docs, err := l.parseRemoteDocument("https://example.com/drafts/search.md", body, "")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	// Documents without an authored id get one derived from the URL slug.
	assert.Contains(t, docs[0].ID, "example-com-drafts-search-md")
}

func TestLoadFacts_RejectsRemotePatterns(t *testing.T) {
	root := t.TempDir()
	l := MustNew(Config{
		Root:             root,
		DocumentPatterns: []string{"requirements/**/*.yaml"},
		FactPatterns:     []string{"https://example.com/facts.yaml"},
	})

	_, err := l.LoadFacts()
	assert.ErrorContains(t, err, "remote fact patterns are not supported")
}
