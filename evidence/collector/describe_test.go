package collector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMarkers(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantIgnore  bool
		wantSec     bool
		wantText    string
		wantCleaned string
	}{
		{
			name:        "no directives",
			doc:         "Login authenticates a user.",
			wantCleaned: "Login authenticates a user.",
		},
		{
			name:        "security directive",
			doc:         "Login authenticates a user.\naudit:security",
			wantSec:     true,
			wantCleaned: "Login authenticates a user.",
		},
		{
			name:       "ignore directive",
			doc:        "audit:ignore",
			wantIgnore: true,
		},
		{
			name:        "fact directive overrides text",
			doc:         "Some internal notes.\naudit:fact users can reset their password",
			wantText:    "users can reset their password",
			wantCleaned: "Some internal notes.",
		},
		{
			name:        "directives survive indentation",
			doc:         "Deletes an account.\n   audit:security   ",
			wantSec:     true,
			wantCleaned: "Deletes an account.",
		},
		{
			name:        "fact text is not a prefix match",
			doc:         "audit:factsheet generation",
			wantCleaned: "audit:factsheet generation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ann, cleaned := parseMarkers(tt.doc)
			assert.Equal(t, tt.wantIgnore, ann.ignore)
			assert.Equal(t, tt.wantSec, ann.security)
			assert.Equal(t, tt.wantText, ann.text)
			assert.Equal(t, tt.wantCleaned, strings.TrimSpace(cleaned))
		})
	}
}

func TestDeriveDescription(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		identifier string
		want       string
	}{
		{
			name:       "doc sentence with identifier prefix",
			doc:        "Login authenticates a user with email and password. It returns a session.",
			identifier: "Login",
			want:       "authenticates a user with email and password",
		},
		{
			name:       "doc sentence without identifier prefix",
			doc:        "Authenticates a user.",
			identifier: "Login",
			want:       "Authenticates a user",
		},
		{
			name:       "empty doc falls back to humanized identifier",
			doc:        "",
			identifier: "LoginWithPhone",
			want:       "login with phone",
		},
		{
			name:       "multiline doc is joined",
			doc:        "CreateInvoice creates an invoice\nfor a completed order.",
			identifier: "CreateInvoice",
			want:       "creates an invoice for a completed order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveDescription(tt.doc, tt.identifier))
		})
	}
}

func TestFirstSentence(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"single sentence", "Creates a user.", "Creates a user"},
		{"two sentences", "Creates a user. Fails on duplicates.", "Creates a user"},
		{"no period", "Creates a user", "Creates a user"},
		{"period inside version", "Parses v1.2 manifests", "Parses v1.2 manifests"},
		{"empty", "", ""},
		{"whitespace only", "  \n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, firstSentence(tt.doc))
		})
	}
}

func TestHumanizeIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Login", "login"},
		{"LoginWithPhone", "login with phone"},
		{"HTTPServer", "http server"},
		{"getUserByID", "get user by id"},
		{"render_stats_cards", "render stats cards"},
		{"kebab-case-name", "kebab case name"},
		{"$httpClient", "http client"},
		{"parseJSON", "parse json"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, humanizeIdentifier(tt.in))
		})
	}
}

func TestCleanComment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "line comment",
			raw:  "// Login authenticates a user.",
			want: "Login authenticates a user.",
		},
		{
			name: "block comment",
			raw:  "/* Formats a date for display. */",
			want: "Formats a date for display.",
		},
		{
			name: "jsdoc with tags",
			raw:  "/**\n * Formats a date for display.\n * @param date the input\n * @returns the formatted string\n */",
			want: "Formats a date for display.",
		},
		{
			name: "jsdoc keeps directives",
			raw:  "/**\n * Deletes an account.\n * audit:security\n */",
			want: "Deletes an account.\naudit:security",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanComment(tt.raw))
		})
	}
}
