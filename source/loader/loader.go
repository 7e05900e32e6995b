// Package loader reads requirement documents and observed-behavior fact
// files. Documents arrive as YAML, markdown with YAML frontmatter, or
// HTML pages, from local files or HTTPS URLs; facts arrive as local
// YAML. The loader enforces structure only. Schema rules such as status
// validity and sequence uniqueness are left to requirement.Normalize.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
	"github.com/c360studio/semaudit/source/weburl"
)

// Config controls where the loader looks for input files.
type Config struct {
	// Root is the directory relative patterns resolve against.
	Root string `yaml:"root"`

	// DocumentPatterns are glob patterns for requirement documents.
	// Patterns support ** for recursive matching and {a,b} alternates.
	// An https:// entry is fetched as a remote document instead.
	DocumentPatterns []string `yaml:"document_patterns"`

	// FactPatterns are glob patterns for observed-behavior fact files.
	// Empty is allowed; facts may also arrive from collectors directly.
	FactPatterns []string `yaml:"fact_patterns"`
}

// DefaultConfig returns the default loader configuration.
func DefaultConfig() Config {
	return Config{
		Root:             ".",
		DocumentPatterns: []string{"requirements/**/*.{yaml,yml,md,markdown,html,htm}"},
		FactPatterns:     []string{"evidence/**/*.{yaml,yml}"},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("Root is required")
	}
	if len(c.DocumentPatterns) == 0 {
		return fmt.Errorf("at least one document pattern is required")
	}
	return nil
}

// Loader reads and parses requirement corpus input files.
type Loader struct {
	config    Config
	converter *md.Converter
	fetcher   *weburl.Fetcher
}

// New creates a Loader with the given configuration.
// A zero-value config is replaced with DefaultConfig.
func New(cfg Config) (*Loader, error) {
	if cfg.Root == "" && len(cfg.DocumentPatterns) == 0 && len(cfg.FactPatterns) == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Loader{
		config:    cfg,
		converter: converter,
		fetcher:   weburl.NewFetcher(0, "", 0),
	}, nil
}

// MustNew creates a Loader and panics if the configuration is invalid.
func MustNew(cfg Config) *Loader {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

// NewDefault creates a Loader with the default configuration.
func NewDefault() *Loader {
	return MustNew(DefaultConfig())
}

// Config returns the effective loader configuration.
func (l *Loader) Config() Config {
	return l.config
}

// LoadDocuments resolves the document patterns and parses every matched
// file. Files are processed in sorted path order so repeated loads of the
// same tree produce the same corpus order; remote URLs are fetched after
// local files, also in sorted order. A document that cannot be fetched or
// parsed fails the whole load with its path or URL in the error.
func (l *Loader) LoadDocuments() ([]requirement.Document, error) {
	local, remote := splitDocumentPatterns(l.config.DocumentPatterns)

	files, err := l.resolveFiles(local)
	if err != nil {
		return nil, err
	}

	var docs []requirement.Document
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		parsed, err := l.parseDocumentFile(path, data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		docs = append(docs, parsed...)
	}

	remoteDocs, err := l.loadRemoteDocuments(remote)
	if err != nil {
		return nil, err
	}
	return append(docs, remoteDocs...), nil
}

// LoadFacts resolves the fact patterns and parses every matched YAML
// file. Fact order follows sorted path order, then in-file order. Facts
// are always local; URL patterns are rejected.
func (l *Loader) LoadFacts() ([]evidence.Fact, error) {
	for _, p := range l.config.FactPatterns {
		if IsRemotePattern(p) {
			return nil, fmt.Errorf("remote fact patterns are not supported: %s", p)
		}
	}

	files, err := l.resolveFiles(l.config.FactPatterns)
	if err != nil {
		return nil, err
	}

	var facts []evidence.Fact
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		parsed, err := parseYAMLFacts(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		facts = append(facts, parsed...)
	}
	return facts, nil
}

// parseDocumentFile dispatches on the file extension.
func (l *Loader) parseDocumentFile(path string, data []byte) ([]requirement.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAMLDocuments(data)
	case ".md", ".markdown":
		doc, err := parseMarkdownDocument(path, data)
		if err != nil {
			return nil, err
		}
		return []requirement.Document{doc}, nil
	case ".html", ".htm":
		doc, err := l.parseHTMLDocument(path, data)
		if err != nil {
			return nil, err
		}
		return []requirement.Document{doc}, nil
	default:
		return nil, fmt.Errorf("unsupported document format %q", filepath.Ext(path))
	}
}

// resolveFiles expands glob patterns to concrete files. Literal paths must
// exist; glob patterns may match nothing. Matches are deduplicated and
// returned in sorted order.
func (l *Loader) resolveFiles(patterns []string) ([]string, error) {
	var resolved []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		paths, err := l.resolvePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve pattern %q: %w", pattern, err)
		}

		for _, p := range paths {
			if !seen[p] {
				seen[p] = true
				resolved = append(resolved, p)
			}
		}
	}

	sort.Strings(resolved)
	return resolved, nil
}

// resolvePattern expands a single glob pattern to files.
func (l *Loader) resolvePattern(pattern string) ([]string, error) {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(l.config.Root, pattern)
	}

	if !containsGlob(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("path is a directory, not a file: %s", pattern)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue // Skip paths that can't be stat'd
		}
		if !info.IsDir() {
			files = append(files, match)
		}
	}
	return files, nil
}

// containsGlob checks if a path contains glob metacharacters.
func containsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
