// Package collector scans source trees and emits observed-behavior facts
// for the audit. Language collectors register themselves by file extension;
// feature assignment always comes from the configured path mapping, never
// from the code itself.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/c360studio/semaudit/evidence"
)

// FileCollector extracts facts from one source file.
type FileCollector interface {
	// CollectFile parses the file at path and returns its facts. relPath
	// is the root-relative slash path used in fact locations; featureKey
	// is the feature every returned fact belongs to.
	CollectFile(ctx context.Context, path, relPath, featureKey string) ([]evidence.Fact, error)
}

// CollectorFactory creates a FileCollector for a language.
type CollectorFactory func() FileCollector

// Registry maintains language collectors keyed by file extension.
// Thread-safe for concurrent access.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]CollectorFactory // name → factory
	extMap     map[string]string           // extension → collector name
}

// NewRegistry creates a new empty collector registry.
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]CollectorFactory),
		extMap:     make(map[string]string),
	}
}

// Register adds a collector factory for the given extensions.
// The first registration wins if there's an extension conflict.
// Extensions include the leading dot (e.g., ".go", ".ts").
func (r *Registry) Register(name string, extensions []string, factory CollectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.collectors[name] = factory

	for _, ext := range extensions {
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = name
		}
	}
}

// ForExtension creates a collector for the given file extension.
// Returns false if no collector is registered for the extension.
func (r *Registry) ForExtension(ext string) (FileCollector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.extMap[ext]
	if !ok {
		return nil, false
	}
	return r.collectors[name](), true
}

// ListExtensions returns all registered file extensions.
func (r *Registry) ListExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.extMap))
	for ext := range r.extMap {
		extensions = append(extensions, ext)
	}
	return extensions
}

// HasCollector returns true if a collector with the given name is registered.
func (r *Registry) HasCollector(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.collectors[name]
	return ok
}

// Subset returns a new registry holding only the named collectors and
// the extensions they own. Unknown names error.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub := NewRegistry()
	for _, name := range names {
		factory, ok := r.collectors[name]
		if !ok {
			return nil, fmt.Errorf("no collector registered for %q", name)
		}

		var extensions []string
		for ext, owner := range r.extMap {
			if owner == name {
				extensions = append(extensions, ext)
			}
		}
		sub.Register(name, extensions, factory)
	}
	return sub, nil
}

// DefaultRegistry is the global collector registry.
// Language collectors register themselves via init() functions.
var DefaultRegistry = NewRegistry()

// Config controls which trees are scanned and how paths map to features.
type Config struct {
	// Roots are the directories to scan.
	Roots []string `yaml:"roots"`

	// FeatureMap maps root-relative path prefixes to feature keys.
	// Longest prefix wins; "." matches everything. Files under no mapped
	// prefix are skipped, since feature boundaries are always authored.
	FeatureMap map[string]string `yaml:"feature_map"`

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		Roots:       []string{"."},
		FeatureMap:  map[string]string{},
		ExcludeDirs: []string{".git", "node_modules", "vendor", "dist", "build"},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("at least one root is required")
	}
	if len(c.FeatureMap) == 0 {
		return fmt.Errorf("at least one feature mapping is required")
	}
	return nil
}

// Collector walks source roots and gathers facts from every file a
// registered language collector can handle.
type Collector struct {
	config   Config
	registry *Registry
	logger   *slog.Logger
	excludes map[string]bool
}

// New creates a Collector backed by the default registry.
func New(cfg Config, logger *slog.Logger) (*Collector, error) {
	return NewWithRegistry(cfg, DefaultRegistry, logger)
}

// NewWithRegistry creates a Collector with an explicit registry.
func NewWithRegistry(cfg Config, registry *Registry, logger *slog.Logger) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	excludes := make(map[string]bool)
	dirs := cfg.ExcludeDirs
	if len(dirs) == 0 {
		dirs = DefaultConfig().ExcludeDirs
	}
	for _, dir := range dirs {
		excludes[dir] = true
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		logger:   logger,
		excludes: excludes,
	}, nil
}

// Collect walks every configured root and returns the gathered facts in
// walk order. Files that fail to parse are logged and skipped; the scan
// itself only fails on unreadable roots or cancellation.
func (c *Collector) Collect(ctx context.Context) ([]evidence.Fact, error) {
	var facts []evidence.Fact

	for _, root := range c.config.Roots {
		rootFacts, err := c.collectRoot(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", root, err)
		}
		facts = append(facts, rootFacts...)
	}

	return facts, nil
}

func (c *Collector) collectRoot(ctx context.Context, root string) ([]evidence.Fact, error) {
	var facts []evidence.Fact

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		base := filepath.Base(path)
		if info.IsDir() {
			if path != root && (c.excludes[base] || strings.HasPrefix(base, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		fc, ok := c.registry.ForExtension(ext)
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		relPath := filepath.ToSlash(rel)

		featureKey, ok := c.featureFor(relPath)
		if !ok {
			c.logger.Debug("No feature mapping for file, skipping", "path", relPath)
			return nil
		}

		fileFacts, err := fc.CollectFile(ctx, path, relPath, featureKey)
		if err != nil {
			c.logger.Warn("Failed to collect file, skipping",
				"path", relPath,
				"error", err)
			return nil
		}

		facts = append(facts, fileFacts...)
		return nil
	})

	if err != nil {
		return nil, err
	}
	return facts, nil
}

// featureFor resolves the feature key for a root-relative slash path.
// The longest matching prefix wins; a "." mapping matches everything.
func (c *Collector) featureFor(relPath string) (string, bool) {
	best := -1
	var feature string

	for prefix, key := range c.config.FeatureMap {
		switch {
		case prefix == ".":
			if best < 0 {
				best = 0
				feature = key
			}
		case relPath == prefix || strings.HasPrefix(relPath, prefix+"/"):
			if len(prefix) > best {
				best = len(prefix)
				feature = key
			}
		}
	}

	if best < 0 {
		return "", false
	}
	return feature, true
}
