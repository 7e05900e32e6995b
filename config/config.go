// Package config provides configuration loading and management for semaudit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/evidence/collector"
	"github.com/c360studio/semaudit/source"
	"github.com/c360studio/semaudit/source/loader"
)

// Config represents the complete semaudit configuration
type Config struct {
	Corpus  loader.Config      `yaml:"corpus"`
	Audit   AuditConfig        `yaml:"audit"`
	Collect collector.Config   `yaml:"collect"`
	Watch   source.WatchConfig `yaml:"watch"`
	NATS    NATSConfig         `yaml:"nats"`
}

// AuditConfig configures the audit engine and reporting thresholds
type AuditConfig struct {
	// MatchThreshold is the minimum similarity for linking evidence to a
	// criterion (0 keeps the engine default)
	MatchThreshold float64 `yaml:"match_threshold"`
	// SatisfiedThreshold is the criterion-token coverage counting as full
	// coverage (0 keeps the engine default)
	SatisfiedThreshold float64 `yaml:"satisfied_threshold"`
	// IncludeSatisfied keeps satisfied findings in reports
	IncludeSatisfied bool `yaml:"include_satisfied"`
	// Workers caps concurrent per-feature work (0 = one per CPU)
	Workers int `yaml:"workers"`
	// FailSeverity is the lowest severity that fails an audit run
	// (critical, high, medium or low)
	FailSeverity string `yaml:"fail_severity"`
}

// EngineConfig maps the audit section onto an engine configuration,
// falling back to engine defaults for unset thresholds.
func (a AuditConfig) EngineConfig() audit.Config {
	cfg := audit.DefaultConfig()
	if a.MatchThreshold > 0 {
		cfg.MatchThreshold = a.MatchThreshold
	}
	if a.SatisfiedThreshold > 0 {
		cfg.SatisfiedThreshold = a.SatisfiedThreshold
	}
	cfg.IncludeSatisfied = a.IncludeSatisfied
	cfg.Workers = a.Workers
	return cfg
}

// FailAt returns the severity at which an audit run fails.
func (a AuditConfig) FailAt() audit.Severity {
	if a.FailSeverity == "" {
		return audit.SeverityHigh
	}
	return audit.Severity(a.FailSeverity)
}

// NATSConfig configures the NATS connection and NATS-backed features
type NATSConfig struct {
	// URL is the NATS server URL (empty = serving features disabled)
	URL string `yaml:"url"`
	// PersistRuns stores completed runs in the runs KV bucket
	PersistRuns bool `yaml:"persist_runs"`
	// PublishGraph publishes completed runs to the knowledge graph
	PublishGraph bool `yaml:"publish_graph"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	engine := audit.DefaultConfig()
	return &Config{
		Corpus: loader.DefaultConfig(),
		Audit: AuditConfig{
			MatchThreshold:     engine.MatchThreshold,
			SatisfiedThreshold: engine.SatisfiedThreshold,
			IncludeSatisfied:   engine.IncludeSatisfied,
			Workers:            0,
			FailSeverity:       string(audit.SeverityHigh),
		},
		Collect: collector.Config{},
		Watch:   source.DefaultWatchConfig(),
		NATS: NATSConfig{
			URL: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.Corpus.Validate(); err != nil {
		return fmt.Errorf("corpus: %w", err)
	}
	if err := c.Audit.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	failAt := c.Audit.FailAt()
	if !failAt.IsValid() || failAt == audit.SeverityNone {
		return fmt.Errorf("audit: fail_severity must be critical, high, medium or low")
	}
	// Collection is optional; validate only when roots are configured
	if len(c.Collect.Roots) > 0 {
		if err := c.Collect.Validate(); err != nil {
			return fmt.Errorf("collect: %w", err)
		}
	}
	if c.Watch.DebounceDelay != "" {
		if _, err := time.ParseDuration(c.Watch.DebounceDelay); err != nil {
			return fmt.Errorf("watch: invalid debounce_delay format: %w", err)
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Corpus
	if other.Corpus.Root != "" {
		c.Corpus.Root = other.Corpus.Root
	}
	if len(other.Corpus.DocumentPatterns) > 0 {
		c.Corpus.DocumentPatterns = other.Corpus.DocumentPatterns
	}
	if len(other.Corpus.FactPatterns) > 0 {
		c.Corpus.FactPatterns = other.Corpus.FactPatterns
	}

	// Audit
	if other.Audit.MatchThreshold != 0 {
		c.Audit.MatchThreshold = other.Audit.MatchThreshold
	}
	if other.Audit.SatisfiedThreshold != 0 {
		c.Audit.SatisfiedThreshold = other.Audit.SatisfiedThreshold
	}
	if other.Audit.Workers != 0 {
		c.Audit.Workers = other.Audit.Workers
	}
	if other.Audit.FailSeverity != "" {
		c.Audit.FailSeverity = other.Audit.FailSeverity
	}

	// Collect
	if len(other.Collect.Roots) > 0 {
		c.Collect.Roots = other.Collect.Roots
	}
	if len(other.Collect.FeatureMap) > 0 {
		c.Collect.FeatureMap = other.Collect.FeatureMap
	}
	if len(other.Collect.ExcludeDirs) > 0 {
		c.Collect.ExcludeDirs = other.Collect.ExcludeDirs
	}

	// Watch
	if other.Watch.Enabled {
		c.Watch.Enabled = true
	}
	if other.Watch.DebounceDelay != "" {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
	if len(other.Watch.FileExtensions) > 0 {
		c.Watch.FileExtensions = other.Watch.FileExtensions
	}
	if len(other.Watch.ExcludeDirs) > 0 {
		c.Watch.ExcludeDirs = other.Watch.ExcludeDirs
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.PersistRuns {
		c.NATS.PersistRuns = true
	}
	if other.NATS.PublishGraph {
		c.NATS.PublishGraph = true
	}
}
