package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/semaudit/audit"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Corpus.Root != "." {
		t.Errorf("expected default corpus root ., got %s", cfg.Corpus.Root)
	}
	if len(cfg.Corpus.DocumentPatterns) == 0 {
		t.Error("expected default document patterns")
	}
	if cfg.Audit.FailSeverity != "high" {
		t.Errorf("expected default fail severity high, got %s", cfg.Audit.FailSeverity)
	}
	if !cfg.Audit.IncludeSatisfied {
		t.Error("expected satisfied findings included by default")
	}
	if cfg.NATS.URL != "" {
		t.Errorf("expected empty NATS URL by default, got %s", cfg.NATS.URL)
	}
	if cfg.Watch.Enabled {
		t.Error("expected watching disabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing corpus root",
			modify:  func(c *Config) { c.Corpus.Root = "" },
			wantErr: true,
		},
		{
			name:    "no document patterns",
			modify:  func(c *Config) { c.Corpus.DocumentPatterns = nil },
			wantErr: true,
		},
		{
			name:    "match threshold too high",
			modify:  func(c *Config) { c.Audit.MatchThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "unknown fail severity",
			modify:  func(c *Config) { c.Audit.FailSeverity = "catastrophic" },
			wantErr: true,
		},
		{
			name:    "fail severity none",
			modify:  func(c *Config) { c.Audit.FailSeverity = "none" },
			wantErr: true,
		},
		{
			name: "collect roots without feature map",
			modify: func(c *Config) {
				c.Collect.Roots = []string{"./src"}
				c.Collect.FeatureMap = nil
			},
			wantErr: true,
		},
		{
			name:    "bad watch debounce",
			modify:  func(c *Config) { c.Watch.DebounceDelay = "soon" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuditConfigEngineConfig(t *testing.T) {
	t.Run("zero thresholds keep engine defaults", func(t *testing.T) {
		got := AuditConfig{IncludeSatisfied: true}.EngineConfig()
		want := audit.DefaultConfig()
		if got.MatchThreshold != want.MatchThreshold {
			t.Errorf("MatchThreshold = %v, want engine default %v", got.MatchThreshold, want.MatchThreshold)
		}
		if got.SatisfiedThreshold != want.SatisfiedThreshold {
			t.Errorf("SatisfiedThreshold = %v, want engine default %v", got.SatisfiedThreshold, want.SatisfiedThreshold)
		}
	})

	t.Run("explicit thresholds carry over", func(t *testing.T) {
		got := AuditConfig{MatchThreshold: 0.5, SatisfiedThreshold: 0.8, Workers: 4}.EngineConfig()
		if got.MatchThreshold != 0.5 || got.SatisfiedThreshold != 0.8 || got.Workers != 4 {
			t.Errorf("engine config = %+v, want explicit values", got)
		}
	})
}

func TestAuditConfigFailAt(t *testing.T) {
	if got := (AuditConfig{}).FailAt(); got != audit.SeverityHigh {
		t.Errorf("FailAt() = %s, want high when unset", got)
	}
	if got := (AuditConfig{FailSeverity: "critical"}).FailAt(); got != audit.SeverityCritical {
		t.Errorf("FailAt() = %s, want critical", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "semaudit.yaml")

	content := `
corpus:
  root: "/corpora/payments"
  document_patterns:
    - "specs/**/*.yaml"
  fact_patterns:
    - "observed/**/*.yaml"
audit:
  match_threshold: 0.4
  fail_severity: medium
collect:
  roots:
    - "./src"
  feature_map:
    ".": "payments"
watch:
  enabled: true
  debounce_delay: 2s
nats:
  url: "nats://test:4222"
  persist_runs: true
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Corpus.Root != "/corpora/payments" {
		t.Errorf("expected corpus root /corpora/payments, got %s", cfg.Corpus.Root)
	}
	if len(cfg.Corpus.DocumentPatterns) != 1 || cfg.Corpus.DocumentPatterns[0] != "specs/**/*.yaml" {
		t.Errorf("document patterns did not load: %v", cfg.Corpus.DocumentPatterns)
	}
	if cfg.Audit.MatchThreshold != 0.4 {
		t.Errorf("expected match threshold 0.4, got %f", cfg.Audit.MatchThreshold)
	}
	if cfg.Audit.FailSeverity != "medium" {
		t.Errorf("expected fail severity medium, got %s", cfg.Audit.FailSeverity)
	}
	if len(cfg.Collect.Roots) != 1 || cfg.Collect.FeatureMap["."] != "payments" {
		t.Errorf("collect config did not load: %+v", cfg.Collect)
	}
	if !cfg.Watch.Enabled || cfg.Watch.DebounceDelay != "2s" {
		t.Errorf("watch config did not load: %+v", cfg.Watch)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if !cfg.NATS.PersistRuns {
		t.Error("expected persist_runs true")
	}
	// Unset sections keep defaults
	if cfg.Audit.SatisfiedThreshold == 0 {
		t.Error("expected satisfied threshold to keep its default")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{}
	override.Corpus.Root = "/override/corpus"
	override.Audit.FailSeverity = "critical"
	override.NATS.URL = "nats://override:4222"

	base.Merge(override)

	if base.Corpus.Root != "/override/corpus" {
		t.Errorf("expected corpus root /override/corpus, got %s", base.Corpus.Root)
	}
	if base.Audit.FailSeverity != "critical" {
		t.Errorf("expected fail severity critical, got %s", base.Audit.FailSeverity)
	}
	if base.NATS.URL != "nats://override:4222" {
		t.Errorf("expected overridden NATS URL, got %s", base.NATS.URL)
	}
	// Patterns should remain from base since override didn't set them
	if len(base.Corpus.DocumentPatterns) == 0 {
		t.Error("expected document patterns to remain default")
	}
	if base.Audit.MatchThreshold == 0 {
		t.Error("expected match threshold to remain default")
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Corpus.Root = "/saved/corpus"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Corpus.Root != "/saved/corpus" {
		t.Errorf("expected corpus root /saved/corpus, got %s", loaded.Corpus.Root)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Run("semaudit variable wins", func(t *testing.T) {
		t.Setenv(EnvNATSURL, "nats://specific:4222")
		t.Setenv(EnvNATSURLGeneric, "nats://generic:4222")

		cfg := DefaultConfig()
		cfg.ApplyEnv()
		if cfg.NATS.URL != "nats://specific:4222" {
			t.Errorf("expected semaudit-specific URL, got %s", cfg.NATS.URL)
		}
	})

	t.Run("generic variable as fallback", func(t *testing.T) {
		t.Setenv(EnvNATSURL, "")
		t.Setenv(EnvNATSURLGeneric, "nats://generic:4222")

		cfg := DefaultConfig()
		cfg.ApplyEnv()
		if cfg.NATS.URL != "nats://generic:4222" {
			t.Errorf("expected generic URL, got %s", cfg.NATS.URL)
		}
	})

	t.Run("unset leaves config value", func(t *testing.T) {
		t.Setenv(EnvNATSURL, "")
		t.Setenv(EnvNATSURLGeneric, "")

		cfg := DefaultConfig()
		cfg.NATS.URL = "nats://fromfile:4222"
		cfg.ApplyEnv()
		if cfg.NATS.URL != "nats://fromfile:4222" {
			t.Errorf("expected file URL preserved, got %s", cfg.NATS.URL)
		}
	})
}
