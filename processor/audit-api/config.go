package auditapi

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// auditAPISchema defines the configuration schema.
var auditAPISchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the audit-api processor.
type Config struct {
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`

	// BaseDir is the corpus root for path-based requests.
	BaseDir string `json:"base_dir" schema:"type:string,description:Corpus root directory (defaults to SEMAUDIT_CORPUS_PATH or current directory),category:basic"`

	// DocumentPatterns are glob patterns for requirement documents,
	// resolved against the corpus root.
	DocumentPatterns []string `json:"document_patterns" schema:"type:array,description:Glob patterns for requirement documents under the corpus root,category:basic"`

	// FactPatterns are glob patterns for observed-behavior fact files,
	// resolved against the corpus root.
	FactPatterns []string `json:"fact_patterns" schema:"type:array,description:Glob patterns for observed-behavior fact files under the corpus root,category:basic"`

	// MatchThreshold is the minimum similarity for linking evidence to a
	// criterion. Zero keeps the engine default.
	MatchThreshold float64 `json:"match_threshold,omitempty"`

	// SatisfiedThreshold is the criterion-token coverage at which matched
	// evidence counts as full coverage. Zero keeps the engine default.
	SatisfiedThreshold float64 `json:"satisfied_threshold,omitempty"`

	// IncludeSatisfied keeps satisfied criteria in responses. Requests
	// may override per call.
	IncludeSatisfied bool `json:"include_satisfied" schema:"type:bool,description:Include satisfied criteria in responses for coverage reporting,category:advanced,default:false"`

	// PersistRuns stores completed runs in the runs KV bucket.
	PersistRuns bool `json:"persist_runs" schema:"type:bool,description:Store completed runs in the SEMAUDIT_RUNS KV bucket,category:advanced,default:false"`

	// PublishGraph publishes completed runs and findings as graph entities.
	PublishGraph bool `json:"publish_graph" schema:"type:bool,description:Publish completed runs and findings to the knowledge graph,category:advanced,default:false"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.DocumentPatterns) == 0 {
		return fmt.Errorf("at least one document pattern is required")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be in [0, 1]")
	}
	if c.SatisfiedThreshold < 0 || c.SatisfiedThreshold > 1 {
		return fmt.Errorf("satisfied_threshold must be in [0, 1]")
	}
	return nil
}

// DefaultConfig returns the default configuration for audit-api.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "audit_requests",
					Type:        "nats",
					Subject:     "audit.gaps.request",
					Required:    true,
					Description: "Audit request/reply subject",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "audit_events",
					Type:        "nats",
					Subject:     "audit.run.events",
					Required:    false,
					Description: "Run completion notifications",
				},
			},
		},
		BaseDir:          "",
		DocumentPatterns: []string{"requirements/**/*.{yaml,yml,md,markdown,html,htm}"},
		FactPatterns:     []string{"evidence/**/*.{yaml,yml}"},
		IncludeSatisfied: false,
		PersistRuns:      false,
		PublishGraph:     false,
	}
}
