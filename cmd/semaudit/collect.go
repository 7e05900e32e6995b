package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/evidence/collector"
)

// languageAliases maps CLI language names to registered collector names.
var languageAliases = map[string]string{
	"go":         "go",
	"golang":     "go",
	"ts":         "typescript",
	"typescript": "typescript",
	"js":         "javascript",
	"javascript": "javascript",
}

type collectOptions struct {
	src  []string
	lang []string
	out  string
}

func collectCmd(opts *rootOptions) *cobra.Command {
	var o collectOptions

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect observed-behavior facts from source trees",
		Long: `Collect scans source trees and writes the extracted facts as an
evidence YAML file the audit can consume. Feature assignment comes from
the feature_map in the collect section of the configuration; files under
no mapped prefix yield no facts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), opts, &o)
		},
	}

	cmd.Flags().StringArrayVar(&o.src, "src", nil, "Source root to scan (repeatable; overrides config)")
	cmd.Flags().StringSliceVar(&o.lang, "lang", nil, "Languages to collect (go, ts, js; default all)")
	cmd.Flags().StringVar(&o.out, "out", "", "Write facts to a file instead of stdout")

	return cmd
}

func runCollect(ctx context.Context, opts *rootOptions, o *collectOptions) error {
	cfg, logger, err := opts.setup()
	if err != nil {
		return err
	}

	collectCfg := cfg.Collect
	if len(o.src) > 0 {
		collectCfg.Roots = o.src
	}
	if len(collectCfg.Roots) == 0 {
		collectCfg.Roots = []string{"."}
	}

	registry, err := registryFor(o.lang)
	if err != nil {
		return err
	}

	c, err := collector.NewWithRegistry(collectCfg, registry, logger)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	facts, err := c.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect facts: %w", err)
	}

	logger.Info("Collected facts",
		"count", len(facts),
		"roots", collectCfg.Roots)

	return writeOutput(o.out, func(w io.Writer) error {
		return writeFacts(w, facts)
	})
}

// registryFor narrows the collector registry to the requested languages.
// An empty request keeps every registered collector.
func registryFor(langs []string) (*collector.Registry, error) {
	if len(langs) == 0 {
		return collector.DefaultRegistry, nil
	}

	names := make([]string, 0, len(langs))
	seen := make(map[string]bool)
	for _, lang := range langs {
		name, ok := languageAliases[strings.ToLower(strings.TrimSpace(lang))]
		if !ok {
			return nil, fmt.Errorf("unsupported language %q (supported: go, ts, js)", lang)
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return collector.DefaultRegistry.Subset(names...)
}

// writeFacts marshals facts in the evidence file shape the loader reads
// back.
func writeFacts(w io.Writer, facts []evidence.Fact) error {
	file := struct {
		Facts []evidence.Fact `yaml:"facts"`
	}{Facts: facts}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	_, err = w.Write(data)
	return err
}
