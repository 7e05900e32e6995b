package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/config"
	"github.com/c360studio/semaudit/requirement"
	"github.com/c360studio/semaudit/source/loader"
)

const (
	formatText = "text"
	formatJSON = "json"

	// documentGlob expands a directory argument to every document format
	// the loader understands.
	documentGlob = "**/*.{yaml,yml,md,markdown,html,htm}"

	// factGlob expands a directory argument to evidence fact files.
	factGlob = "**/*.{yaml,yml}"
)

type auditOptions struct {
	docs     []string
	evidence []string
	format   string
	out      string
}

func auditCmd(opts *rootOptions) *cobra.Command {
	var o auditOptions

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit a requirement corpus against observed evidence",
		Long: `Audit resolves the requirement corpus into canonical per-feature
state, matches observed-behavior facts against it and reports the
classified gaps.

The command exits 0 when the audit passes, 1 when findings at or above
the configured failure severity exist, and 2 when the corpus itself is
invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, &o)
		},
	}

	cmd.Flags().StringArrayVar(&o.docs, "docs", nil, "Requirement document path, glob, or URL (repeatable; overrides config)")
	cmd.Flags().StringArrayVar(&o.evidence, "evidence", nil, "Evidence file path or glob (repeatable; overrides config)")
	cmd.Flags().StringVar(&o.format, "format", formatText, "Report format (text, json)")
	cmd.Flags().StringVar(&o.out, "out", "", "Write the report to a file instead of stdout")

	return cmd
}

func runAudit(opts *rootOptions, o *auditOptions) error {
	cfg, _, err := opts.setup()
	if err != nil {
		return err
	}
	if err := validateFormat(o.format); err != nil {
		return err
	}

	l, err := corpusLoader(cfg, o.docs, o.evidence)
	if err != nil {
		return err
	}
	docs, err := l.LoadDocuments()
	if err != nil {
		return corpusError(err)
	}
	facts, err := l.LoadFacts()
	if err != nil {
		return corpusError(err)
	}

	engine, err := audit.New(cfg.Audit.EngineConfig())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	result, err := engine.Run(docs, facts)
	if err != nil {
		return corpusRunError(err)
	}

	report := audit.NewReport(result, time.Now())
	render := report.RenderText
	if o.format == formatJSON {
		render = report.RenderJSON
	}
	if err := writeOutput(o.out, render); err != nil {
		return err
	}

	failAt := cfg.Audit.FailAt()
	failing := 0
	for _, f := range result.Findings {
		if f.Severity.Rank() <= failAt.Rank() {
			failing++
		}
	}
	if failing > 0 {
		return &exitError{code: 1, err: fmt.Errorf("audit failed with %d findings at or above %s severity", failing, failAt)}
	}
	return nil
}

type resolveOptions struct {
	docs   []string
	format string
	out    string
}

func resolveCmd(opts *rootOptions) *cobra.Command {
	var o resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a corpus into canonical feature state",
		Long: `Resolve folds every feature chain in the requirement corpus into its
canonical state and prints the active criteria with their provenance.
No evidence is consulted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, &o)
		},
	}

	cmd.Flags().StringArrayVar(&o.docs, "docs", nil, "Requirement document path, glob, or URL (repeatable; overrides config)")
	cmd.Flags().StringVar(&o.format, "format", formatText, "Output format (text, json)")
	cmd.Flags().StringVar(&o.out, "out", "", "Write the output to a file instead of stdout")

	return cmd
}

func runResolve(opts *rootOptions, o *resolveOptions) error {
	cfg, _, err := opts.setup()
	if err != nil {
		return err
	}
	if err := validateFormat(o.format); err != nil {
		return err
	}

	l, err := corpusLoader(cfg, o.docs, nil)
	if err != nil {
		return err
	}
	docs, err := l.LoadDocuments()
	if err != nil {
		return corpusError(err)
	}

	engine, err := audit.New(cfg.Audit.EngineConfig())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	res, err := engine.BuildCanonicalState(docs)
	if err != nil {
		return corpusRunError(err)
	}

	output := newResolveOutput(res, time.Now())
	render := output.renderText
	if o.format == formatJSON {
		render = output.renderJSON
	}
	if err := writeOutput(o.out, render); err != nil {
		return err
	}

	if len(res.Failures) > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d feature chains failed to resolve", len(res.Failures))}
	}
	return nil
}

// resolveOutput is the serializable form of one resolution pass, with
// maps flattened into feature-key order.
type resolveOutput struct {
	GeneratedAt time.Time                            `json:"generated_at"`
	Features    []*requirement.CanonicalFeatureState `json:"features"`
	Failures    []audit.FeatureFailure               `json:"failures,omitempty"`
}

func newResolveOutput(res *audit.Resolution, generatedAt time.Time) *resolveOutput {
	out := &resolveOutput{GeneratedAt: generatedAt}

	keys := make([]string, 0, len(res.States))
	for key := range res.States {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out.Features = append(out.Features, res.States[key])
	}

	keys = keys[:0]
	for key := range res.Failures {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out.Failures = append(out.Failures, audit.FeatureFailure{
			FeatureKey: key,
			Error:      res.Failures[key].Error(),
		})
	}
	return out
}

func (r *resolveOutput) renderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *resolveOutput) renderText(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("# Canonical Requirements\n\n")
	sb.WriteString("Generated: ")
	sb.WriteString(r.GeneratedAt.UTC().Format(time.RFC3339))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Features: %d resolved", len(r.Features))
	if len(r.Failures) > 0 {
		fmt.Fprintf(&sb, ", %d failed", len(r.Failures))
	}
	sb.WriteString("\n")

	for _, state := range r.Features {
		sb.WriteString("\n## ")
		sb.WriteString(state.FeatureKey)
		if state.Unratified {
			sb.WriteString(" (unratified)")
		}
		sb.WriteString("\n\n")

		for _, c := range state.Criteria {
			fmt.Fprintf(&sb, "- [%s] %q (%s, %s)", c.ID, c.Text, c.SourceDocumentID, c.SourceStatus)
			if c.SecurityRelevant {
				sb.WriteString(" [security]")
			}
			sb.WriteString("\n")
		}
	}

	if len(r.Failures) > 0 {
		sb.WriteString("\n## Failed chains\n\n")
		for _, failure := range r.Failures {
			fmt.Fprintf(&sb, "- %s: %s\n", failure.FeatureKey, failure.Error)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// corpusLoader builds a document loader, with CLI path arguments taking
// precedence over the configured corpus patterns.
func corpusLoader(cfg *config.Config, docPaths, factPaths []string) (*loader.Loader, error) {
	corpus := cfg.Corpus

	if len(docPaths) > 0 {
		patterns, err := asPatterns(docPaths, documentGlob)
		if err != nil {
			return nil, err
		}
		corpus.DocumentPatterns = patterns
	}
	if len(factPaths) > 0 {
		patterns, err := asPatterns(factPaths, factGlob)
		if err != nil {
			return nil, err
		}
		corpus.FactPatterns = patterns
	}

	return loader.New(corpus)
}

// asPatterns turns CLI path arguments into loader patterns anchored at
// the current directory rather than the corpus root. Directories expand
// to a recursive glob; files, explicit globs, and document URLs pass
// through.
func asPatterns(values []string, dirGlob string) ([]string, error) {
	patterns := make([]string, 0, len(values))
	for _, value := range values {
		if loader.IsRemotePattern(value) {
			patterns = append(patterns, value)
			continue
		}
		abs, err := filepath.Abs(value)
		if err != nil {
			return nil, fmt.Errorf("resolve path %q: %w", value, err)
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			patterns = append(patterns, filepath.Join(abs, dirGlob))
			continue
		}
		patterns = append(patterns, abs)
	}
	return patterns, nil
}

func validateFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unsupported format %q (supported: text, json)", format)
	}
	return nil
}

// writeOutput renders to the named file, or stdout when path is empty.
func writeOutput(path string, render func(io.Writer) error) error {
	if path == "" {
		return render(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// corpusError signals an unusable corpus via exit code 2.
func corpusError(err error) error {
	return &exitError{code: 2, err: fmt.Errorf("corpus validation failed: %w", err)}
}

// corpusRunError maps corpus-level validation errors from a pipeline run
// to exit code 2 and passes everything else through.
func corpusRunError(err error) error {
	var verr *requirement.ValidationError
	if errors.As(err, &verr) {
		return corpusError(err)
	}
	return err
}
