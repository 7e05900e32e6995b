package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semaudit/requirement"
)

// Report is the presentable outcome of one audit run: findings grouped per
// feature under a severity summary, with chain failures and warnings
// attached. Assembling a report is purely a formatting step; it raises no
// new errors.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     Summary          `json:"summary"`
	Features    []FeatureReport  `json:"features"`
	Failures    []FeatureFailure `json:"failures,omitempty"`
	Warnings    []Warning        `json:"warnings,omitempty"`
}

// Summary counts findings per severity plus satisfied coverage.
type Summary struct {
	Critical  int `json:"critical"`
	High      int `json:"high"`
	Medium    int `json:"medium"`
	Low       int `json:"low"`
	Satisfied int `json:"satisfied"`

	// Features is the number of feature chains that resolved; Failed the
	// number that did not.
	Features int `json:"features"`
	Failed   int `json:"failed,omitempty"`
}

// FeatureReport groups one feature's findings.
type FeatureReport struct {
	FeatureKey string    `json:"feature_key"`
	Unratified bool      `json:"unratified,omitempty"`
	Findings   []Finding `json:"findings"`
}

// FeatureFailure surfaces a chain that produced no canonical state.
type FeatureFailure struct {
	FeatureKey string `json:"feature_key"`
	Error      string `json:"error"`
}

// NewReport assembles a report from a completed run. Findings arrive sorted
// by severity then feature key; feature groups appear in order of their
// worst finding and keep the sorted order inside each group.
func NewReport(run *RunResult, generatedAt time.Time) *Report {
	report := &Report{
		GeneratedAt: generatedAt,
		Warnings:    run.Warnings,
	}

	groups := make(map[string]int)
	for _, f := range run.Findings {
		switch f.Severity {
		case SeverityCritical:
			report.Summary.Critical++
		case SeverityHigh:
			report.Summary.High++
		case SeverityMedium:
			report.Summary.Medium++
		case SeverityLow:
			report.Summary.Low++
		}
		if f.Category == GapSatisfied {
			report.Summary.Satisfied++
		}

		idx, ok := groups[f.FeatureKey]
		if !ok {
			idx = len(report.Features)
			groups[f.FeatureKey] = idx
			feature := FeatureReport{FeatureKey: f.FeatureKey}
			if state, ok := run.Resolution.States[f.FeatureKey]; ok {
				feature.Unratified = state.Unratified
			}
			report.Features = append(report.Features, feature)
		}
		report.Features[idx].Findings = append(report.Features[idx].Findings, f)
	}

	report.Summary.Features = len(run.Resolution.States)
	report.Summary.Failed = len(run.Resolution.Failures)

	keys := make([]string, 0, len(run.Resolution.Failures))
	for key := range run.Resolution.Failures {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		report.Failures = append(report.Failures, FeatureFailure{
			FeatureKey: key,
			Error:      run.Resolution.Failures[key].Error(),
		})
	}

	return report
}

// RenderJSON writes the report as indented JSON.
func (r *Report) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// RenderText writes the report as human-readable markdown.
func (r *Report) RenderText(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("# Requirement Audit\n\n")
	sb.WriteString("Generated: ")
	sb.WriteString(r.GeneratedAt.UTC().Format(time.RFC3339))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Features: %d resolved", r.Summary.Features)
	if r.Summary.Failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.Summary.Failed)
	}
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Critical: %d\n", r.Summary.Critical)
	fmt.Fprintf(&sb, "High: %d\n", r.Summary.High)
	fmt.Fprintf(&sb, "Medium: %d\n", r.Summary.Medium)
	fmt.Fprintf(&sb, "Low: %d\n", r.Summary.Low)
	fmt.Fprintf(&sb, "Satisfied: %d\n", r.Summary.Satisfied)

	for _, feature := range r.Features {
		sb.WriteString("\n## ")
		sb.WriteString(feature.FeatureKey)
		if feature.Unratified {
			sb.WriteString(" (unratified)")
		}
		sb.WriteString("\n\n")

		for _, finding := range feature.Findings {
			writeFinding(&sb, finding)
		}
	}

	if len(r.Failures) > 0 {
		sb.WriteString("\n## Failed chains\n\n")
		for _, failure := range r.Failures {
			fmt.Fprintf(&sb, "- %s: %s\n", failure.FeatureKey, failure.Error)
		}
	}

	if len(r.Warnings) > 0 {
		sb.WriteString("\n## Warnings\n\n")
		for _, warning := range r.Warnings {
			if warning.FeatureKey != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", warning.FeatureKey, warning.Message)
			} else {
				fmt.Fprintf(&sb, "- %s\n", warning.Message)
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// writeFinding renders one finding with its provenance history.
func writeFinding(sb *strings.Builder, f Finding) {
	if f.Category == GapSatisfied {
		fmt.Fprintf(sb, "- [ok] satisfied: %q (%s)\n", f.Criterion.Text, f.Criterion.Ref())
	} else if f.Criterion != nil {
		fmt.Fprintf(sb, "- [%s] %s: %q (%s)\n", f.Severity, f.Category, f.Criterion.Text, f.Criterion.Ref())
	} else {
		fmt.Fprintf(sb, "- [%s] %s: %q (%s)\n", f.Severity, f.Category, f.Fact.Description, f.Fact.Location)
	}
	fmt.Fprintf(sb, "  %s\n", f.Detail)

	for _, p := range f.Provenance {
		switch p.Action {
		case requirement.ProvenanceAdded:
			fmt.Fprintf(sb, "    added by %s: %q\n", p.ActedBy, p.Text)
		case requirement.ProvenanceSuperseded:
			fmt.Fprintf(sb, "    superseded by %s (was %q)\n", p.ActedBy, p.Text)
		case requirement.ProvenanceRemoved:
			fmt.Fprintf(sb, "    removed by %s (was %q)\n", p.ActedBy, p.Text)
		}
	}
}
