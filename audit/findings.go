// Package audit turns resolved requirement states and observed evidence into
// severity-ranked gap findings. The pipeline is pure batch computation over
// immutable inputs; per-feature work is independent and safe to parallelize.
package audit

import (
	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
)

// GapCategory classifies how observed behavior diverges from requirements.
type GapCategory string

const (
	// GapMissing marks an active criterion no evidence covers.
	GapMissing GapCategory = "missing"

	// GapDifferent marks evidence that contradicts its criterion.
	GapDifferent GapCategory = "different"

	// GapPartial marks evidence covering only part of a criterion.
	GapPartial GapCategory = "partial"

	// GapExtra marks observed behavior no active criterion calls for.
	GapExtra GapCategory = "extra"

	// GapSatisfied marks a criterion fully covered by evidence. Kept for
	// coverage reporting; suppressible by configuration.
	GapSatisfied GapCategory = "satisfied"
)

// String returns the string representation of the category.
func (c GapCategory) String() string {
	return string(c)
}

// IsValid checks if the category is a known value.
func (c GapCategory) IsValid() bool {
	switch c {
	case GapMissing, GapDifferent, GapPartial, GapExtra, GapSatisfied:
		return true
	}
	return false
}

// Severity ranks findings for triage.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"

	// SeverityNone is carried by satisfied findings only.
	SeverityNone Severity = "none"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid checks if the severity is a known value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityNone:
		return true
	}
	return false
}

// Rank orders severities for sorting, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Finding is one categorized divergence between the canonical requirement
// state and observed behavior.
type Finding struct {
	Category   GapCategory `json:"category"`
	Severity   Severity    `json:"severity"`
	FeatureKey string      `json:"feature_key"`

	// Criterion is the requirement side of the finding. Nil for extra
	// findings, which have no criterion by definition.
	Criterion *requirement.ActiveCriterion `json:"criterion,omitempty"`

	// Fact is the evidence side of the finding. Nil for missing findings.
	Fact *evidence.Fact `json:"fact,omitempty"`

	// Score is the similarity of the matched pair, zero when unpaired.
	Score float64 `json:"score,omitempty"`

	// Detail states the divergence in one line.
	Detail string `json:"detail"`

	// Provenance traces the criterion through every predecessor it
	// superseded, oldest first. Empty for extra findings.
	Provenance []requirement.ProvenanceEntry `json:"provenance,omitempty"`
}

// severityFor looks up the severity for a category given the status of the
// document that sourced the criterion.
//
// The security flag escalates two cells: contradicting a done, security
// relevant criterion is critical, and unrequested security relevant
// behavior is high regardless of status.
func severityFor(category GapCategory, status requirement.Status, securityRelevant bool) Severity {
	switch category {
	case GapMissing:
		switch status {
		case requirement.StatusDone:
			return SeverityCritical
		case requirement.StatusApproved:
			return SeverityHigh
		default:
			return SeverityMedium
		}
	case GapDifferent:
		switch status {
		case requirement.StatusDone:
			if securityRelevant {
				return SeverityCritical
			}
			return SeverityHigh
		case requirement.StatusApproved:
			return SeverityHigh
		default:
			return SeverityMedium
		}
	case GapPartial:
		switch status {
		case requirement.StatusDone, requirement.StatusApproved:
			return SeverityMedium
		default:
			return SeverityLow
		}
	case GapExtra:
		if securityRelevant {
			return SeverityHigh
		}
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Warning is non-fatal metadata attached to a run's output. Warnings never
// abort an audit.
type Warning struct {
	Code       string `json:"code"`
	FeatureKey string `json:"feature_key,omitempty"`
	Message    string `json:"message"`
}

// WarnEvidenceMatchingDegraded is emitted when a feature accepted at least
// one pair through similarity fallback instead of exact text equality.
const WarnEvidenceMatchingDegraded = "evidence_matching_degraded"
