// Package requirement provides the semaudit requirement document model and
// the resolution pipeline that folds a document history into one canonical
// requirement state per feature.
package requirement

import "fmt"

// Status represents the lifecycle state of a requirement document.
type Status string

const (
	// StatusDraft indicates the document is authored but not yet ratified.
	// Draft criteria contribute to canonical state at reduced severity.
	StatusDraft Status = "draft"
	// StatusApproved indicates the document has been ratified for implementation.
	StatusApproved Status = "approved"
	// StatusDone indicates the described behavior is expected to exist.
	StatusDone Status = "done"
	// StatusAbandoned indicates the document was withdrawn.
	// Abandoned documents are excluded from resolution entirely.
	StatusAbandoned Status = "abandoned"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known document status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusDone, StatusAbandoned:
		return true
	default:
		return false
	}
}

// CanTransitionTo returns true if the status can transition to the target status.
// Documents are immutable; transitions describe which successor document
// statuses are coherent for the same feature, not in-place mutation.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusApproved || target == StatusAbandoned
	case StatusApproved:
		return target == StatusDone || target == StatusAbandoned
	case StatusDone:
		// done is terminal; later documents supersede rather than transition
		return false
	case StatusAbandoned:
		return false
	default:
		return false
	}
}

// Ratified returns true for statuses that make a chain ratified.
func (s Status) Ratified() bool {
	return s == StatusApproved || s == StatusDone
}

// CriterionRef identifies a criterion by its owning document and criterion id.
type CriterionRef struct {
	DocumentID  string `json:"document_id" yaml:"document"`
	CriterionID string `json:"criterion_id" yaml:"criterion"`
}

// String returns the canonical doc/criterion form of the reference.
func (r CriterionRef) String() string {
	return r.DocumentID + "/" + r.CriterionID
}

// IsZero returns true when neither component is set.
func (r CriterionRef) IsZero() bool {
	return r.DocumentID == "" && r.CriterionID == ""
}

// Criterion is one testable statement of required behavior within a document.
// A criterion is purely additive unless it carries a supersedes or removes
// reference; it never carries both.
type Criterion struct {
	// ID is unique within the owning document.
	ID string `json:"id" yaml:"id"`

	// Text is the required behavior statement.
	Text string `json:"text" yaml:"text"`

	// Supersedes names an earlier criterion this one replaces.
	Supersedes *CriterionRef `json:"supersedes,omitempty" yaml:"supersedes,omitempty"`

	// Removes names an earlier criterion this one retracts without replacement.
	Removes *CriterionRef `json:"removes,omitempty" yaml:"removes,omitempty"`

	// SecurityRelevant marks criteria whose drift escalates severity.
	// The tag is authored in the document, never inferred from text.
	SecurityRelevant bool `json:"security_relevant,omitempty" yaml:"security,omitempty"`
}

// Validate checks criterion-level field consistency.
func (c *Criterion) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("criterion id is required")
	}
	if c.Text == "" && c.Removes == nil {
		return fmt.Errorf("criterion %s: text is required", c.ID)
	}
	if c.Supersedes != nil && c.Removes != nil {
		return fmt.Errorf("criterion %s: supersedes and removes are mutually exclusive", c.ID)
	}
	if c.Supersedes != nil && (c.Supersedes.DocumentID == "" || c.Supersedes.CriterionID == "") {
		return fmt.Errorf("criterion %s: supersedes reference is incomplete", c.ID)
	}
	if c.Removes != nil && (c.Removes.DocumentID == "" || c.Removes.CriterionID == "") {
		return fmt.Errorf("criterion %s: removes reference is incomplete", c.ID)
	}
	return nil
}

// Op is the resolution operation a criterion performs during folding.
// Exactly one variant applies to any well-formed criterion: Additive,
// Override, or Remove. Keeping the three variants as distinct types keeps
// each fold step auditable and testable in isolation.
type Op interface {
	isOp()
}

// Additive inserts a new criterion into the active set.
type Additive struct{}

// Override replaces the referenced active criterion with this one.
type Override struct {
	Ref CriterionRef
}

// Remove retracts the referenced active criterion without replacement.
type Remove struct {
	Ref CriterionRef
}

func (Additive) isOp() {}
func (Override) isOp() {}
func (Remove) isOp()   {}

// Operation returns the resolution operation encoded by the criterion.
// Criteria with both references set are rejected by the Normalizer before
// resolution; Operation treats that case as additive to stay total.
func (c *Criterion) Operation() Op {
	switch {
	case c.Supersedes != nil && c.Removes == nil:
		return Override{Ref: *c.Supersedes}
	case c.Removes != nil && c.Supersedes == nil:
		return Remove{Ref: *c.Removes}
	default:
		return Additive{}
	}
}

// Document is a structured, versioned record of desired behavior for one
// feature. Documents are immutable once created; their lifecycle ends only by
// being superseded or excluded during resolution, never by in-place mutation.
type Document struct {
	// ID uniquely identifies the document within the corpus.
	ID string `json:"id" yaml:"id"`

	// SequenceNumber orders documents chronologically. Unique and strictly
	// increasing across the corpus.
	SequenceNumber int64 `json:"sequence_number" yaml:"sequence"`

	// Status is the document lifecycle state.
	Status Status `json:"status" yaml:"status"`

	// FeatureKey associates the document with a feature. Association is
	// supplied by the author, never discovered from text.
	FeatureKey string `json:"feature_key" yaml:"feature"`

	// Criteria are the acceptance criteria authored by this document.
	Criteria []Criterion `json:"criteria" yaml:"criteria"`
}

// Validate checks document-level schema rules. Corpus-level rules such as
// sequence number uniqueness are enforced by Normalize.
func (d *Document) Validate() error {
	if d.ID == "" {
		return &ValidationError{DocumentID: d.ID, Field: "id", Message: "document id is required"}
	}
	if d.SequenceNumber <= 0 {
		return &ValidationError{DocumentID: d.ID, Field: "sequence_number", Message: "sequence number is required and must be positive"}
	}
	if !d.Status.IsValid() {
		return &ValidationError{DocumentID: d.ID, Field: "status", Message: fmt.Sprintf("unknown status %q", d.Status)}
	}
	if d.FeatureKey == "" {
		return &ValidationError{DocumentID: d.ID, Field: "feature_key", Message: "feature key is required"}
	}

	seen := make(map[string]bool, len(d.Criteria))
	for i := range d.Criteria {
		c := &d.Criteria[i]
		if err := c.Validate(); err != nil {
			return &ValidationError{DocumentID: d.ID, Field: "criteria", Message: err.Error()}
		}
		if seen[c.ID] {
			return &ValidationError{DocumentID: d.ID, Field: "criteria", Message: fmt.Sprintf("duplicate criterion id %s", c.ID)}
		}
		seen[c.ID] = true
	}
	return nil
}

// Criterion returns the criterion with the given id, or nil.
func (d *Document) Criterion(id string) *Criterion {
	for i := range d.Criteria {
		if d.Criteria[i].ID == id {
			return &d.Criteria[i]
		}
	}
	return nil
}
