package requirement

import "fmt"

// ValidationError represents a malformed requirement document. It is fatal to
// the feature chain the document belongs to; unrelated chains still resolve.
// Corpus-level breaches (duplicate sequence numbers, colliding document ids)
// reject the whole document set instead.
type ValidationError struct {
	DocumentID string
	Field      string
	Message    string
}

func (e *ValidationError) Error() string {
	if e.DocumentID == "" {
		return e.Field + ": " + e.Message
	}
	return fmt.Sprintf("document %s: %s: %s", e.DocumentID, e.Field, e.Message)
}

// DanglingReferenceError reports an override or removal whose target is not
// active at fold time: either already superseded/removed, or authored in a
// different feature's chain. Fatal for the referencing chain only; ambiguous
// input always fails explicitly rather than being resolved by guesswork.
type DanglingReferenceError struct {
	FeatureKey  string
	DocumentID  string
	CriterionID string
	Ref         CriterionRef
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("feature %s: document %s criterion %s references %s, which is not active in this chain",
		e.FeatureKey, e.DocumentID, e.CriterionID, e.Ref)
}
