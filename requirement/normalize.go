package requirement

import (
	"fmt"
	"sort"
)

// NormalizeResult holds the outcome of corpus normalization.
type NormalizeResult struct {
	// Valid holds the documents that passed validation, in input order.
	// Every document of a failed chain is excluded, not just the offender.
	Valid []Document

	// Failures maps feature keys to the error that failed their chain.
	// Chains listed here produce no canonical state but never block others.
	Failures map[string]*ValidationError
}

// Normalize validates a raw document corpus against the schema. Documents
// pass through unchanged; there are no side effects beyond validation.
//
// Two failure scopes apply. Breaches that cannot be pinned to a single chain
// reject the whole set: empty or duplicate document ids, empty feature keys,
// and duplicate sequence numbers. Per-document schema violations (unknown
// status, missing sequence number, a criterion carrying both supersedes and
// removes, a reference to a pair absent from the already-seen set) fail only
// the offending document's feature chain.
func Normalize(docs []Document) (*NormalizeResult, error) {
	// Corpus-scoped identity checks.
	ids := make(map[string]bool, len(docs))
	for i := range docs {
		d := &docs[i]
		if d.ID == "" {
			return nil, &ValidationError{Field: "id", Message: fmt.Sprintf("document at index %d has no id", i)}
		}
		if ids[d.ID] {
			return nil, &ValidationError{DocumentID: d.ID, Field: "id", Message: "duplicate document id"}
		}
		ids[d.ID] = true
		if d.FeatureKey == "" {
			return nil, &ValidationError{DocumentID: d.ID, Field: "feature_key", Message: "feature key is required"}
		}
	}

	result := &NormalizeResult{
		Failures: make(map[string]*ValidationError),
	}

	// Per-document schema checks, scoped to the owning chain.
	schemaValid := make([]*Document, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		if _, failed := result.Failures[d.FeatureKey]; failed {
			continue
		}
		if err := d.Validate(); err != nil {
			result.Failures[d.FeatureKey] = err.(*ValidationError)
			continue
		}
		schemaValid = append(schemaValid, d)
	}

	// Sequence numbers are globally unique by contract. Chain Builder relies
	// on this and does not re-check it.
	bySeq := make(map[int64]string, len(schemaValid))
	for _, d := range schemaValid {
		if other, ok := bySeq[d.SequenceNumber]; ok {
			return nil, &ValidationError{
				DocumentID: d.ID,
				Field:      "sequence_number",
				Message:    fmt.Sprintf("sequence number %d already used by document %s", d.SequenceNumber, other),
			}
		}
		bySeq[d.SequenceNumber] = d.ID
	}

	// References must point backward: every supersedes/removes target has to
	// exist in a document already seen in sequence order. Whether the target
	// is still active is the Resolver's concern, not checked here.
	ordered := make([]*Document, len(schemaValid))
	copy(ordered, schemaValid)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SequenceNumber < ordered[j].SequenceNumber
	})

	seen := make(map[CriterionRef]bool)
	for _, d := range ordered {
		if _, failed := result.Failures[d.FeatureKey]; failed {
			continue
		}
		ok := true
		for i := range d.Criteria {
			c := &d.Criteria[i]
			ref := refOf(c)
			if ref != nil && !seen[*ref] {
				result.Failures[d.FeatureKey] = &ValidationError{
					DocumentID: d.ID,
					Field:      "criteria",
					Message:    fmt.Sprintf("criterion %s references unknown criterion %s", c.ID, ref),
				}
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		for i := range d.Criteria {
			seen[CriterionRef{DocumentID: d.ID, CriterionID: d.Criteria[i].ID}] = true
		}
	}

	// Pass surviving documents through in input order.
	for i := range docs {
		d := &docs[i]
		if _, failed := result.Failures[d.FeatureKey]; failed {
			continue
		}
		result.Valid = append(result.Valid, *d)
	}

	return result, nil
}

// refOf returns the outbound reference of a criterion, or nil when additive.
func refOf(c *Criterion) *CriterionRef {
	if c.Supersedes != nil {
		return c.Supersedes
	}
	return c.Removes
}
