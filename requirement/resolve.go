package requirement

// ProvenanceAction classifies one fold step in a chain's history.
type ProvenanceAction string

const (
	// ProvenanceAdded records a criterion entering the active set.
	ProvenanceAdded ProvenanceAction = "added"
	// ProvenanceSuperseded records a criterion replaced by a later one.
	ProvenanceSuperseded ProvenanceAction = "superseded"
	// ProvenanceRemoved records a criterion retracted without replacement.
	ProvenanceRemoved ProvenanceAction = "removed"
)

// ProvenanceEntry is one step of a chain's resolution history. Superseded and
// removed criteria leave the active set but are retained here for audit.
type ProvenanceEntry struct {
	Action ProvenanceAction `json:"action"`

	// Criterion is the authoring reference of the criterion acted upon.
	Criterion CriterionRef `json:"criterion"`

	// ActedBy is the document that performed the action. For additions it
	// equals the authoring document; for supersessions and removals it is
	// the later document carrying the reference.
	ActedBy string `json:"acted_by"`

	// Text is the criterion text at the time of the action.
	Text string `json:"text"`

	// Replacement names the succeeding criterion for superseded entries.
	Replacement *CriterionRef `json:"replacement,omitempty"`
}

// ActiveCriterion is one criterion surviving resolution, annotated with the
// document that authored it. The source status drives severity downstream.
type ActiveCriterion struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	SourceDocumentID string `json:"source_document_id"`
	SourceStatus     Status `json:"source_status"`
	SecurityRelevant bool   `json:"security_relevant,omitempty"`
}

// Ref returns the authoring reference of the criterion.
func (a ActiveCriterion) Ref() CriterionRef {
	return CriterionRef{DocumentID: a.SourceDocumentID, CriterionID: a.ID}
}

// CanonicalFeatureState is the deterministic, conflict-free requirement set
// for one feature after folding its chain. It is a pure function of the
// ordered, non-abandoned documents: recomputing from the same input always
// yields the same output. Never mutated; recomputed each run.
type CanonicalFeatureState struct {
	FeatureKey string `json:"feature_key"`

	// Criteria is the active set in fold order. An overriding criterion
	// takes the position of the criterion it replaced.
	Criteria []ActiveCriterion `json:"criteria"`

	// Provenance is the complete fold log for the chain.
	Provenance []ProvenanceEntry `json:"provenance"`

	// Unratified marks a non-empty chain holding no approved or done
	// document. Informational, not an error.
	Unratified bool `json:"unratified,omitempty"`
}

// Criterion returns the active criterion authored under ref, or nil.
func (s *CanonicalFeatureState) Criterion(ref CriterionRef) *ActiveCriterion {
	for i := range s.Criteria {
		if s.Criteria[i].Ref() == ref {
			return &s.Criteria[i]
		}
	}
	return nil
}

// Lineage returns the provenance entries concerning the criterion at ref,
// traced back through every predecessor it superseded, oldest first. An
// unknown ref yields an empty lineage.
func (s *CanonicalFeatureState) Lineage(ref CriterionRef) []ProvenanceEntry {
	added := make(map[CriterionRef]ProvenanceEntry)
	replaced := make(map[CriterionRef]ProvenanceEntry)
	for _, p := range s.Provenance {
		switch p.Action {
		case ProvenanceAdded:
			added[p.Criterion] = p
		case ProvenanceSuperseded:
			if p.Replacement != nil {
				replaced[*p.Replacement] = p
			}
		}
	}

	var out []ProvenanceEntry
	cur := ref
	for {
		a, ok := added[cur]
		if !ok {
			break
		}
		out = append(out, a)
		sup, ok := replaced[cur]
		if !ok {
			break
		}
		out = append(out, sup)
		cur = sup.Criterion
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Resolve folds a feature chain left-to-right into its canonical state.
// Each criterion applies as exactly one of three operations:
//
//   - Additive: insert under a fresh key. Criterion identity is globally
//     unique, so additions never collide.
//   - Override: the referenced criterion must be currently active; it is
//     replaced in place and both the removal and the addition are logged.
//   - Remove: the referenced criterion must be currently active; it is
//     dropped and nothing takes its place. A removing criterion that carries
//     its own text additionally enters the active set as an ordinary
//     addition at the end.
//
// A reference that is not active at fold time, whether already retired by an
// earlier step or authored outside this chain, yields a
// DanglingReferenceError. The error is fatal for this chain only.
func Resolve(chain FeatureChain) (*CanonicalFeatureState, error) {
	state := &CanonicalFeatureState{
		FeatureKey: chain.FeatureKey,
		Unratified: unratified(chain),
	}

	order := make([]ActiveCriterion, 0)
	index := make(map[CriterionRef]int)

	for _, doc := range chain.Documents {
		for i := range doc.Criteria {
			c := &doc.Criteria[i]
			entry := ActiveCriterion{
				ID:               c.ID,
				Text:             c.Text,
				SourceDocumentID: doc.ID,
				SourceStatus:     doc.Status,
				SecurityRelevant: c.SecurityRelevant,
			}

			switch op := c.Operation().(type) {
			case Additive:
				index[entry.Ref()] = len(order)
				order = append(order, entry)
				state.Provenance = append(state.Provenance, ProvenanceEntry{
					Action:    ProvenanceAdded,
					Criterion: entry.Ref(),
					ActedBy:   doc.ID,
					Text:      c.Text,
				})

			case Override:
				pos, ok := index[op.Ref]
				if !ok {
					return nil, &DanglingReferenceError{
						FeatureKey:  chain.FeatureKey,
						DocumentID:  doc.ID,
						CriterionID: c.ID,
						Ref:         op.Ref,
					}
				}
				old := order[pos]
				newRef := entry.Ref()
				state.Provenance = append(state.Provenance, ProvenanceEntry{
					Action:      ProvenanceSuperseded,
					Criterion:   old.Ref(),
					ActedBy:     doc.ID,
					Text:        old.Text,
					Replacement: &newRef,
				})
				delete(index, op.Ref)
				order[pos] = entry
				index[newRef] = pos
				state.Provenance = append(state.Provenance, ProvenanceEntry{
					Action:    ProvenanceAdded,
					Criterion: newRef,
					ActedBy:   doc.ID,
					Text:      c.Text,
				})

			case Remove:
				pos, ok := index[op.Ref]
				if !ok {
					return nil, &DanglingReferenceError{
						FeatureKey:  chain.FeatureKey,
						DocumentID:  doc.ID,
						CriterionID: c.ID,
						Ref:         op.Ref,
					}
				}
				old := order[pos]
				state.Provenance = append(state.Provenance, ProvenanceEntry{
					Action:    ProvenanceRemoved,
					Criterion: old.Ref(),
					ActedBy:   doc.ID,
					Text:      old.Text,
				})
				order = append(order[:pos], order[pos+1:]...)
				delete(index, op.Ref)
				for ref, p := range index {
					if p > pos {
						index[ref] = p - 1
					}
				}

				// A retraction carrying its own text is also an addition.
				if c.Text != "" {
					index[entry.Ref()] = len(order)
					order = append(order, entry)
					state.Provenance = append(state.Provenance, ProvenanceEntry{
						Action:    ProvenanceAdded,
						Criterion: entry.Ref(),
						ActedBy:   doc.ID,
						Text:      c.Text,
					})
				}
			}
		}
	}

	state.Criteria = order
	return state, nil
}

// unratified reports whether a non-empty chain lacks any ratified document.
func unratified(chain FeatureChain) bool {
	if len(chain.Documents) == 0 {
		return false
	}
	for i := range chain.Documents {
		if chain.Documents[i].Status.Ratified() {
			return false
		}
	}
	return true
}
