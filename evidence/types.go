// Package evidence models observed implementation facts and matches them
// against resolved requirement criteria. Matching is pure text comparison;
// nothing here executes or inspects the system under audit.
package evidence

// Fact is one externally gathered observation of actual system behavior.
// Facts are supplied by collectors (code scanners, log search, manual notes)
// and are treated as immutable input.
type Fact struct {
	// FeatureKey assigns the fact to a feature chain. It is authored by
	// the collector, never inferred from the description.
	FeatureKey string `json:"feature_key" yaml:"feature"`

	// Description states the observed behavior in plain language.
	Description string `json:"description" yaml:"description"`

	// Location points at the supporting evidence, typically "path:line".
	Location string `json:"location" yaml:"location"`

	// SecurityRelevant raises the severity of unexpected behavior.
	SecurityRelevant bool `json:"security_relevant,omitempty" yaml:"security,omitempty"`
}
