package audit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
)

// DefaultSatisfiedThreshold is the criterion-token coverage at which matched
// evidence counts as fully covering the criterion. Like the match threshold,
// it is a visible constant, not a buried magic number.
const DefaultSatisfiedThreshold = 0.6

// classifyFeature categorizes one feature's match result. Extra findings are
// not produced here: orphaned facts are only known once every feature has
// claimed its evidence, so the engine collects them afterwards.
func classifyFeature(state *requirement.CanonicalFeatureState, result *evidence.MatchResult, satisfiedThreshold float64) []Finding {
	findings := make([]Finding, 0, len(result.Pairs)+len(result.Unmatched))

	for _, pair := range result.Pairs {
		findings = append(findings, classifyPair(state, pair, satisfiedThreshold))
	}

	for i := range result.Unmatched {
		criterion := result.Unmatched[i]
		findings = append(findings, Finding{
			Category:   GapMissing,
			Severity:   severityFor(GapMissing, criterion.SourceStatus, criterion.SecurityRelevant),
			FeatureKey: state.FeatureKey,
			Criterion:  &criterion,
			Detail:     "no observed behavior matches this criterion",
			Provenance: state.Lineage(criterion.Ref()),
		})
	}

	return findings
}

// classifyPair judges one matched pair: contradiction first, then full
// coverage, else partial. Exact pairs share every token, so they can never
// disagree on polarity and always classify as satisfied.
func classifyPair(state *requirement.CanonicalFeatureState, pair evidence.MatchedPair, satisfiedThreshold float64) Finding {
	criterion := pair.Criterion
	fact := pair.Fact

	coverage := tokenCoverage(pair.CriterionTokens, pair.FactTokens)
	criterionMarkers := evidence.NegationMarkers(pair.CriterionTokens)
	factMarkers := evidence.NegationMarkers(pair.FactTokens)

	var category GapCategory
	var detail string
	switch {
	case !slices.Equal(criterionMarkers, factMarkers):
		category = GapDifferent
		detail = fmt.Sprintf("evidence at %s asserts the opposite polarity (criterion: %s; evidence: %s)",
			fact.Location, markerList(criterionMarkers), markerList(factMarkers))
	case pair.Exact || coverage >= satisfiedThreshold:
		category = GapSatisfied
		detail = fmt.Sprintf("covered by %s", fact.Location)
	default:
		category = GapPartial
		detail = fmt.Sprintf("evidence at %s covers only part of the criterion (%.0f%% of its terms)",
			fact.Location, coverage*100)
	}

	return Finding{
		Category:   category,
		Severity:   severityFor(category, criterion.SourceStatus, criterion.SecurityRelevant),
		FeatureKey: state.FeatureKey,
		Criterion:  &criterion,
		Fact:       &fact,
		Score:      pair.Score,
		Detail:     detail,
		Provenance: state.Lineage(criterion.Ref()),
	}
}

// extraFinding builds the finding for a fact no criterion claimed.
func extraFinding(fact evidence.Fact) Finding {
	return Finding{
		Category:   GapExtra,
		Severity:   severityFor(GapExtra, "", fact.SecurityRelevant),
		FeatureKey: fact.FeatureKey,
		Fact:       &fact,
		Detail:     "no active criterion calls for this behavior",
	}
}

// tokenCoverage is the share of distinct criterion tokens present in the
// fact's tokens.
func tokenCoverage(criterionTokens, factTokens []string) float64 {
	criterion := make(map[string]bool, len(criterionTokens))
	for _, t := range criterionTokens {
		criterion[t] = true
	}
	if len(criterion) == 0 {
		return 0
	}

	fact := make(map[string]bool, len(factTokens))
	for _, t := range factTokens {
		fact[t] = true
	}

	covered := 0
	for t := range criterion {
		if fact[t] {
			covered++
		}
	}
	return float64(covered) / float64(len(criterion))
}

// markerList renders negation markers for a finding detail.
func markerList(markers []string) string {
	if len(markers) == 0 {
		return "none"
	}
	return strings.Join(markers, ", ")
}
