package evidence

import (
	"fmt"
	"slices"
	"strings"

	"github.com/c360studio/semaudit/requirement"
)

// DefaultThreshold is the minimum similarity accepted for a non-exact
// match. Deliberately a named constant: the metric is heuristic and the
// cutoff must be visible and overridable, never buried in the algorithm.
const DefaultThreshold = 0.3

// Config holds matching configuration.
type Config struct {
	// Threshold is the minimum score for accepting a similarity match.
	Threshold float64
}

// DefaultConfig returns sensible matching defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("Threshold must be in (0, 1], got %v", c.Threshold)
	}
	return nil
}

// MatchedPair links one active criterion to the fact that best covers it.
type MatchedPair struct {
	Criterion requirement.ActiveCriterion
	Fact      Fact

	// FactIndex is the fact's position in the slice given to Match.
	FactIndex int

	// Score is the similarity the scorer assigned to the pair.
	Score float64

	// Exact marks a pair whose normalized texts were identical. Anything
	// else reached the pair through the similarity fallback and is
	// reported as degraded matching.
	Exact bool

	// CriterionTokens and FactTokens are the normalized token streams the
	// pair was scored on, retained so downstream classification works on
	// exactly what the matcher saw.
	CriterionTokens []string
	FactTokens      []string
}

// MatchResult partitions one feature's criteria into matched and unmatched,
// and records which facts were claimed. Facts claimed by no feature at all
// are the caller's orphan set.
type MatchResult struct {
	FeatureKey string
	Pairs      []MatchedPair
	Unmatched  []requirement.ActiveCriterion

	// MatchedFacts holds the indexes of facts claimed by at least one
	// pair. A single fact may cover several criteria.
	MatchedFacts map[int]bool

	// Degraded is set when any accepted pair fell back to similarity
	// matching instead of exact text equality.
	Degraded bool
}

// Matcher pairs active criteria with observed facts. Matching is pure and
// order-independent: every criterion is scored against every candidate fact
// and takes the best one, facts are never consumed.
type Matcher struct {
	config Config
	scorer Scorer
}

// New creates a new Matcher with the given configuration and scorer.
// A zero config falls back to defaults; a nil scorer falls back to the
// built-in token-overlap scorer.
func New(cfg Config, scorer Scorer) (*Matcher, error) {
	if cfg.Threshold == 0 {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		scorer = TokenScorer{}
	}
	return &Matcher{config: cfg, scorer: scorer}, nil
}

// MustNew creates a new Matcher, panicking on invalid config.
// Use for known-good configurations.
func MustNew(cfg Config, scorer Scorer) *Matcher {
	m, err := New(cfg, scorer)
	if err != nil {
		panic(err)
	}
	return m
}

// NewDefault creates a Matcher with default configuration and scorer.
func NewDefault() *Matcher {
	return MustNew(DefaultConfig(), nil)
}

// Threshold reports the configured acceptance cutoff.
func (m *Matcher) Threshold() float64 {
	return m.config.Threshold
}

// Match pairs each active criterion of one feature with its best evidence.
// Facts are first filtered to those hinting at the feature, then each
// criterion takes the highest-scoring fact at or above the threshold. Ties
// break on earliest location in lexical order, then on input position, so
// results are deterministic regardless of fact ordering.
func (m *Matcher) Match(state *requirement.CanonicalFeatureState, facts []Fact) *MatchResult {
	result := &MatchResult{
		FeatureKey:   state.FeatureKey,
		MatchedFacts: make(map[int]bool),
	}

	// The feature key names the shared context of every comparison within
	// the feature; its tokens carry no signal and are blanked out of both
	// sides before scoring.
	featureTokens := tokenSet(Tokens(state.FeatureKey))

	type candidate struct {
		index  int
		text   string
		tokens []string
	}
	candidates := make([]candidate, 0)
	for i := range facts {
		if facts[i].FeatureKey != state.FeatureKey {
			continue
		}
		text := stripTokens(facts[i].Description, featureTokens)
		candidates = append(candidates, candidate{
			index:  i,
			text:   text,
			tokens: Tokens(text),
		})
	}

	for _, criterion := range state.Criteria {
		text := stripTokens(criterion.Text, featureTokens)
		tokens := Tokens(text)

		best := -1
		bestScore := 0.0
		for ci, cand := range candidates {
			score := m.scorer.Score(text, cand.text)
			if score < m.config.Threshold {
				continue
			}
			switch {
			case best < 0:
			case score > bestScore:
			case score == bestScore && facts[cand.index].Location < facts[candidates[best].index].Location:
			default:
				continue
			}
			best = ci
			bestScore = score
		}

		if best < 0 {
			result.Unmatched = append(result.Unmatched, criterion)
			continue
		}

		chosen := candidates[best]
		pair := MatchedPair{
			Criterion:       criterion,
			Fact:            facts[chosen.index],
			FactIndex:       chosen.index,
			Score:           bestScore,
			Exact:           len(tokens) > 0 && slices.Equal(tokens, chosen.tokens),
			CriterionTokens: tokens,
			FactTokens:      chosen.tokens,
		}
		result.Pairs = append(result.Pairs, pair)
		result.MatchedFacts[chosen.index] = true
		if !pair.Exact {
			result.Degraded = true
		}
	}

	return result
}

// stripTokens removes the given tokens from free text, preserving the
// remaining words in order.
func stripTokens(text string, drop map[string]bool) string {
	if len(drop) == 0 {
		return text
	}
	kept := make([]string, 0)
	for _, f := range strings.Fields(text) {
		if drop[strings.ToLower(strings.Trim(f, ".,;:!?\"'()"))] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
