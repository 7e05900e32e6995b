package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semaudit/requirement"
)

func state(feature string, criteria ...requirement.ActiveCriterion) *requirement.CanonicalFeatureState {
	return &requirement.CanonicalFeatureState{
		FeatureKey: feature,
		Criteria:   criteria,
	}
}

func criterion(doc, id, text string) requirement.ActiveCriterion {
	return requirement.ActiveCriterion{
		ID:               id,
		Text:             text,
		SourceDocumentID: doc,
		SourceStatus:     requirement.StatusDone,
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{Threshold: 1}.Validate())
	assert.Error(t, Config{Threshold: -0.1}.Validate())
	assert.Error(t, Config{Threshold: 1.5}.Validate())
}

func TestNew_ZeroConfigUsesDefaults(t *testing.T) {
	m, err := New(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, m.Threshold())
}

func TestMatcher_Match_ExactText(t *testing.T) {
	m := NewDefault()

	s := state("auth", criterion("auth-v1", "ac-1", "session expires after 30 minutes"))
	facts := []Fact{
		{FeatureKey: "auth", Description: "session expires after 30 minutes", Location: "internal/auth/session.go:88"},
	}

	result := m.Match(s, facts)
	require.Len(t, result.Pairs, 1)
	assert.Empty(t, result.Unmatched)

	pair := result.Pairs[0]
	assert.Equal(t, 0, pair.FactIndex)
	assert.Equal(t, 1.0, pair.Score)
	assert.True(t, pair.Exact)
	assert.False(t, result.Degraded)
	assert.True(t, result.MatchedFacts[0])
}

func TestMatcher_Match_SimilarityFallback(t *testing.T) {
	m := NewDefault()

	s := state("dashboard", criterion("dash-v1", "b1", "show stats cards"))
	facts := []Fact{
		{FeatureKey: "dashboard", Description: "dashboard renders stats cards with live counts", Location: "web/dash.go:12"},
	}

	result := m.Match(s, facts)
	require.Len(t, result.Pairs, 1)
	assert.Empty(t, result.Unmatched)

	pair := result.Pairs[0]
	assert.False(t, pair.Exact)
	assert.True(t, result.Degraded)
	assert.GreaterOrEqual(t, pair.Score, DefaultThreshold)

	// The feature key's own tokens are stripped before scoring, so the
	// fact naming its feature is not penalized for it.
	assert.NotContains(t, pair.FactTokens, "dashboard")
	assert.Equal(t, []string{"show", "stats", "cards"}, pair.CriterionTokens)
}

func TestMatcher_Match_BelowThreshold(t *testing.T) {
	m := NewDefault()

	s := state("auth", criterion("auth-v2", "a2", "login with phone"))
	facts := []Fact{
		{FeatureKey: "auth", Description: "login form accepts email", Location: "internal/auth/login.go:42"},
	}

	result := m.Match(s, facts)
	assert.Empty(t, result.Pairs)
	require.Len(t, result.Unmatched, 1)
	assert.Equal(t, "a2", result.Unmatched[0].ID)
	assert.Empty(t, result.MatchedFacts, "the fact stays unclaimed for orphan collection")
}

func TestMatcher_Match_FiltersByFeature(t *testing.T) {
	m := NewDefault()

	s := state("auth", criterion("auth-v1", "ac-1", "login form accepts email"))
	facts := []Fact{
		{FeatureKey: "billing", Description: "login form accepts email", Location: "billing.go:1"},
		{FeatureKey: "auth", Description: "login form accepts email", Location: "auth.go:1"},
	}

	result := m.Match(s, facts)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, 1, result.Pairs[0].FactIndex, "the billing fact is invisible to auth")
}

func TestMatcher_Match_TieBreaksOnLocation(t *testing.T) {
	m := NewDefault()

	s := state("auth", criterion("auth-v1", "ac-1", "login form accepts email"))
	facts := []Fact{
		{FeatureKey: "auth", Description: "login form accepts email", Location: "pkg/z/login.go:10"},
		{FeatureKey: "auth", Description: "login form accepts email", Location: "pkg/a/login.go:10"},
	}

	result := m.Match(s, facts)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, 1, result.Pairs[0].FactIndex, "earliest location in lexical order wins")

	// Same outcome with the facts presented in the opposite order.
	reversed := []Fact{facts[1], facts[0]}
	result = m.Match(s, reversed)
	require.Len(t, result.Pairs, 1)
	assert.Equal(t, 0, result.Pairs[0].FactIndex)
}

func TestMatcher_Match_OneFactCoversSeveralCriteria(t *testing.T) {
	m := NewDefault()

	s := state("auth",
		criterion("auth-v1", "ac-1", "password reset sends an email link"),
		criterion("auth-v1", "ac-2", "password reset link expires"),
	)
	facts := []Fact{
		{FeatureKey: "auth", Description: "password reset link sent by email expires", Location: "reset.go:5"},
	}

	result := m.Match(s, facts)
	require.Len(t, result.Pairs, 2)
	assert.Empty(t, result.Unmatched)
	assert.Len(t, result.MatchedFacts, 1)
}

func TestMatcher_Match_ThresholdIsConfigurable(t *testing.T) {
	strict := MustNew(Config{Threshold: 0.9}, nil)

	s := state("dashboard", criterion("dash-v1", "b1", "show stats cards"))
	facts := []Fact{
		{FeatureKey: "dashboard", Description: "dashboard renders stats cards with live counts", Location: "web/dash.go:12"},
	}

	result := strict.Match(s, facts)
	assert.Empty(t, result.Pairs)
	assert.Len(t, result.Unmatched, 1)
}

func TestMatcher_Match_EmptyState(t *testing.T) {
	m := NewDefault()

	result := m.Match(state("auth"), []Fact{
		{FeatureKey: "auth", Description: "anything", Location: "x.go:1"},
	})
	assert.Empty(t, result.Pairs)
	assert.Empty(t, result.Unmatched)
	assert.Empty(t, result.MatchedFacts)
}
