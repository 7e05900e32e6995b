package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
)

func document(id string, seq int64, status requirement.Status, feature string, criteria ...requirement.Criterion) requirement.Document {
	return requirement.Document{
		ID:             id,
		SequenceNumber: seq,
		Status:         status,
		FeatureKey:     feature,
		Criteria:       criteria,
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MatchThreshold = 1.2
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.SatisfiedThreshold = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.Workers = -1
	assert.Error(t, bad.Validate())
}

func TestEngine_BuildCanonicalState(t *testing.T) {
	e := NewDefault()

	docs := []requirement.Document{
		document("auth-v1", 1, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a1", Text: "login with email"}),
		document("dash-v1", 2, requirement.StatusDraft, "dashboard",
			requirement.Criterion{ID: "b1", Text: "show stats cards"}),
	}

	res, err := e.BuildCanonicalState(docs)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	require.Len(t, res.States, 2)

	auth := res.States["auth"]
	require.NotNil(t, auth)
	require.Len(t, auth.Criteria, 1)
	assert.Equal(t, "login with email", auth.Criteria[0].Text)
	assert.False(t, auth.Unratified)

	dash := res.States["dashboard"]
	require.NotNil(t, dash)
	assert.True(t, dash.Unratified, "draft-only chain is unratified")
}

func TestEngine_BuildCanonicalState_CorpusRejection(t *testing.T) {
	e := NewDefault()

	docs := []requirement.Document{
		document("auth-v1", 7, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a1", Text: "x"}),
		document("dash-v1", 7, requirement.StatusDone, "dashboard",
			requirement.Criterion{ID: "b1", Text: "y"}),
	}

	res, err := e.BuildCanonicalState(docs)
	assert.Nil(t, res)
	require.Error(t, err)

	var verr *requirement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestEngine_BuildCanonicalState_FailureIsolation(t *testing.T) {
	e := NewDefault()

	docs := []requirement.Document{
		document("auth-v1", 1, "proposed", "auth",
			requirement.Criterion{ID: "a1", Text: "x"}),
		document("dash-v1", 2, requirement.StatusDone, "dashboard",
			requirement.Criterion{ID: "b1", Text: "show stats cards"}),
		document("bill-v1", 3, requirement.StatusDone, "billing",
			requirement.Criterion{ID: "c1", Text: "charge once",
				Supersedes: &requirement.CriterionRef{DocumentID: "dash-v1", CriterionID: "b1"}}),
	}

	res, err := e.BuildCanonicalState(docs)
	require.NoError(t, err)

	// auth failed validation; billing failed resolution with a dangling
	// reference into dashboard's chain; dashboard is untouched.
	require.Len(t, res.Failures, 2)

	var verr *requirement.ValidationError
	assert.ErrorAs(t, res.Failures["auth"], &verr)

	var derr *requirement.DanglingReferenceError
	assert.ErrorAs(t, res.Failures["billing"], &derr)

	require.Len(t, res.States, 1)
	assert.NotNil(t, res.States["dashboard"])
}

func TestEngine_Run_ScenarioRemovedCriterion(t *testing.T) {
	e := NewDefault()

	docs := []requirement.Document{
		document("auth-v1", 1, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a1", Text: "login with email"}),
		document("auth-v2", 2, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a2", Text: "login with phone",
				Removes: &requirement.CriterionRef{DocumentID: "auth-v1", CriterionID: "a1"}}),
	}
	facts := []evidence.Fact{
		{FeatureKey: "auth", Description: "login form accepts email", Location: "internal/auth/login.go:42"},
	}

	run, err := e.Run(docs, facts)
	require.NoError(t, err)
	require.Len(t, run.Findings, 2)

	missing := run.Findings[0]
	assert.Equal(t, GapMissing, missing.Category)
	assert.Equal(t, SeverityCritical, missing.Severity, "done-sourced criterion missing is critical")
	require.NotNil(t, missing.Criterion)
	assert.Equal(t, "login with phone", missing.Criterion.Text)

	extra := run.Findings[1]
	assert.Equal(t, GapExtra, extra.Category)
	assert.Equal(t, SeverityLow, extra.Severity)
	require.NotNil(t, extra.Fact)
	assert.Equal(t, "login form accepts email", extra.Fact.Description)
}

func TestEngine_Run_ScenarioSatisfied(t *testing.T) {
	e := NewDefault()

	docs := []requirement.Document{
		document("dash-v1", 1, requirement.StatusDone, "dashboard",
			requirement.Criterion{ID: "b1", Text: "show stats cards"}),
	}
	facts := []evidence.Fact{
		{FeatureKey: "dashboard", Description: "dashboard renders stats cards with live counts", Location: "web/dash.go:12"},
	}

	run, err := e.Run(docs, facts)
	require.NoError(t, err)
	require.Len(t, run.Findings, 1)

	finding := run.Findings[0]
	assert.Equal(t, GapSatisfied, finding.Category)
	assert.Equal(t, SeverityNone, finding.Severity)

	// Linked by similarity, not exact text, so the run is flagged.
	require.Len(t, run.Warnings, 1)
	assert.Equal(t, WarnEvidenceMatchingDegraded, run.Warnings[0].Code)
	assert.Equal(t, "dashboard", run.Warnings[0].FeatureKey)
}

func TestEngine_Run_SuppressesSatisfiedOnRequest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeSatisfied = false
	e := MustNew(cfg)

	docs := []requirement.Document{
		document("dash-v1", 1, requirement.StatusDone, "dashboard",
			requirement.Criterion{ID: "b1", Text: "show stats cards"}),
	}
	facts := []evidence.Fact{
		{FeatureKey: "dashboard", Description: "dashboard renders stats cards with live counts", Location: "web/dash.go:12"},
	}

	run, err := e.Run(docs, facts)
	require.NoError(t, err)
	assert.Empty(t, run.Findings)
}

func TestEngine_DetectGaps_SortsBySeverityThenFeature(t *testing.T) {
	e := NewDefault()

	docs := []requirement.Document{
		// zebra's criterion will be missing at critical severity.
		document("zeb-v1", 1, requirement.StatusDone, "zebra",
			requirement.Criterion{ID: "z1", Text: "archive closed accounts nightly"}),
		// alpha's criterion will be missing at high severity.
		document("alp-v1", 2, requirement.StatusApproved, "alpha",
			requirement.Criterion{ID: "a1", Text: "export ledger reports weekly"}),
		// beta's criterion will be missing at high severity too.
		document("bet-v1", 3, requirement.StatusApproved, "beta",
			requirement.Criterion{ID: "b1", Text: "rotate signing keys monthly"}),
	}

	res, err := e.BuildCanonicalState(docs)
	require.NoError(t, err)

	det := e.DetectGaps(res.States, nil)
	require.Len(t, det.Findings, 3)

	assert.Equal(t, "zebra", det.Findings[0].FeatureKey, "critical sorts before high regardless of key")
	assert.Equal(t, "alpha", det.Findings[1].FeatureKey)
	assert.Equal(t, "beta", det.Findings[2].FeatureKey)
}

func TestEngine_DetectGaps_OrphanForUnknownFeature(t *testing.T) {
	e := NewDefault()

	res, err := e.BuildCanonicalState([]requirement.Document{
		document("auth-v1", 1, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a1", Text: "login with email"}),
	})
	require.NoError(t, err)

	facts := []evidence.Fact{
		{FeatureKey: "auth", Description: "login with email", Location: "login.go:1"},
		{FeatureKey: "ghost", Description: "emits telemetry beacons", Location: "beacon.go:9"},
	}

	det := e.DetectGaps(res.States, facts)

	var extras []Finding
	for _, f := range det.Findings {
		if f.Category == GapExtra {
			extras = append(extras, f)
		}
	}
	require.Len(t, extras, 1)
	assert.Equal(t, "ghost", extras[0].FeatureKey)
}

func TestEngine_Run_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 4
	e := MustNew(cfg)

	docs := []requirement.Document{
		document("auth-v1", 1, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a1", Text: "login with email"},
			requirement.Criterion{ID: "a2", Text: "session expires after 30 minutes"}),
		document("auth-v2", 2, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a1", Text: "login with phone",
				Supersedes: &requirement.CriterionRef{DocumentID: "auth-v1", CriterionID: "a1"}}),
		document("dash-v1", 3, requirement.StatusApproved, "dashboard",
			requirement.Criterion{ID: "b1", Text: "show stats cards"}),
		document("bill-v1", 4, requirement.StatusDraft, "billing",
			requirement.Criterion{ID: "c1", Text: "invoices are emailed monthly"}),
	}
	facts := []evidence.Fact{
		{FeatureKey: "auth", Description: "session expires after 30 minutes", Location: "session.go:10"},
		{FeatureKey: "dashboard", Description: "dashboard renders stats cards with live counts", Location: "dash.go:12"},
		{FeatureKey: "billing", Description: "invoices download as pdf", Location: "invoice.go:3"},
	}

	first, err := e.Run(docs, facts)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first.Findings)
	require.NoError(t, err)

	for range 20 {
		again, err := e.Run(docs, facts)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again.Findings)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON))
	}
}
