package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
)

func auditRun(t *testing.T) *RunResult {
	t.Helper()
	e := NewDefault()

	docs := []requirement.Document{
		document("auth-v1", 1, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a1", Text: "login with email"}),
		document("auth-v2", 2, requirement.StatusDone, "auth",
			requirement.Criterion{ID: "a2", Text: "login with phone",
				Removes: &requirement.CriterionRef{DocumentID: "auth-v1", CriterionID: "a1"}}),
		document("dash-v1", 3, requirement.StatusDone, "dashboard",
			requirement.Criterion{ID: "b1", Text: "show stats cards"}),
		document("bill-v1", 4, "proposed", "billing",
			requirement.Criterion{ID: "c1", Text: "x"}),
	}
	facts := []evidence.Fact{
		{FeatureKey: "auth", Description: "login form accepts email", Location: "internal/auth/login.go:42"},
		{FeatureKey: "dashboard", Description: "dashboard renders stats cards with live counts", Location: "web/dash.go:12"},
	}

	run, err := e.Run(docs, facts)
	require.NoError(t, err)
	return run
}

func TestNewReport(t *testing.T) {
	run := auditRun(t)
	generated := time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)

	report := NewReport(run, generated)

	assert.Equal(t, generated, report.GeneratedAt)
	assert.Equal(t, 1, report.Summary.Critical, "missing phone login on a done document")
	assert.Equal(t, 0, report.Summary.High)
	assert.Equal(t, 0, report.Summary.Medium)
	assert.Equal(t, 1, report.Summary.Low, "email evidence has no criterion")
	assert.Equal(t, 1, report.Summary.Satisfied)
	assert.Equal(t, 2, report.Summary.Features)
	assert.Equal(t, 1, report.Summary.Failed)

	// Worst finding first: auth holds the critical.
	require.NotEmpty(t, report.Features)
	assert.Equal(t, "auth", report.Features[0].FeatureKey)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "billing", report.Failures[0].FeatureKey)
	assert.Contains(t, report.Failures[0].Error, "status")
}

func TestReport_RenderText(t *testing.T) {
	run := auditRun(t)
	report := NewReport(run, time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, report.RenderText(&buf))
	text := buf.String()

	assert.Contains(t, text, "# Requirement Audit")
	assert.Contains(t, text, "Generated: 2026-08-22T10:00:00Z")
	assert.Contains(t, text, "Critical: 1")
	assert.Contains(t, text, "## auth")
	assert.Contains(t, text, "[critical] missing")
	assert.Contains(t, text, `"login with phone"`)
	assert.Contains(t, text, "[low] extra")
	assert.Contains(t, text, "[ok] satisfied")
	assert.Contains(t, text, "## Failed chains")
	assert.Contains(t, text, "billing")
	assert.Contains(t, text, "## Warnings")
	assert.Contains(t, text, "added by auth-v2", "provenance history is attached")
}

func TestReport_RenderText_IsDeterministic(t *testing.T) {
	run := auditRun(t)
	generated := time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)

	var first bytes.Buffer
	require.NoError(t, NewReport(run, generated).RenderText(&first))

	for i := 0; i < 5; i++ {
		var again bytes.Buffer
		require.NoError(t, NewReport(run, generated).RenderText(&again))
		assert.Equal(t, first.String(), again.String())
	}
}

func TestReport_RenderJSON(t *testing.T) {
	run := auditRun(t)
	report := NewReport(run, time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, report.RenderJSON(&buf))

	var decoded struct {
		Summary struct {
			Critical  int `json:"critical"`
			Satisfied int `json:"satisfied"`
		} `json:"summary"`
		Features []struct {
			FeatureKey string `json:"feature_key"`
		} `json:"features"`
		Failures []struct {
			FeatureKey string `json:"feature_key"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, 1, decoded.Summary.Critical)
	assert.Equal(t, 1, decoded.Summary.Satisfied)
	require.NotEmpty(t, decoded.Features)
	assert.Equal(t, "auth", decoded.Features[0].FeatureKey)
	require.Len(t, decoded.Failures, 1)
	assert.Equal(t, "billing", decoded.Failures[0].FeatureKey)
}

func TestReport_RenderText_EmptyRun(t *testing.T) {
	e := NewDefault()
	run, err := e.Run(nil, nil)
	require.NoError(t, err)

	report := NewReport(run, time.Now())
	var buf bytes.Buffer
	require.NoError(t, report.RenderText(&buf))

	assert.True(t, strings.HasPrefix(buf.String(), "# Requirement Audit"))
	assert.NotContains(t, buf.String(), "## Failed chains")
}
