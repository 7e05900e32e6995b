package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/c360studio/semaudit/audit"
)

func TestEntityID(t *testing.T) {
	t.Run("NewEntityID generates valid ID", func(t *testing.T) {
		id := NewEntityID(EntityTypeRun)
		if id.Type != EntityTypeRun {
			t.Errorf("expected type %s, got %s", EntityTypeRun, id.Type)
		}
		if id.ID == "" {
			t.Error("expected non-empty ID")
		}
	})

	t.Run("String returns correct format", func(t *testing.T) {
		id := EntityID{Type: EntityTypeRun, ID: "abc123"}
		expected := "run:abc123"
		if id.String() != expected {
			t.Errorf("expected %s, got %s", expected, id.String())
		}
	})

	t.Run("ParseEntityID parses valid ID", func(t *testing.T) {
		id, err := ParseEntityID("run:abc123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id.Type != EntityTypeRun {
			t.Errorf("expected type %s, got %s", EntityTypeRun, id.Type)
		}
		if id.ID != "abc123" {
			t.Errorf("expected ID abc123, got %s", id.ID)
		}
	})

	t.Run("ParseEntityID rejects invalid format", func(t *testing.T) {
		invalidIDs := []string{
			"invalid",
			"no-colon",
			"",
			"unknown:123",
			"task:123",
		}

		for _, input := range invalidIDs {
			_, err := ParseEntityID(input)
			if err == nil {
				t.Errorf("expected error for %q, got nil", input)
			}
		}
	})

	t.Run("Round trip ID conversion", func(t *testing.T) {
		original := NewEntityID(EntityTypeRun)
		str := original.String()
		parsed, err := ParseEntityID(str)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if parsed.Type != original.Type {
			t.Errorf("type mismatch: expected %s, got %s", original.Type, parsed.Type)
		}
		if parsed.ID != original.ID {
			t.Errorf("ID mismatch: expected %s, got %s", original.ID, parsed.ID)
		}
	})
}

func TestRunStatus(t *testing.T) {
	t.Run("Valid status values", func(t *testing.T) {
		statuses := []RunStatus{
			RunStatusRunning,
			RunStatusComplete,
			RunStatusFailed,
		}

		for _, s := range statuses {
			if s == "" {
				t.Errorf("empty status value")
			}
		}
	})
}

func TestAuditRun(t *testing.T) {
	t.Run("JSON round trip", func(t *testing.T) {
		started := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
		completed := started.Add(2 * time.Second)
		run := AuditRun{
			ID:          "run:abc123",
			Status:      RunStatusComplete,
			StartedAt:   started,
			CompletedAt: &completed,
			Documents:   4,
			Facts:       17,
			Summary:     audit.Summary{High: 1, Satisfied: 3, Features: 2},
			Findings: []audit.Finding{
				{
					Category:   audit.GapMissing,
					Severity:   audit.SeverityHigh,
					FeatureKey: "login",
					Detail:     "no evidence found",
				},
			},
		}

		data, err := json.Marshal(run)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded AuditRun
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if decoded.ID != run.ID {
			t.Errorf("ID mismatch: expected %s, got %s", run.ID, decoded.ID)
		}
		if decoded.Status != RunStatusComplete {
			t.Errorf("unexpected status: %s", decoded.Status)
		}
		if decoded.CompletedAt == nil || !decoded.CompletedAt.Equal(completed) {
			t.Errorf("unexpected completion time: %v", decoded.CompletedAt)
		}
		if decoded.Summary.High != 1 {
			t.Errorf("expected 1 high finding, got %d", decoded.Summary.High)
		}
		if len(decoded.Findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(decoded.Findings))
		}
		if decoded.Findings[0].FeatureKey != "login" {
			t.Errorf("unexpected feature key: %s", decoded.Findings[0].FeatureKey)
		}
	})

	t.Run("Run with error", func(t *testing.T) {
		run := AuditRun{
			ID:     "run:xyz",
			Status: RunStatusFailed,
			Error:  "corpus validation failed",
		}

		if run.Status != RunStatusFailed {
			t.Errorf("unexpected status: %s", run.Status)
		}
		if run.Error != "corpus validation failed" {
			t.Errorf("unexpected error: %s", run.Error)
		}
	})
}

func TestRunFromReport(t *testing.T) {
	t.Run("Flattens feature findings in order", func(t *testing.T) {
		report := &audit.Report{
			Summary: audit.Summary{Critical: 1, Low: 1, Features: 2, Failed: 1},
			Features: []audit.FeatureReport{
				{
					FeatureKey: "login",
					Findings: []audit.Finding{
						{Category: audit.GapMissing, Severity: audit.SeverityCritical, FeatureKey: "login"},
					},
				},
				{
					FeatureKey: "search",
					Findings: []audit.Finding{
						{Category: audit.GapExtra, Severity: audit.SeverityLow, FeatureKey: "search"},
					},
				},
			},
			Failures: []audit.FeatureFailure{
				{FeatureKey: "billing", Error: "dangling reference"},
			},
		}

		run := RunFromReport(report, 5, 12)

		if run.Status != RunStatusComplete {
			t.Errorf("unexpected status: %s", run.Status)
		}
		if run.Documents != 5 || run.Facts != 12 {
			t.Errorf("unexpected input counts: %d documents, %d facts", run.Documents, run.Facts)
		}
		if run.Summary.Critical != 1 {
			t.Errorf("expected 1 critical, got %d", run.Summary.Critical)
		}
		if len(run.Findings) != 2 {
			t.Fatalf("expected 2 findings, got %d", len(run.Findings))
		}
		if run.Findings[0].FeatureKey != "login" || run.Findings[1].FeatureKey != "search" {
			t.Errorf("findings out of order: %s, %s", run.Findings[0].FeatureKey, run.Findings[1].FeatureKey)
		}
		if len(run.Failures) != 1 {
			t.Fatalf("expected 1 failure, got %d", len(run.Failures))
		}
		if run.Failures[0].FeatureKey != "billing" {
			t.Errorf("unexpected failure feature: %s", run.Failures[0].FeatureKey)
		}
	})
}

func TestBucketNames(t *testing.T) {
	t.Run("Bucket names are set", func(t *testing.T) {
		if BucketRuns != "SEMAUDIT_RUNS" {
			t.Errorf("unexpected runs bucket: %s", BucketRuns)
		}
	})
}
