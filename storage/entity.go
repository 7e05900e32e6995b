// Package storage provides audit run storage for semaudit using NATS KV.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semaudit/audit"
)

// EntityType represents the type of entity stored in KV.
type EntityType string

const (
	EntityTypeRun EntityType = "run"
)

// Bucket names for each entity type.
const (
	BucketRuns = "SEMAUDIT_RUNS"
)

// EntityID represents a typed entity identifier.
type EntityID struct {
	Type EntityType
	ID   string
}

// String returns the string representation of the entity ID.
func (e EntityID) String() string {
	return fmt.Sprintf("%s:%s", e.Type, e.ID)
}

// ParseEntityID parses an entity ID string into its components.
func ParseEntityID(s string) (EntityID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return EntityID{}, fmt.Errorf("invalid entity ID format: %s", s)
	}
	entityType := EntityType(parts[0])
	switch entityType {
	case EntityTypeRun:
		return EntityID{Type: entityType, ID: parts[1]}, nil
	default:
		return EntityID{}, fmt.Errorf("unknown entity type: %s", parts[0])
	}
}

// NewEntityID generates a new unique entity ID for the given type.
func NewEntityID(t EntityType) EntityID {
	return EntityID{
		Type: t,
		ID:   uuid.New().String(),
	}
}

// RunStatus represents the status of an audit run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// AuditRun records one audit over a corpus: its inputs by count, the
// severity summary, and the findings and chain failures it produced.
type AuditRun struct {
	ID          string                 `json:"id"`
	Status      RunStatus              `json:"status"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Documents   int                    `json:"documents"`
	Facts       int                    `json:"facts"`
	Summary     audit.Summary          `json:"summary"`
	Findings    []audit.Finding        `json:"findings,omitempty"`
	Failures    []audit.FeatureFailure `json:"failures,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// RunFromReport builds a completed run record from a rendered report.
func RunFromReport(report *audit.Report, documents, facts int) *AuditRun {
	run := &AuditRun{
		Status:    RunStatusComplete,
		Documents: documents,
		Facts:     facts,
		Summary:   report.Summary,
		Failures:  report.Failures,
	}
	for _, feature := range report.Features {
		run.Findings = append(run.Findings, feature.Findings...)
	}
	return run
}

// Store provides audit run storage backed by NATS KV.
type Store struct {
	runs jetstream.KeyValue
}

// NewStore creates a new Store with the given JetStream context.
// It creates the necessary KV buckets if they don't exist.
func NewStore(ctx context.Context, js jetstream.JetStream) (*Store, error) {
	runs, err := getOrCreateBucket(ctx, js, BucketRuns)
	if err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return &Store{runs: runs}, nil
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semaudit %s storage", strings.ToLower(name)),
		History:     5, // Keep last 5 revisions
	})
}

// CreateRun stores a new run and returns its ID. A run without a status
// starts as running; a run without a start time starts now.
func (s *Store) CreateRun(ctx context.Context, run *AuditRun) (EntityID, error) {
	id := NewEntityID(EntityTypeRun)
	run.ID = id.String()
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return EntityID{}, fmt.Errorf("marshal run: %w", err)
	}

	if _, err := s.runs.Create(ctx, id.ID, data); err != nil {
		return EntityID{}, fmt.Errorf("store run: %w", err)
	}

	return id, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id EntityID) (*AuditRun, error) {
	if id.Type != EntityTypeRun {
		return nil, fmt.Errorf("invalid entity type: expected run, got %s", id.Type)
	}

	entry, err := s.runs.Get(ctx, id.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	var run AuditRun
	if err := json.Unmarshal(entry.Value(), &run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}

	return &run, nil
}

// UpdateRun updates an existing run.
func (s *Store) UpdateRun(ctx context.Context, run *AuditRun) error {
	id, err := ParseEntityID(run.ID)
	if err != nil {
		return fmt.Errorf("parse run ID: %w", err)
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	if _, err := s.runs.Put(ctx, id.ID, data); err != nil {
		return fmt.Errorf("update run: %w", err)
	}

	return nil
}

// CompleteRun marks a run complete and attaches its outcome.
func (s *Store) CompleteRun(ctx context.Context, id EntityID, summary audit.Summary, findings []audit.Finding, failures []audit.FeatureFailure) error {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	run.Status = RunStatusComplete
	run.CompletedAt = &now
	run.Summary = summary
	run.Findings = findings
	run.Failures = failures

	return s.UpdateRun(ctx, run)
}

// FailRun marks a run failed with the given error.
func (s *Store) FailRun(ctx context.Context, id EntityID, runErr error) error {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	run.Status = RunStatusFailed
	run.CompletedAt = &now
	run.Error = runErr.Error()

	return s.UpdateRun(ctx, run)
}

// DeleteRun removes a run.
func (s *Store) DeleteRun(ctx context.Context, id EntityID) error {
	if id.Type != EntityTypeRun {
		return fmt.Errorf("invalid entity type: expected run, got %s", id.Type)
	}

	if err := s.runs.Delete(ctx, id.ID); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete run: %w", err)
	}

	return nil
}

// ListRuns returns all runs, most recently started first.
func (s *Store) ListRuns(ctx context.Context) ([]*AuditRun, error) {
	keys, err := s.runs.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list run keys: %w", err)
	}

	runs := make([]*AuditRun, 0, len(keys))
	for _, key := range keys {
		entry, err := s.runs.Get(ctx, key)
		if err != nil {
			continue // Skip entries that fail to load
		}
		var run AuditRun
		if err := json.Unmarshal(entry.Value(), &run); err != nil {
			continue
		}
		runs = append(runs, &run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "key not found")
}
