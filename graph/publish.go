// Package graph publishes audit runs and findings to the knowledge graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/storage"
	vocab "github.com/c360studio/semaudit/vocabulary/audit"
)

// Subject for graph ingestion.
const GraphIngestSubject = "graph.ingest.entity"

// TripleSource tags every published triple with its producer.
const TripleSource = "semaudit.audit"

// PublishRun publishes a run record and its findings to the knowledge
// graph, one entity message per run and per finding. A nil NATS client
// skips publishing without error.
func PublishRun(ctx context.Context, nc *natsclient.Client, run *storage.AuditRun) error {
	if nc == nil {
		return nil // Skip publishing if no NATS client (graceful degradation)
	}

	now := time.Now()
	runID := run.ID
	if parsed, err := storage.ParseEntityID(run.ID); err == nil {
		runID = parsed.ID
	}
	runEntity := RunEntityID(runID)

	if err := publishEntity(ctx, nc, &EntityPayload{
		EntityID_:  runEntity,
		TripleData: RunTriples(runEntity, run, now),
		UpdatedAt:  now,
	}); err != nil {
		return fmt.Errorf("publish run entity: %w", err)
	}

	for n, finding := range run.Findings {
		findingEntity := FindingEntityID(runID, n)
		if err := publishEntity(ctx, nc, &EntityPayload{
			EntityID_:  findingEntity,
			TripleData: FindingTriples(findingEntity, runEntity, finding, now),
			UpdatedAt:  now,
		}); err != nil {
			return fmt.Errorf("publish finding entity %d: %w", n, err)
		}
	}

	return nil
}

// RunTriples builds the triples describing one audit run.
func RunTriples(entityID string, run *storage.AuditRun, now time.Time) []message.Triple {
	triples := []message.Triple{
		triple(entityID, vocab.RunStatus, string(run.Status), now),
		triple(entityID, vocab.RunStartedAt, run.StartedAt.Format(time.RFC3339), now),
		triple(entityID, vocab.RunDocuments, run.Documents, now),
		triple(entityID, vocab.RunFacts, run.Facts, now),
		triple(entityID, vocab.RunFeatures, run.Summary.Features, now),
		triple(entityID, vocab.RunCritical, run.Summary.Critical, now),
		triple(entityID, vocab.RunHigh, run.Summary.High, now),
		triple(entityID, vocab.RunMedium, run.Summary.Medium, now),
		triple(entityID, vocab.RunLow, run.Summary.Low, now),
		triple(entityID, vocab.RunSatisfied, run.Summary.Satisfied, now),
	}

	if run.CompletedAt != nil {
		triples = append(triples, triple(entityID, vocab.RunCompletedAt, run.CompletedAt.Format(time.RFC3339), now))
	}

	for _, failure := range run.Failures {
		triples = append(triples, triple(entityID, vocab.RunFailedFeature, failure.FeatureKey, now))
	}

	return triples
}

// FindingTriples builds the triples describing one finding, linked back to
// its run.
func FindingTriples(entityID, runEntity string, f audit.Finding, now time.Time) []message.Triple {
	triples := []message.Triple{
		triple(entityID, vocab.FindingCategory, string(f.Category), now),
		triple(entityID, vocab.FindingSeverity, string(f.Severity), now),
		triple(entityID, vocab.FindingFeature, f.FeatureKey, now),
		triple(entityID, vocab.FindingDetail, f.Detail, now),
		triple(entityID, vocab.FindingRun, runEntity, now),
	}

	if f.Criterion != nil {
		triples = append(triples,
			triple(entityID, vocab.FindingCriterion, f.Criterion.ID, now),
			triple(entityID, vocab.FindingDocument, f.Criterion.SourceDocumentID, now))
	}
	if f.Fact != nil && f.Fact.Location != "" {
		triples = append(triples, triple(entityID, vocab.FindingLocation, f.Fact.Location, now))
	}
	if f.Score > 0 {
		triples = append(triples, triple(entityID, vocab.FindingScore, f.Score, now))
	}
	if securityRelevant(f) {
		triples = append(triples, triple(entityID, vocab.FindingSecurity, true, now))
	}

	return triples
}

func securityRelevant(f audit.Finding) bool {
	if f.Criterion != nil && f.Criterion.SecurityRelevant {
		return true
	}
	return f.Fact != nil && f.Fact.SecurityRelevant
}

func triple(subject, predicate string, object any, now time.Time) message.Triple {
	return message.Triple{
		Subject:    subject,
		Predicate:  predicate,
		Object:     object,
		Source:     TripleSource,
		Timestamp:  now,
		Confidence: 1.0,
	}
}

func publishEntity(ctx context.Context, nc *natsclient.Client, payload *EntityPayload) error {
	if err := payload.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	return nc.PublishToStream(ctx, GraphIngestSubject, data)
}

// RunEntityID generates a consistent entity ID for an audit run.
// Format: semaudit.local.audit.run.<id>
func RunEntityID(id string) string {
	return fmt.Sprintf("semaudit.local.audit.run.%s", id)
}

// FindingEntityID generates a consistent entity ID for a finding.
// Format: semaudit.local.audit.finding.<runID>-<index>
func FindingEntityID(runID string, index int) string {
	return fmt.Sprintf("semaudit.local.audit.finding.%s-%d", runID, index)
}
