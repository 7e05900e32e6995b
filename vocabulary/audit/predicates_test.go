package audit

import (
	"testing"

	"github.com/c360studio/semstreams/vocabulary"
)

func TestPredicatesRegistered(t *testing.T) {
	// Run predicates
	runPredicates := []string{
		RunStatus,
		RunStartedAt,
		RunCompletedAt,
		RunDocuments,
		RunFacts,
		RunFeatures,
		RunFailedFeature,
		RunCritical,
		RunHigh,
		RunMedium,
		RunLow,
		RunSatisfied,
	}

	for _, pred := range runPredicates {
		t.Run(pred, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(pred)
			if meta.Description == "" {
				t.Errorf("predicate %s not registered or missing description", pred)
			}
		})
	}

	// Finding predicates
	findingPredicates := []string{
		FindingCategory,
		FindingSeverity,
		FindingFeature,
		FindingDetail,
		FindingCriterion,
		FindingDocument,
		FindingLocation,
		FindingScore,
		FindingSecurity,
	}

	for _, pred := range findingPredicates {
		t.Run(pred, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(pred)
			if meta.Description == "" {
				t.Errorf("predicate %s not registered or missing description", pred)
			}
		})
	}

	// Relationship predicates
	relPredicates := []string{
		FindingRun,
	}

	for _, pred := range relPredicates {
		t.Run(pred, func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(pred)
			if meta.Description == "" {
				t.Errorf("predicate %s not registered or missing description", pred)
			}
		})
	}
}

func TestPredicateNaming(t *testing.T) {
	t.Run("Namespace constants", func(t *testing.T) {
		if Namespace == "" || EntityNamespace == "" {
			t.Fatal("expected non-empty namespaces")
		}
		if ClassRun != Namespace+"AuditRun" {
			t.Errorf("unexpected run class IRI: %s", ClassRun)
		}
		if ClassFinding != Namespace+"Finding" {
			t.Errorf("unexpected finding class IRI: %s", ClassFinding)
		}
	})
}
