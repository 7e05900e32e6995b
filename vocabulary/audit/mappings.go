package audit

import (
	"github.com/c360studio/semstreams/vocabulary"
	"github.com/c360studio/semstreams/vocabulary/bfo"
	"github.com/c360studio/semstreams/vocabulary/cco"
)

// EntityType represents the kind of an audit entity for mapping purposes.
type EntityType string

const (
	// EntityTypeRun is the entity type for audit runs.
	EntityTypeRun EntityType = "run"
	// EntityTypeFinding is the entity type for audit findings.
	EntityTypeFinding EntityType = "finding"
)

// BFOClassMap maps entity types to BFO class IRIs.
// Use this for BFO profile RDF export.
var BFOClassMap = map[EntityType]string{
	// A run unfolds in time
	EntityTypeRun: bfo.Process,

	// A finding is an information pattern
	EntityTypeFinding: bfo.GenericallyDependentContinuant,
}

// CCOClassMap maps entity types to CCO class IRIs.
// Use this for CCO profile RDF export.
var CCOClassMap = map[EntityType]string{
	EntityTypeRun:     cco.ActOfArtifactProcessing,
	EntityTypeFinding: cco.InformationContentEntity,
}

// PROVClassMap maps entity types to PROV-O class IRIs.
// Use this for minimal and all profile RDF exports.
var PROVClassMap = map[EntityType]string{
	EntityTypeRun:     vocabulary.ProvActivity,
	EntityTypeFinding: vocabulary.ProvEntity,
}

// AuditClassMap maps entity types to audit ontology class IRIs.
// Use this for all profile RDF exports.
var AuditClassMap = map[EntityType]string{
	EntityTypeRun:     ClassRun,
	EntityTypeFinding: ClassFinding,
}

// PredicateIRIMap maps internal predicates to export IRIs. Predicates with
// a standard ontology term translate to it; the rest keep their audit
// ontology IRIs.
var PredicateIRIMap = map[string]string{
	// Run predicates
	RunStatus:        Namespace + "runStatus",
	RunStartedAt:     vocabulary.ProvStartedAtTime,
	RunCompletedAt:   vocabulary.ProvEndedAtTime,
	RunDocuments:     Namespace + "documents",
	RunFacts:         Namespace + "facts",
	RunFeatures:      Namespace + "features",
	RunFailedFeature: Namespace + "failedFeature",

	// Severity counts
	RunCritical:  Namespace + "criticalCount",
	RunHigh:      Namespace + "highCount",
	RunMedium:    Namespace + "mediumCount",
	RunLow:       Namespace + "lowCount",
	RunSatisfied: Namespace + "satisfiedCount",

	// Finding predicates
	FindingCategory:  Namespace + "category",
	FindingSeverity:  Namespace + "severity",
	FindingFeature:   Namespace + "feature",
	FindingDetail:    "http://purl.org/dc/terms/description",
	FindingCriterion: Namespace + "criterion",
	FindingDocument:  vocabulary.DcSource,
	FindingLocation:  Namespace + "location",
	FindingScore:     Namespace + "score",
	FindingSecurity:  Namespace + "security",

	// Relationship predicates
	FindingRun: vocabulary.ProvWasGeneratedBy,
}

// GetTypesForEntity returns all type IRIs for a given entity type and profile.
// Profile determines which ontology types are included:
//   - "minimal": PROV-O + audit types
//   - "bfo": BFO + PROV-O + audit types
//   - "cco": CCO + BFO + PROV-O + audit types
func GetTypesForEntity(entityType EntityType, profile string) []string {
	types := make([]string, 0, 4)

	// Always include the audit ontology type
	if class, ok := AuditClassMap[entityType]; ok {
		types = append(types, class)
	}

	// Always include the PROV-O type
	if class, ok := PROVClassMap[entityType]; ok {
		types = append(types, class)
	}

	// Include BFO type for bfo and cco profiles
	if profile == "bfo" || profile == "cco" {
		if class, ok := BFOClassMap[entityType]; ok {
			types = append(types, class)
		}
	}

	// Include CCO type for cco profile
	if profile == "cco" {
		if class, ok := CCOClassMap[entityType]; ok {
			types = append(types, class)
		}
	}

	return types
}

// GetPredicateIRI returns the export IRI for a predicate, if mapped.
// Unmapped predicates fall back to the audit namespace.
func GetPredicateIRI(predicate string) string {
	if iri, ok := PredicateIRIMap[predicate]; ok {
		return iri
	}
	return Namespace + predicate
}
