package audit

import "github.com/c360studio/semstreams/vocabulary"

// Run predicates for audit run entities.
const (
	// RunStatus is the run lifecycle status.
	// Values: "running", "complete", "failed"
	RunStatus = "audit.run.status"

	// RunStartedAt is when the run started (RFC3339).
	RunStartedAt = "audit.run.started_at"

	// RunCompletedAt is when the run completed (RFC3339).
	RunCompletedAt = "audit.run.completed_at"

	// RunDocuments is the number of requirement documents audited.
	RunDocuments = "audit.run.documents"

	// RunFacts is the number of observed facts audited.
	RunFacts = "audit.run.facts"

	// RunFeatures is the number of feature chains that resolved.
	RunFeatures = "audit.run.features"

	// RunFailedFeature names a feature whose chain failed to resolve.
	// Repeated once per failed chain.
	RunFailedFeature = "audit.run.failed_feature"
)

// Severity count predicates, one per severity bucket of the run summary.
const (
	RunCritical  = "audit.run.critical"
	RunHigh      = "audit.run.high"
	RunMedium    = "audit.run.medium"
	RunLow       = "audit.run.low"
	RunSatisfied = "audit.run.satisfied"
)

// Finding predicates for individual findings.
const (
	// FindingCategory is the gap category.
	// Values: "missing", "different", "partial", "extra", "satisfied"
	FindingCategory = "audit.finding.category"

	// FindingSeverity is the classified severity.
	// Values: "critical", "high", "medium", "low", "none"
	FindingSeverity = "audit.finding.severity"

	// FindingFeature is the feature key the finding belongs to.
	FindingFeature = "audit.finding.feature"

	// FindingDetail states the divergence in one line.
	FindingDetail = "audit.finding.detail"

	// FindingCriterion is the criterion ID on the requirement side.
	FindingCriterion = "audit.finding.criterion"

	// FindingDocument is the ID of the document that sourced the criterion.
	FindingDocument = "audit.finding.document"

	// FindingLocation is the evidence location (path:line) on the
	// observed side.
	FindingLocation = "audit.finding.location"

	// FindingScore is the similarity score of the matched pair.
	FindingScore = "audit.finding.score"

	// FindingSecurity marks the finding as security relevant.
	FindingSecurity = "audit.finding.security"
)

// Relationship predicates linking audit entities.
const (
	// FindingRun links a finding to the run that produced it.
	// Domain: finding entity, Range: run entity
	FindingRun = "audit.rel.run"
)

func init() {
	// Register run predicates
	vocabulary.Register(RunStatus,
		vocabulary.WithDescription("Run lifecycle status: running, complete, failed"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"runStatus"))

	vocabulary.Register(RunStartedAt,
		vocabulary.WithDescription("When the run started (RFC3339)"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"startedAt"))

	vocabulary.Register(RunCompletedAt,
		vocabulary.WithDescription("When the run completed (RFC3339)"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"completedAt"))

	vocabulary.Register(RunDocuments,
		vocabulary.WithDescription("Number of requirement documents audited"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"documents"))

	vocabulary.Register(RunFacts,
		vocabulary.WithDescription("Number of observed facts audited"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"facts"))

	vocabulary.Register(RunFeatures,
		vocabulary.WithDescription("Number of feature chains that resolved"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"features"))

	vocabulary.Register(RunFailedFeature,
		vocabulary.WithDescription("Feature whose chain failed to resolve, repeated per failure"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"failedFeature"))

	// Register severity count predicates
	vocabulary.Register(RunCritical,
		vocabulary.WithDescription("Critical findings in the run"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"criticalCount"))

	vocabulary.Register(RunHigh,
		vocabulary.WithDescription("High findings in the run"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"highCount"))

	vocabulary.Register(RunMedium,
		vocabulary.WithDescription("Medium findings in the run"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"mediumCount"))

	vocabulary.Register(RunLow,
		vocabulary.WithDescription("Low findings in the run"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"lowCount"))

	vocabulary.Register(RunSatisfied,
		vocabulary.WithDescription("Satisfied criteria in the run"),
		vocabulary.WithDataType("integer"),
		vocabulary.WithIRI(Namespace+"satisfiedCount"))

	// Register finding predicates
	vocabulary.Register(FindingCategory,
		vocabulary.WithDescription("Gap category: missing, different, partial, extra, satisfied"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"category"))

	vocabulary.Register(FindingSeverity,
		vocabulary.WithDescription("Classified severity: critical, high, medium, low, none"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"severity"))

	vocabulary.Register(FindingFeature,
		vocabulary.WithDescription("Feature key the finding belongs to"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"feature"))

	vocabulary.Register(FindingDetail,
		vocabulary.WithDescription("One-line statement of the divergence"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"detail"))

	vocabulary.Register(FindingCriterion,
		vocabulary.WithDescription("Criterion ID on the requirement side"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"criterion"))

	vocabulary.Register(FindingDocument,
		vocabulary.WithDescription("Document that sourced the criterion"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"document"))

	vocabulary.Register(FindingLocation,
		vocabulary.WithDescription("Evidence location (path:line) on the observed side"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Namespace+"location"))

	vocabulary.Register(FindingScore,
		vocabulary.WithDescription("Similarity score of the matched pair"),
		vocabulary.WithDataType("float"),
		vocabulary.WithIRI(Namespace+"score"))

	vocabulary.Register(FindingSecurity,
		vocabulary.WithDescription("Marks the finding as security relevant"),
		vocabulary.WithDataType("boolean"),
		vocabulary.WithIRI(Namespace+"security"))

	// Register relationship predicates
	vocabulary.Register(FindingRun,
		vocabulary.WithDescription("Links finding to the run that produced it"),
		vocabulary.WithDataType("entity_id"),
		vocabulary.WithIRI(PropFromRun))
}
