package audit

// Namespace is the base IRI prefix for audit vocabulary terms.
const Namespace = "https://semaudit.dev/ontology/audit/"

// EntityNamespace is the base IRI for audit entity instances.
const EntityNamespace = "https://semaudit.dev/entity/audit/"

// Class IRIs define the types of audit entities.
const (
	// ClassRun represents one audit over a requirement corpus.
	// Extends: prov:Activity
	ClassRun = Namespace + "AuditRun"

	// ClassFinding represents one categorized divergence between the
	// canonical requirement state and observed behavior.
	// Extends: cco:DescriptiveInformationContentEntity
	ClassFinding = Namespace + "Finding"
)

// Object Property IRIs define relationships between audit entities.
const (
	// PropFromRun links a finding to the run that produced it.
	// Domain: ClassFinding, Range: ClassRun
	PropFromRun = Namespace + "fromRun"
)
