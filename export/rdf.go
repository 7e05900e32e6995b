// Package export renders audit runs and their findings as RDF aligned
// with the BFO, CCO and PROV-O ontologies.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/c360studio/semstreams/message"

	"github.com/c360studio/semaudit/graph"
	"github.com/c360studio/semaudit/storage"
	vocab "github.com/c360studio/semaudit/vocabulary/audit"
)

// Profile determines which ontology type assertions are included in the
// export.
type Profile string

const (
	// ProfileMinimal includes audit and PROV-O type assertions only.
	ProfileMinimal Profile = "minimal"

	// ProfileBFO includes BFO type assertions plus the minimal profile.
	ProfileBFO Profile = "bfo"

	// ProfileCCO includes CCO type assertions plus the BFO profile.
	ProfileCCO Profile = "cco"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// Entity is one exportable entity with its type assertion and triples.
type Entity struct {
	ID         string
	EntityType vocab.EntityType
	Triples    []message.Triple
}

// RDFExporter serializes audit entities to RDF under a profile.
type RDFExporter struct {
	profile  Profile
	entities []Entity
	prefixes map[string]string
}

// NewRDFExporter creates an exporter for the given profile.
func NewRDFExporter(profile Profile) *RDFExporter {
	return &RDFExporter{
		profile:  profile,
		entities: make([]Entity, 0),
		prefixes: defaultPrefixes(),
	}
}

// defaultPrefixes returns the standard namespace prefixes for RDF export.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs":   "http://www.w3.org/2000/01/rdf-schema#",
		"owl":    "http://www.w3.org/2002/07/owl#",
		"xsd":    "http://www.w3.org/2001/XMLSchema#",
		"dc":     "http://purl.org/dc/terms/",
		"skos":   "http://www.w3.org/2004/02/skos/core#",
		"prov":   "http://www.w3.org/ns/prov#",
		"bfo":    "http://purl.obolibrary.org/obo/",
		"cco":    "http://www.ontologyrepository.com/CommonCoreOntologies/",
		"audit":  vocab.Namespace,
		"entity": vocab.EntityNamespace,
	}
}

// AddEntity adds an entity to be exported.
func (e *RDFExporter) AddEntity(entity Entity) {
	e.entities = append(e.entities, entity)
}

// AddRun adds a run entity and one finding entity per finding, built with
// the same triples the knowledge-graph publisher emits.
func (e *RDFExporter) AddRun(run *storage.AuditRun) {
	now := time.Now()

	runID := run.ID
	if parsed, err := storage.ParseEntityID(run.ID); err == nil {
		runID = parsed.ID
	}
	runEntity := graph.RunEntityID(runID)

	e.AddEntity(Entity{
		ID:         runEntity,
		EntityType: vocab.EntityTypeRun,
		Triples:    graph.RunTriples(runEntity, run, now),
	})

	for n, finding := range run.Findings {
		findingEntity := graph.FindingEntityID(runID, n)
		e.AddEntity(Entity{
			ID:         findingEntity,
			EntityType: vocab.EntityTypeFinding,
			Triples:    graph.FindingTriples(findingEntity, runEntity, finding, now),
		})
	}
}

// Export serializes all entities to the specified format.
func (e *RDFExporter) Export(format Format) (string, error) {
	switch format {
	case FormatTurtle:
		return e.toTurtle(), nil
	case FormatNTriples:
		return e.toNTriples(), nil
	case FormatJSONLD:
		return e.toJSONLD()
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// toTurtle serializes to Turtle format.
func (e *RDFExporter) toTurtle() string {
	var sb strings.Builder

	// Prefixes in sorted order for stable output
	prefixKeys := make([]string, 0, len(e.prefixes))
	for k := range e.prefixes {
		prefixKeys = append(prefixKeys, k)
	}
	sort.Strings(prefixKeys)
	for _, prefix := range prefixKeys {
		sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, e.prefixes[prefix]))
	}
	sb.WriteString("\n")

	for _, entity := range e.entities {
		e.writeEntityTurtle(&sb, entity)
		sb.WriteString("\n")
	}

	return sb.String()
}

// writeEntityTurtle writes a single entity in Turtle format.
func (e *RDFExporter) writeEntityTurtle(sb *strings.Builder, entity Entity) {
	types := vocab.GetTypesForEntity(entity.EntityType, string(e.profile))
	if len(types) == 0 && len(entity.Triples) == 0 {
		return
	}

	sb.WriteString(fmt.Sprintf("<%s>\n", entityIDToIRI(entity.ID)))

	for i, typeIRI := range types {
		sb.WriteString(fmt.Sprintf("    a <%s>", typeIRI))
		if i < len(types)-1 || len(entity.Triples) > 0 {
			sb.WriteString(" ;\n")
		} else {
			sb.WriteString(" .\n")
		}
	}

	for i, triple := range entity.Triples {
		predicateIRI := vocab.GetPredicateIRI(triple.Predicate)
		sb.WriteString(fmt.Sprintf("    <%s> %s", predicateIRI, formatObject(triple.Object)))
		if i < len(entity.Triples)-1 {
			sb.WriteString(" ;\n")
		} else {
			sb.WriteString(" .\n")
		}
	}
}

// toNTriples serializes to N-Triples format.
func (e *RDFExporter) toNTriples() string {
	var sb strings.Builder

	rdfType := "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	for _, entity := range e.entities {
		iri := entityIDToIRI(entity.ID)

		for _, typeIRI := range vocab.GetTypesForEntity(entity.EntityType, string(e.profile)) {
			sb.WriteString(fmt.Sprintf("<%s> <%s> <%s> .\n", iri, rdfType, typeIRI))
		}

		for _, triple := range entity.Triples {
			predicateIRI := vocab.GetPredicateIRI(triple.Predicate)
			sb.WriteString(fmt.Sprintf("<%s> <%s> %s .\n", iri, predicateIRI, formatObjectNTriples(triple.Object)))
		}
	}

	return sb.String()
}

// toJSONLD serializes to JSON-LD format.
func (e *RDFExporter) toJSONLD() (string, error) {
	doc := jsonldDocument{
		Context: make(map[string]string, len(e.prefixes)),
		Graph:   make([]jsonldNode, 0, len(e.entities)),
	}
	for k, v := range e.prefixes {
		doc.Context[k] = v
	}

	for _, entity := range e.entities {
		doc.Graph = append(doc.Graph, e.buildJSONLDNode(entity))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JSON-LD: %w", err)
	}
	return string(data) + "\n", nil
}

// buildJSONLDNode converts one entity into a JSON-LD graph node. Repeated
// predicates collect into an array.
func (e *RDFExporter) buildJSONLDNode(entity Entity) jsonldNode {
	node := jsonldNode{
		ID:         entityIDToIRI(entity.ID),
		Types:      vocab.GetTypesForEntity(entity.EntityType, string(e.profile)),
		Properties: make(map[string]any),
	}

	for _, triple := range entity.Triples {
		predicateIRI := vocab.GetPredicateIRI(triple.Predicate)
		value := formatObjectJSONLD(triple.Object)

		existing, ok := node.Properties[predicateIRI]
		if !ok {
			node.Properties[predicateIRI] = value
			continue
		}
		if list, isList := existing.([]any); isList {
			node.Properties[predicateIRI] = append(list, value)
		} else {
			node.Properties[predicateIRI] = []any{existing, value}
		}
	}

	return node
}

// jsonldDocument is the top-level JSON-LD document structure.
type jsonldDocument struct {
	Context map[string]string `json:"@context"`
	Graph   []jsonldNode      `json:"@graph"`
}

// jsonldNode is one node in the JSON-LD graph.
type jsonldNode struct {
	ID         string
	Types      []string
	Properties map[string]any
}

// MarshalJSON flattens the node's properties beside @id and @type.
func (n jsonldNode) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(n.Properties)+2)
	m["@id"] = n.ID
	if len(n.Types) > 0 {
		m["@type"] = n.Types
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

// entityIDToIRI converts a dotted entity ID to an IRI.
// Example: "semaudit.local.audit.run.8f14e45f"
//
//	-> "https://semaudit.dev/entity/audit/run/8f14e45f"
func entityIDToIRI(entityID string) string {
	parts := strings.Split(entityID, ".")
	if len(parts) < 5 {
		return vocab.EntityNamespace + entityID
	}

	// Skip org (0), deployment (1), domain (2); keep type (3) and
	// instance (4+).
	entityType := parts[3]
	instance := strings.Join(parts[4:], "/")

	return fmt.Sprintf("%s%s/%s", vocab.EntityNamespace, entityType, instance)
}

// isEntityRef reports whether a string object looks like a dotted entity
// ID rather than a plain literal.
func isEntityRef(v string) bool {
	return strings.Contains(v, ".") && !strings.Contains(v, " ") && len(strings.Split(v, ".")) >= 4
}

// formatObject formats an object value for Turtle output.
func formatObject(obj any) string {
	switch v := obj.(type) {
	case string:
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return fmt.Sprintf("<%s>", v)
		}
		if isEntityRef(v) {
			return fmt.Sprintf("<%s>", entityIDToIRI(v))
		}
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return fmt.Sprintf("\"%s\"^^xsd:dateTime", v)
		}
		return fmt.Sprintf("\"%s\"", escapeString(v))
	case int, int32, int64:
		return fmt.Sprintf("\"%d\"^^xsd:integer", v)
	case float32, float64:
		return fmt.Sprintf("\"%f\"^^xsd:decimal", v)
	case bool:
		return fmt.Sprintf("\"%t\"^^xsd:boolean", v)
	default:
		return fmt.Sprintf("\"%v\"", v)
	}
}

// formatObjectNTriples formats an object value for N-Triples output.
func formatObjectNTriples(obj any) string {
	switch v := obj.(type) {
	case string:
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return fmt.Sprintf("<%s>", v)
		}
		if isEntityRef(v) {
			return fmt.Sprintf("<%s>", entityIDToIRI(v))
		}
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return fmt.Sprintf("\"%s\"^^<http://www.w3.org/2001/XMLSchema#dateTime>", v)
		}
		return fmt.Sprintf("\"%s\"", escapeString(v))
	case int, int32, int64:
		return fmt.Sprintf("\"%d\"^^<http://www.w3.org/2001/XMLSchema#integer>", v)
	case float32, float64:
		return fmt.Sprintf("\"%f\"^^<http://www.w3.org/2001/XMLSchema#decimal>", v)
	case bool:
		return fmt.Sprintf("\"%t\"^^<http://www.w3.org/2001/XMLSchema#boolean>", v)
	default:
		return fmt.Sprintf("\"%v\"", v)
	}
}

// formatObjectJSONLD converts an object value to its JSON-LD form.
func formatObjectJSONLD(obj any) any {
	switch v := obj.(type) {
	case string:
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return map[string]string{"@id": v}
		}
		if isEntityRef(v) {
			return map[string]string{"@id": entityIDToIRI(v)}
		}
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return map[string]string{"@value": v, "@type": "xsd:dateTime"}
		}
		return v
	default:
		return obj
	}
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
