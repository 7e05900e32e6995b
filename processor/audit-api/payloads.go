package auditapi

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/evidence"
	"github.com/c360studio/semaudit/requirement"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

// AuditRequest is the request payload for a gap audit.
type AuditRequest struct {
	// Documents are inline requirement documents to audit.
	// When present the corpus on disk is not consulted.
	Documents []requirement.Document `json:"documents,omitempty"`

	// Facts are inline observed-behavior facts. When present they replace
	// facts loaded from disk.
	Facts []evidence.Fact `json:"facts,omitempty"`

	// Root is a corpus directory to load, relative to the component's
	// base directory. Either Documents or Root may be set, not both.
	// An empty request audits the configured corpus root.
	Root string `json:"root,omitempty"`

	// IncludeSatisfied overrides the component default for keeping
	// satisfied criteria in the response.
	IncludeSatisfied *bool `json:"include_satisfied,omitempty"`
}

// AuditResponse is the response payload for a gap audit.
type AuditResponse struct {
	// Summary counts findings per severity across the run.
	Summary audit.Summary `json:"summary"`

	// Findings are the classified gaps, sorted by severity then feature.
	Findings []audit.Finding `json:"findings,omitempty"`

	// Failures lists feature chains that could not be resolved.
	Failures []audit.FeatureFailure `json:"failures,omitempty"`

	// Warnings are non-blocking notices such as unratified features.
	Warnings []audit.Warning `json:"warnings,omitempty"`

	// Documents and Facts count the audited corpus.
	Documents int `json:"documents"`
	Facts     int `json:"facts"`

	// RunID identifies the persisted run record, when persistence is on.
	RunID string `json:"run_id,omitempty"`

	// Error is set if the audit could not be performed.
	Error string `json:"error,omitempty"`
}

// FromReport converts an audit report to an AuditResponse.
func FromReport(report *audit.Report, documents, facts int) *AuditResponse {
	resp := &AuditResponse{
		Summary:   report.Summary,
		Failures:  report.Failures,
		Warnings:  report.Warnings,
		Documents: documents,
		Facts:     facts,
	}
	for _, feature := range report.Features {
		resp.Findings = append(resp.Findings, feature.Findings...)
	}
	return resp
}

// Schema returns the message type for AuditRequest.
func (p *AuditRequest) Schema() message.Type {
	return AuditRequestType
}

// Validate validates the AuditRequest.
func (p *AuditRequest) Validate() error {
	if len(p.Documents) > 0 && p.Root != "" {
		return fmt.Errorf("inline documents and root are mutually exclusive")
	}
	return nil
}

// MarshalJSON marshals the AuditRequest to JSON.
func (p *AuditRequest) MarshalJSON() ([]byte, error) {
	type Alias AuditRequest
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the AuditRequest from JSON.
func (p *AuditRequest) UnmarshalJSON(data []byte) error {
	type Alias AuditRequest
	return json.Unmarshal(data, (*Alias)(p))
}

// Schema returns the message type for AuditResponse.
func (p *AuditResponse) Schema() message.Type {
	return AuditResponseType
}

// Validate validates the AuditResponse.
func (p *AuditResponse) Validate() error {
	return nil
}

// MarshalJSON marshals the AuditResponse to JSON.
func (p *AuditResponse) MarshalJSON() ([]byte, error) {
	type Alias AuditResponse
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the AuditResponse from JSON.
func (p *AuditResponse) UnmarshalJSON(data []byte) error {
	type Alias AuditResponse
	return json.Unmarshal(data, (*Alias)(p))
}

// AuditRequestType is the message type for audit requests.
var AuditRequestType = message.Type{
	Domain:   "audit",
	Category: "gaps.request",
	Version:  "v1",
}

// AuditResponseType is the message type for audit responses.
var AuditResponseType = message.Type{
	Domain:   "audit",
	Category: "gaps.response",
	Version:  "v1",
}

func init() {
	// Register the audit request payload type
	if err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "audit",
		Category:    "gaps.request",
		Version:     "v1",
		Description: "Requirement gap audit request",
		Factory:     func() any { return &AuditRequest{} },
	}); err != nil {
		log.Printf("ERROR: failed to register AuditRequest: %v", err)
	}

	// Register the audit response payload type
	if err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "audit",
		Category:    "gaps.response",
		Version:     "v1",
		Description: "Requirement gap audit response",
		Factory:     func() any { return &AuditResponse{} },
	}); err != nil {
		log.Printf("ERROR: failed to register AuditResponse: %v", err)
	}
}
