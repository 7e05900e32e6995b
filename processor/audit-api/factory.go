package auditapi

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the audit-api processor with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "audit-api",
		Factory:     NewComponent,
		Schema:      auditAPISchema,
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "audit",
		Description: "Request/reply service for auditing requirement corpora against observed evidence",
		Version:     "1.0.0",
	})
}
