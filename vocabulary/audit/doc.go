// Package audit provides vocabulary predicates for audit entities.
//
// Audit runs capture one pass of requirement resolution and gap detection;
// findings capture each divergence between canonical requirements and
// observed behavior. Both publish to the knowledge graph as triples.
//
// Import this package to auto-register predicates:
//
//	import _ "github.com/c360studio/semaudit/vocabulary/audit"
package audit
