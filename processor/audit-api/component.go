// Package auditapi provides a request/reply service for running requirement
// gap audits over NATS. Requests carry the corpus inline or name a directory
// under the configured root; responses carry the classified findings.
package auditapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/graph"
	"github.com/c360studio/semaudit/source/loader"
	"github.com/c360studio/semaudit/storage"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
)

// Component implements the audit-api processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	engineConfig audit.Config
	baseDir      string

	// Request subject
	requestSubject string

	// Lifecycle
	running      bool
	startTime    time.Time
	mu           sync.RWMutex
	cancel       context.CancelFunc
	subscription *natsclient.Subscription
	store        *storage.Store

	// Metrics
	requestsProcessed atomic.Int64
	auditsSucceeded   atomic.Int64
	auditsFailed      atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent creates a new audit-api processor.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply defaults if not specified
	defaults := DefaultConfig()
	if config.Ports == nil {
		config.Ports = defaults.Ports
	}
	if len(config.DocumentPatterns) == 0 {
		config.DocumentPatterns = defaults.DocumentPatterns
	}
	if len(config.FactPatterns) == 0 {
		config.FactPatterns = defaults.FactPatterns
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	engineConfig := audit.DefaultConfig()
	if config.MatchThreshold > 0 {
		engineConfig.MatchThreshold = config.MatchThreshold
	}
	if config.SatisfiedThreshold > 0 {
		engineConfig.SatisfiedThreshold = config.SatisfiedThreshold
	}
	engineConfig.IncludeSatisfied = config.IncludeSatisfied
	if err := engineConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Resolve base directory
	baseDir := config.BaseDir
	if baseDir == "" {
		baseDir = os.Getenv("SEMAUDIT_CORPUS_PATH")
	}
	if baseDir == "" {
		var err error
		baseDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}

	// Resolve request subject from port definitions
	requestSubject := "audit.gaps.request"
	if config.Ports != nil && len(config.Ports.Inputs) > 0 {
		requestSubject = config.Ports.Inputs[0].Subject
	}

	return &Component{
		name:           "audit-api",
		config:         config,
		natsClient:     deps.NATSClient,
		logger:         deps.GetLogger(),
		engineConfig:   engineConfig,
		baseDir:        baseDir,
		requestSubject: requestSubject,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized audit-api",
		"base_dir", c.baseDir,
		"request_subject", c.requestSubject,
		"persist_runs", c.config.PersistRuns,
		"publish_graph", c.config.PublishGraph)
	return nil
}

// Start begins handling audit requests.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	// Set running state while holding lock to prevent race condition
	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	// Create the run store before subscribing so the first request never
	// races store setup
	if c.config.PersistRuns {
		js, err := c.natsClient.JetStream()
		if err != nil {
			c.rollbackStart(cancel)
			return fmt.Errorf("get jetstream: %w", err)
		}
		store, err := storage.NewStore(ctx, js)
		if err != nil {
			c.rollbackStart(cancel)
			return fmt.Errorf("create run store: %w", err)
		}
		c.mu.Lock()
		c.store = store
		c.mu.Unlock()
	}

	// Subscribe to audit requests using SubscribeForRequests
	sub, err := c.natsClient.SubscribeForRequests(subCtx, c.requestSubject, c.handleRequest)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("subscribe to %s: %w", c.requestSubject, err)
	}

	c.mu.Lock()
	c.subscription = sub
	c.mu.Unlock()

	c.logger.Info("audit-api started",
		"subject", c.requestSubject,
		"base_dir", c.baseDir)

	return nil
}

// rollbackStart reverts the running state after a failed Start step.
func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.store = nil
	c.mu.Unlock()
	cancel()
}

// handleRequest processes an audit request and returns response data.
// Accepts both raw AuditRequest JSON and BaseMessage-wrapped requests.
func (c *Component) handleRequest(ctx context.Context, data []byte) ([]byte, error) {
	// Check for cancellation before processing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.requestsProcessed.Add(1)
	c.updateLastActivity()

	preview := string(data)
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	c.logger.Debug("Received audit request", "size", len(data), "preview", preview)

	// Try to parse as raw AuditRequest first (from workflow call actions)
	var req AuditRequest
	if err := json.Unmarshal(data, &req); err == nil &&
		(len(req.Documents) > 0 || len(req.Facts) > 0 || req.Root != "" || req.IncludeSatisfied != nil) {
		// Successfully parsed as direct request
		c.logger.Debug("Parsed as raw AuditRequest",
			"documents", len(req.Documents),
			"facts", len(req.Facts),
			"root", req.Root)
	} else {
		// Try to parse as BaseMessage-wrapped request
		var baseMsg message.BaseMessage
		if err := json.Unmarshal(data, &baseMsg); err != nil {
			return c.errorResponse("failed to parse request: " + err.Error())
		}

		// Extract request payload
		payloadBytes, err := json.Marshal(baseMsg.Payload())
		if err != nil {
			return c.errorResponse("failed to marshal payload: " + err.Error())
		}
		if err := json.Unmarshal(payloadBytes, &req); err != nil {
			return c.errorResponse("failed to unmarshal request: " + err.Error())
		}
	}

	// Validate request
	if err := req.Validate(); err != nil {
		return c.errorResponse(err.Error())
	}

	// Assemble the corpus
	docs := req.Documents
	facts := req.Facts
	if len(docs) == 0 {
		root, errMsg := c.resolveRoot(req.Root)
		if errMsg != "" {
			return c.errorResponse(errMsg)
		}

		ld, err := loader.New(loader.Config{
			Root:             root,
			DocumentPatterns: c.config.DocumentPatterns,
			FactPatterns:     c.config.FactPatterns,
		})
		if err != nil {
			return c.errorResponse("configure loader: " + err.Error())
		}

		docs, err = ld.LoadDocuments()
		if err != nil {
			c.auditsFailed.Add(1)
			return c.errorResponse("load documents: " + err.Error())
		}
		if len(facts) == 0 {
			facts, err = ld.LoadFacts()
			if err != nil {
				c.auditsFailed.Add(1)
				return c.errorResponse("load facts: " + err.Error())
			}
		}
	}

	// Build the engine, applying any per-request override
	engineConfig := c.engineConfig
	if req.IncludeSatisfied != nil {
		engineConfig.IncludeSatisfied = *req.IncludeSatisfied
	}
	engine, err := audit.New(engineConfig)
	if err != nil {
		return c.errorResponse("configure engine: " + err.Error())
	}

	// Run the audit
	started := time.Now()
	result, err := engine.Run(docs, facts)
	if err != nil {
		c.auditsFailed.Add(1)
		return c.errorResponse("audit: " + err.Error())
	}
	c.auditsSucceeded.Add(1)

	report := audit.NewReport(result, time.Now())
	response := FromReport(report, len(docs), len(facts))
	response.RunID = c.recordRun(ctx, report, started, len(docs), len(facts))

	c.logger.Debug("Audited corpus",
		"documents", len(docs),
		"facts", len(facts),
		"findings", len(response.Findings),
		"failures", len(response.Failures))

	return c.marshalResponse(response)
}

// resolveRoot maps a request root onto the corpus directory with path
// traversal protection. An empty request root means the base directory
// itself. The second return value is a client-facing error message.
func (c *Component) resolveRoot(requested string) (string, string) {
	if requested == "" {
		return c.baseDir, ""
	}

	root := requested
	if !filepath.IsAbs(root) {
		root = filepath.Join(c.baseDir, root)
	}
	root = filepath.Clean(root)

	absBaseDir, err := filepath.Abs(c.baseDir)
	if err != nil {
		return "", "failed to resolve base directory: " + err.Error()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "failed to resolve root: " + err.Error()
	}

	// Ensure the resolved root stays within the corpus directory
	if !isPathWithin(absRoot, absBaseDir) {
		c.logger.Warn("Path traversal attempt blocked",
			"requested_root", requested,
			"resolved_root", absRoot,
			"base_dir", absBaseDir)
		return "", "root must be within the corpus directory"
	}

	return root, ""
}

// recordRun persists and publishes a completed run when configured. A
// storage or publish failure never fails the audit reply; the reply just
// carries no run ID. Returns the persisted run ID or empty.
func (c *Component) recordRun(ctx context.Context, report *audit.Report, started time.Time, documents, facts int) string {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()

	if store == nil && !c.config.PublishGraph {
		return ""
	}

	run := storage.RunFromReport(report, documents, facts)
	run.StartedAt = started
	completed := report.GeneratedAt
	run.CompletedAt = &completed

	runID := ""
	if store != nil {
		id, err := store.CreateRun(ctx, run)
		if err != nil {
			c.logger.Warn("Failed to persist audit run", "error", err)
		} else {
			runID = id.String()
		}
	}

	if c.config.PublishGraph {
		if run.ID == "" {
			run.ID = storage.NewEntityID(storage.EntityTypeRun).String()
		}
		if err := graph.PublishRun(ctx, c.natsClient, run); err != nil {
			c.logger.Warn("Failed to publish audit run to graph", "error", err)
		}
	}

	return runID
}

// marshalResponse marshals an audit response.
// For request/reply services, we return the raw payload without BaseMessage wrapper
// so workflow interpolation can access fields directly (e.g., ${steps.audit.output.summary.critical})
func (c *Component) marshalResponse(response *AuditResponse) ([]byte, error) {
	return json.Marshal(response)
}

// errorResponse builds an error response.
func (c *Component) errorResponse(errMsg string) ([]byte, error) {
	response := &AuditResponse{
		Error: errMsg,
	}
	return c.marshalResponse(response)
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.running = false
	c.logger.Info("audit-api stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"audits_succeeded", c.auditsSucceeded.Load(),
		"audits_failed", c.auditsFailed.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "audit-api",
		Type:        "processor",
		Description: "Request/reply service for auditing requirement corpora against observed evidence",
		Version:     "1.0.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionOutput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return auditAPISchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: 0,
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}

// isPathWithin checks if child path is within the parent directory.
// Both paths should be absolute and cleaned.
func isPathWithin(child, parent string) bool {
	// Ensure parent ends with separator for accurate prefix matching
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent = parent + string(filepath.Separator)
	}
	return strings.HasPrefix(child, parent) || child == strings.TrimSuffix(parent, string(filepath.Separator))
}
