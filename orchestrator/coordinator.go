// Package orchestrator drives end-to-end workflow execution across the three
// protocol surfaces. Each request moves through discovery, graph execution,
// and tool settlement; every run yields a well-formed result and a metrics
// record regardless of outcome. The coordinator also aggregates system health
// and fans out bridge lifecycle notifications through a single queue.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YmClash/vegapunk-sub006/bridge/discovery"
	"github.com/YmClash/vegapunk-sub006/bridge/tool"
	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/internal/events"
	"github.com/YmClash/vegapunk-sub006/internal/metrics"
	"github.com/YmClash/vegapunk-sub006/protocol/adp"
	"github.com/YmClash/vegapunk-sub006/protocol/tip"
	"github.com/YmClash/vegapunk-sub006/protocol/wgp"
	"github.com/YmClash/vegapunk-sub006/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// WorkflowEventType identifies a coordinator-level workflow event.
type WorkflowEventType string

const (
	WorkflowStarted   WorkflowEventType = "workflow_started"
	WorkflowCompleted WorkflowEventType = "workflow_completed"
	WorkflowFailed    WorkflowEventType = "workflow_failed"
)

// WorkflowEvent is one coordinator-level workflow lifecycle event.
type WorkflowEvent struct {
	Type       WorkflowEventType `json:"type"`
	WorkflowID string            `json:"workflow_id"`
	SessionID  string            `json:"session_id"`
	DurationMs int64             `json:"duration_ms,omitempty"`
}

// Notification is the unified fan-out envelope: exactly one of the payload
// pointers is set.
type Notification struct {
	Workflow  *WorkflowEvent          `json:"workflow,omitempty"`
	Discovery *discovery.Notification `json:"discovery,omitempty"`
	Tool      *tool.Notification      `json:"tool,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// Coordinator is the Workflow Coordinator.
type Coordinator struct {
	cfg config.OrchestratorConfig

	adpClient adp.Client
	wgpClient wgp.Client

	discoveryBridge *discovery.Bridge
	toolBridge      *tool.Bridge

	table     *metricsTable
	queue     *events.Queue[Notification]
	collector *metrics.Collector
	tracer    trace.Tracer
	logger    *zap.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// Option customizes coordinator construction.
type Option func(*options)

type options struct {
	toolOpts []tool.Option
}

// WithToolBridgeOptions forwards options to the embedded tool bridge, e.g.
// the Redis-backed resource store.
func WithToolBridgeOptions(opts ...tool.Option) Option {
	return func(o *options) { o.toolOpts = append(o.toolOpts, opts...) }
}

// New builds the coordinator and both bridges and starts the discovery
// refresh loop. Initialization fails fast: any error closes everything built
// so far before returning.
func New(ctx context.Context, cfg *config.Config, adpClient adp.Client, wgpClient wgp.Client, tipClient tip.Client, collector *metrics.Collector, logger *zap.Logger, opts ...Option) (*Coordinator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	discoveryBridge := discovery.NewBridge(adpClient, cfg.Discovery, cfg.Handoff, collector, logger)
	if err := discoveryBridge.Start(ctx); err != nil {
		discoveryBridge.Close()
		return nil, fmt.Errorf("starting discovery bridge: %w", err)
	}

	toolBridge := tool.NewBridge(tipClient, cfg.Tools, cfg.Resources, collector, logger, o.toolOpts...)

	c := &Coordinator{
		cfg:             cfg.Orchestrator,
		adpClient:       adpClient,
		wgpClient:       wgpClient,
		discoveryBridge: discoveryBridge,
		toolBridge:      toolBridge,
		table:           newMetricsTable(cfg.Orchestrator.MetricsTableCap),
		queue:           events.NewQueue[Notification](cfg.Orchestrator.EventQueueSize),
		collector:       collector,
		tracer:          otel.Tracer("orchestrator"),
		logger:          logger.With(zap.String("component", "orchestrator")),
	}

	c.wg.Add(2)
	go c.forwardDiscovery()
	go c.forwardTool()

	c.logger.Info("coordinator initialized")
	return c, nil
}

func (c *Coordinator) forwardDiscovery() {
	defer c.wg.Done()
	for n := range c.discoveryBridge.Notifications() {
		n := n
		c.queue.Publish(Notification{Discovery: &n, Timestamp: n.Timestamp})
	}
}

func (c *Coordinator) forwardTool() {
	defer c.wg.Done()
	for n := range c.toolBridge.Notifications() {
		n := n
		c.queue.Publish(Notification{Tool: &n, Timestamp: n.Timestamp})
	}
}

// Events returns the unified notification stream. Consumers pull; slow
// consumers lose the oldest notifications rather than blocking the bridges.
func (c *Coordinator) Events() <-chan Notification {
	return c.queue.Chan()
}

// DiscoveryBridge exposes the discovery bridge for direct handoff calls.
func (c *Coordinator) DiscoveryBridge() *discovery.Bridge {
	return c.discoveryBridge
}

// ToolBridge exposes the tool bridge for direct tool and resource calls.
func (c *Coordinator) ToolBridge() *tool.Bridge {
	return c.toolBridge
}

// Close stops the refresh loop and the bridges, then drains the forwarders
// and shuts the event queue. Safe to call more than once.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.discoveryBridge.Close()
	c.toolBridge.Close()
	c.wg.Wait()
	c.queue.Close()
	c.logger.Info("coordinator closed")
}

// ExecuteWorkflow drives one request through the three phases. It always
// returns a well-formed result; a failure in any phase moves the run to
// failed, preserves the timings collected so far, and embeds the error text
// in the response. Phases not reached report zero timing.
func (c *Coordinator) ExecuteWorkflow(ctx context.Context, message, sessionID, userID string) types.WorkflowExecutionResult {
	workflowID := uuid.NewString()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "workflow.execute", trace.WithAttributes(
		attribute.String("workflow.id", workflowID),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	c.publishWorkflowEvent(WorkflowStarted, workflowID, sessionID, 0)
	c.logger.Info("workflow started",
		zap.String("workflow_id", workflowID),
		zap.String("session_id", sessionID),
	)

	var timings types.PhaseTimings
	protocols := make([]string, 0, 3)

	// Discovery: cache warm-up only, never fatal.
	phaseStart := time.Now()
	if c.cfg.IntelligentRouting {
		agents := c.runDiscoveryPhase(ctx)
		protocols = append(protocols, "adp")
		c.logger.Debug("discovery phase settled",
			zap.String("workflow_id", workflowID),
			zap.Int("agents_available", len(agents)),
		)
	}
	timings.DiscoveryMs = time.Since(phaseStart).Milliseconds()
	c.recordPhase(string(types.PhaseDiscovery), time.Since(phaseStart))

	// Graph execution: the dominant-cost phase, and the only fatal one.
	phaseStart = time.Now()
	graphResult, err := c.runGraphPhase(ctx, message, sessionID, userID)
	timings.GraphMs = time.Since(phaseStart).Milliseconds()
	c.recordPhase(string(types.PhaseGraphExecution), time.Since(phaseStart))
	protocols = append(protocols, "wgp")

	if err != nil {
		span.RecordError(err)
		return c.settle(workflowID, sessionID, userID, start, timings, protocols, nil, nil, 0,
			false, fmt.Sprintf("workflow failed during graph execution: %v", err))
	}

	// Tool settlement: fold tool usage reported by the graph into the
	// metrics record; nothing is re-executed here.
	phaseStart = time.Now()
	toolsExecuted := append([]string(nil), graphResult.Metadata.ToolsUsed...)
	if len(toolsExecuted) > 0 {
		protocols = append(protocols, "tip")
	}
	timings.ToolMs = time.Since(phaseStart).Milliseconds()
	c.recordPhase(string(types.PhaseToolSettlement), time.Since(phaseStart))

	agentPath := append([]string(nil), graphResult.Metadata.AgentPath...)
	return c.settle(workflowID, sessionID, userID, start, timings, protocols, agentPath,
		toolsExecuted, graphResult.Metadata.Handoffs, true, graphResult.Response)
}

func (c *Coordinator) runDiscoveryPhase(ctx context.Context) []types.AgentProfile {
	ctx, span := c.tracer.Start(ctx, "workflow.phase.discovery")
	defer span.End()

	return c.discoveryBridge.DiscoverAgents(ctx, discovery.Requirements{
		MinReliability: c.cfg.DiscoveryReliabilityFloor,
		MaxLoad:        c.cfg.DiscoveryMaxLoad,
	})
}

func (c *Coordinator) runGraphPhase(ctx context.Context, message, sessionID, userID string) (*wgp.GraphResult, error) {
	ctx, span := c.tracer.Start(ctx, "workflow.phase.graph_execution")
	defer span.End()

	result, err := c.wgpClient.Invoke(ctx, message, sessionID, userID)
	if err != nil {
		return nil, types.NewError(types.ErrProtocolUnavailable, "graph invocation failed").
			WithCause(err).WithProtocol("wgp")
	}
	if result == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "graph engine returned no result").
			WithProtocol("wgp")
	}
	return result, nil
}

func (c *Coordinator) settle(workflowID, sessionID, userID string, start time.Time, timings types.PhaseTimings, protocols, agentPath, toolsExecuted []string, handoffs int, success bool, response string) types.WorkflowExecutionResult {
	total := time.Since(start)

	result := types.WorkflowExecutionResult{
		Success:  success,
		Response: response,
		Metadata: types.WorkflowMetadata{
			WorkflowID:           workflowID,
			SessionID:            sessionID,
			UserID:               userID,
			TotalExecutionTimeMs: total.Milliseconds(),
			AgentPath:            agentPath,
			ProtocolsUsed:        protocols,
			ToolsExecuted:        toolsExecuted,
			Handoffs:             handoffs,
			PhaseTimings:         timings,
		},
	}

	c.table.Put(types.WorkflowMetricsRecord{
		WorkflowID:           workflowID,
		SessionID:            sessionID,
		Success:              success,
		TotalExecutionTimeMs: total.Milliseconds(),
		ProtocolsUsed:        protocols,
		ToolsExecuted:        toolsExecuted,
		Handoffs:             handoffs,
		PhaseTimings:         timings,
		CompletedAt:          time.Now(),
	})

	if c.collector != nil {
		c.collector.RecordWorkflow(success, total)
	}

	eventType := WorkflowCompleted
	if !success {
		eventType = WorkflowFailed
	}
	c.publishWorkflowEvent(eventType, workflowID, sessionID, total.Milliseconds())

	if success {
		c.logger.Info("workflow completed",
			zap.String("workflow_id", workflowID),
			zap.Duration("duration", total),
			zap.Int("handoffs", handoffs),
			zap.Int("tools", len(toolsExecuted)),
		)
	} else {
		c.logger.Warn("workflow failed",
			zap.String("workflow_id", workflowID),
			zap.Duration("duration", total),
			zap.String("response", response),
		)
	}
	return result
}

func (c *Coordinator) recordPhase(phase string, duration time.Duration) {
	if c.collector != nil {
		c.collector.RecordPhase(phase, duration)
	}
}

func (c *Coordinator) publishWorkflowEvent(eventType WorkflowEventType, workflowID, sessionID string, durationMs int64) {
	c.queue.Publish(Notification{
		Workflow: &WorkflowEvent{
			Type:       eventType,
			WorkflowID: workflowID,
			SessionID:  sessionID,
			DurationMs: durationMs,
		},
		Timestamp: time.Now(),
	})
}

// Metrics returns the stored record for one workflow run, if still retained.
func (c *Coordinator) Metrics(workflowID string) (types.WorkflowMetricsRecord, bool) {
	return c.table.Get(workflowID)
}

// RollingMetrics returns the cumulative performance aggregates.
func (c *Coordinator) RollingMetrics() types.RollingMetrics {
	return c.table.Rolling()
}

// SystemHealth probes the three protocols in parallel and aggregates the
// verdict: healthy only when all protocols and both bridges are up, degraded
// when at least two protocols are up, unhealthy otherwise. Probe errors count
// as unhealthy for that protocol, never as a call failure.
func (c *Coordinator) SystemHealth(ctx context.Context) types.SystemHealthStatus {
	var protocols types.ProtocolHealth

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		agents, err := c.adpClient.ListAgents(gctx)
		if err != nil {
			return nil
		}
		for _, agent := range agents {
			if agent.Status == types.AgentStatusOnline {
				protocols.ADP = true
				break
			}
		}
		return nil
	})
	g.Go(func() error {
		cfg, err := c.wgpClient.GetConfig(gctx)
		protocols.WGP = err == nil && cfg != nil
		return nil
	})
	g.Go(func() error {
		status, err := c.toolBridge.HealthCheck(gctx)
		protocols.TIP = err == nil && status.Healthy()
		return nil
	})
	_ = g.Wait()

	bridges := types.BridgeHealth{
		Discovery: c.discoveryBridge.Started(),
		Tool:      c.toolBridge.Ready(),
	}

	healthyProtocols := 0
	for _, ok := range []bool{protocols.ADP, protocols.WGP, protocols.TIP} {
		if ok {
			healthyProtocols++
		}
	}

	status := types.HealthStateUnhealthy
	switch {
	case healthyProtocols == 3 && bridges.Discovery && bridges.Tool:
		status = types.HealthStateHealthy
	case healthyProtocols >= 2:
		status = types.HealthStateDegraded
	}

	return types.SystemHealthStatus{
		Status:    status,
		Protocols: protocols,
		Bridges:   bridges,
		Metrics:   c.table.Rolling(),
		CheckedAt: time.Now(),
	}
}
