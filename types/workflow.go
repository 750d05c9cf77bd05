package types

import "time"

// WorkflowPhase identifies one of the three coordinator phases.
type WorkflowPhase string

const (
	PhaseDiscovery      WorkflowPhase = "discovery"
	PhaseGraphExecution WorkflowPhase = "graph_execution"
	PhaseToolSettlement WorkflowPhase = "tool_settlement"
)

// WorkflowState is the coordinator-level state of a workflow run. There is no
// paused or cancelled state at this layer; that belongs to the graph engine.
type WorkflowState string

const (
	StateDiscovery      WorkflowState = "discovery"
	StateGraphExecution WorkflowState = "graph_execution"
	StateToolSettlement WorkflowState = "tool_settlement"
	StateCompleted      WorkflowState = "completed"
	StateFailed         WorkflowState = "failed"
)

// PhaseTimings holds per-phase wall-clock timings in milliseconds. Phases not
// reached report zero.
type PhaseTimings struct {
	DiscoveryMs int64 `json:"discovery_ms"`
	GraphMs     int64 `json:"graph_ms"`
	ToolMs      int64 `json:"tool_ms"`
}

// WorkflowMetadata is the metadata block of a workflow execution result.
type WorkflowMetadata struct {
	WorkflowID           string       `json:"workflow_id"`
	SessionID            string       `json:"session_id"`
	UserID               string       `json:"user_id,omitempty"`
	TotalExecutionTimeMs int64        `json:"total_execution_time_ms"`
	AgentPath            []string     `json:"agent_path,omitempty"`
	ProtocolsUsed        []string     `json:"protocols_used"`
	ToolsExecuted        []string     `json:"tools_executed,omitempty"`
	Handoffs             int          `json:"handoffs"`
	PhaseTimings         PhaseTimings `json:"per_phase_timing_ms"`
}

// WorkflowExecutionResult is the envelope returned to API consumers for every
// workflow run. Failed runs keep the same shape with Success=false and a
// human-readable message embedding the underlying error text.
type WorkflowExecutionResult struct {
	Success  bool             `json:"success"`
	Response string           `json:"response"`
	Metadata WorkflowMetadata `json:"metadata"`
}

// WorkflowMetricsRecord is created once per workflow run and stored in a
// bounded in-memory table keyed by workflow ID. It is never updated after the
// run completes.
type WorkflowMetricsRecord struct {
	WorkflowID           string       `json:"workflow_id"`
	SessionID            string       `json:"session_id"`
	Success              bool         `json:"success"`
	TotalExecutionTimeMs int64        `json:"total_execution_time_ms"`
	ProtocolsUsed        []string     `json:"protocols_used"`
	ToolsExecuted        []string     `json:"tools_executed,omitempty"`
	Handoffs             int          `json:"handoffs"`
	PhaseTimings         PhaseTimings `json:"per_phase_timing_ms"`
	CompletedAt          time.Time    `json:"completed_at"`
}

// HealthState is the aggregate health verdict.
type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateDegraded  HealthState = "degraded"
	HealthStateUnhealthy HealthState = "unhealthy"
)

// ProtocolHealth holds the independent per-protocol health booleans.
type ProtocolHealth struct {
	ADP bool `json:"adp"`
	WGP bool `json:"wgp"`
	TIP bool `json:"tip"`
}

// BridgeHealth reports whether the two bridges are initialized.
type BridgeHealth struct {
	Discovery bool `json:"discovery"`
	Tool      bool `json:"tool"`
}

// RollingMetrics are the coordinator's rolling performance aggregates.
type RollingMetrics struct {
	TotalWorkflows     int     `json:"total_workflows"`
	SuccessRate        float64 `json:"success_rate"`
	AvgExecutionTimeMs float64 `json:"avg_execution_time_ms"`
	TotalHandoffs      int     `json:"total_handoffs"`
	TotalToolCalls     int     `json:"total_tool_calls"`
}

// SystemHealthStatus is the JSON-serializable health report exposed to
// dashboard consumers.
type SystemHealthStatus struct {
	Status    HealthState    `json:"status"`
	Protocols ProtocolHealth `json:"protocols"`
	Bridges   BridgeHealth   `json:"bridges"`
	Metrics   RollingMetrics `json:"metrics"`
	CheckedAt time.Time      `json:"checked_at"`
}
