package types

import "time"

// AgentStatus represents the status of a remote agent as reported by ADP.
type AgentStatus string

const (
	// AgentStatusOnline indicates the agent is online and accepting work.
	AgentStatusOnline AgentStatus = "online"
	// AgentStatusOffline indicates the agent is offline.
	AgentStatusOffline AgentStatus = "offline"
	// AgentStatusBusy indicates the agent is online but saturated.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusUnhealthy indicates the agent failed its last health check.
	AgentStatusUnhealthy AgentStatus = "unhealthy"
)

// Capability is a named skill an agent advertises, with an associated
// reliability score in [0, 1].
type Capability struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Reliability float64 `json:"reliability"`
}

// AgentPerformance holds the rolling performance metrics ADP reports for an
// agent.
type AgentPerformance struct {
	// SuccessRate is the fraction of successful executions in [0, 1].
	SuccessRate float64 `json:"success_rate"`

	// AvgLatencyMs is the average execution latency in milliseconds.
	AvgLatencyMs float64 `json:"avg_latency_ms,omitempty"`
}

// AgentProfile is a read-only cached copy of an agent as advertised by ADP.
// The discovery bridge holds these with a staleness window; ADP owns the
// authoritative record.
type AgentProfile struct {
	AgentID      string           `json:"agent_id"`
	Name         string           `json:"name,omitempty"`
	Capabilities []Capability     `json:"capabilities"`
	Load         float64          `json:"load"` // 0-100
	Status       AgentStatus      `json:"status"`
	Performance  AgentPerformance `json:"performance"`
	LastSeen     time.Time        `json:"last_seen,omitempty"`
}

// AvgReliability returns the mean reliability across the agent's advertised
// capabilities, or 0 when the agent advertises none.
func (p *AgentProfile) AvgReliability() float64 {
	if len(p.Capabilities) == 0 {
		return 0
	}
	var sum float64
	for _, c := range p.Capabilities {
		sum += c.Reliability
	}
	return sum / float64(len(p.Capabilities))
}

// HasCapability reports whether the agent advertises the named capability.
func (p *AgentProfile) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if c.Name == name {
			return true
		}
	}
	return false
}

// HandoffRecord captures one executed delegation between agents. Records are
// immutable once created and appended to a bounded per-session history.
type HandoffRecord struct {
	FromAgent  string    `json:"from_agent"`
	ToAgent    string    `json:"to_agent"`
	Reason     string    `json:"reason"`
	Capability string    `json:"capability"`
	Timestamp  time.Time `json:"timestamp"`
}

// HandoffDecision is the outcome of a handoff optimization pass.
type HandoffDecision struct {
	TargetAgent string  `json:"target_agent"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// CapabilityUsage pairs a capability name with its usage count.
type CapabilityUsage struct {
	Capability string `json:"capability"`
	Count      int    `json:"count"`
}

// HandoffAnalytics aggregates a session's handoff history for API consumers.
type HandoffAnalytics struct {
	SessionID            string            `json:"session_id"`
	TotalHandoffs        int               `json:"total_handoffs"`
	UniqueAgents         int               `json:"unique_agents"`
	MostUsedCapabilities []CapabilityUsage `json:"most_used_capabilities"`
}
