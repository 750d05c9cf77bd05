// Package adp defines the client interface for the Agent Discovery Protocol,
// the external protocol that enumerates remote agents and the capabilities
// they advertise. The coordination core consumes this interface and never
// reimplements the protocol's wire format.
package adp

import (
	"context"
	"time"

	"github.com/YmClash/vegapunk-sub006/types"
)

// EventType identifies a topology notification emitted by ADP.
type EventType string

const (
	// EventAgentRegistered indicates a new agent joined the network.
	EventAgentRegistered EventType = "agent_registered"
	// EventAgentUnregistered indicates an agent left the network.
	EventAgentUnregistered EventType = "agent_unregistered"
	// EventTopologyChanged indicates the agent topology changed in a way not
	// attributable to a single agent.
	EventTopologyChanged EventType = "topology_changed"
)

// Event is one topology notification. The capability cache rebuilds on every
// event regardless of type.
type Event struct {
	Type      EventType `json:"type"`
	AgentID   string    `json:"agent_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CapabilityQuery asks ADP for agents matching a single capability.
type CapabilityQuery struct {
	Capability     string   `json:"capability"`
	MinReliability float64  `json:"min_reliability,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	ExcludeAgents  []string `json:"exclude_agents,omitempty"`
}

// CapabilityMatch is one ranked answer to a CapabilityQuery.
type CapabilityMatch struct {
	Agent      types.AgentProfile `json:"agent"`
	MatchScore float64            `json:"match_score"`
}

// Client is the ADP collaborator interface.
type Client interface {
	// ListAgents returns the full set of known agents.
	ListAgents(ctx context.Context) ([]types.AgentProfile, error)

	// QueryCapability returns ranked agents matching the query.
	QueryCapability(ctx context.Context, query CapabilityQuery) ([]CapabilityMatch, error)

	// UpdateAgentStatus pushes a status update for an agent back to ADP.
	UpdateAgentStatus(ctx context.Context, agentID string, status types.AgentStatus, meta map[string]string) error

	// Events returns the subscription channel for topology notifications.
	// The channel is owned by the client and closed on shutdown.
	Events() <-chan Event
}
