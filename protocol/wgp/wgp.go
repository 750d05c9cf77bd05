// Package wgp defines the client interface for the Workflow Graph Protocol,
// the external stateful graph-execution engine driving multi-step agent
// conversations. Graph compilation and node semantics live behind this
// interface; the coordinator only invokes it and reads the result metadata.
package wgp

import "context"

// GraphMetadata carries the execution trace the graph engine reports back.
type GraphMetadata struct {
	// AgentPath lists the agent nodes traversed, in execution order.
	AgentPath []string `json:"agent_path,omitempty"`

	// ToolsUsed lists the tool names invoked by graph nodes during execution.
	// The coordinator's tool-settlement phase folds these into the workflow
	// metrics record; it never re-executes them.
	ToolsUsed []string `json:"tools_used,omitempty"`

	// Handoffs is the number of agent-to-agent delegations the graph decided.
	Handoffs int `json:"handoffs,omitempty"`
}

// GraphResult is the outcome of one graph invocation.
type GraphResult struct {
	Response string        `json:"response"`
	Metadata GraphMetadata `json:"metadata"`
}

// Client is the WGP collaborator interface.
type Client interface {
	// GetConfig returns the engine's configuration object, used as a health
	// probe: a nil map with no error means the engine is not configured.
	GetConfig(ctx context.Context) (map[string]any, error)

	// Invoke runs the compiled graph for one user message within a session.
	Invoke(ctx context.Context, message, sessionID, userID string) (*GraphResult, error)
}
