// Package tip defines the client interface for the Tool Invocation Protocol,
// the external protocol exposing callable tools and readable resources. The
// tool bridge wraps this interface with concurrency, timeout, retry, and
// caching discipline; the raw calls stay here.
package tip

import (
	"context"
	"encoding/json"

	"github.com/YmClash/vegapunk-sub006/types"
)

// ExecutionContext identifies the workflow context a tool call runs under.
type ExecutionContext struct {
	SessionID  string `json:"session_id,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
	AgentID    string `json:"agent_id,omitempty"`
}

// HealthStatus is TIP's self-reported health.
type HealthStatus struct {
	Status string `json:"status"`
}

// Healthy reports whether TIP considers itself healthy.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// Client is the TIP collaborator interface.
type Client interface {
	// ListTools returns the current tool catalog.
	ListTools(ctx context.Context) ([]types.ToolDefinition, error)

	// ListResources returns the current resource catalog.
	ListResources(ctx context.Context) ([]types.ResourceDescriptor, error)

	// CallTool performs the raw tool invocation.
	CallTool(ctx context.Context, name string, args json.RawMessage, execCtx ExecutionContext) (json.RawMessage, error)

	// ReadResource performs the raw resource read.
	ReadResource(ctx context.Context, uri string) (string, error)

	// HealthCheck returns TIP's self-reported health.
	HealthCheck(ctx context.Context) (HealthStatus, error)
}
