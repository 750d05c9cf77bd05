package types

import (
	"encoding/json"
	"time"
)

// ToolMetadata carries optional planning hints attached to a tool definition.
type ToolMetadata struct {
	Cost        float64 `json:"cost,omitempty"`
	LatencyMs   float64 `json:"latency_ms,omitempty"`
	Reliability float64 `json:"reliability,omitempty"`
}

// ToolDefinition describes a callable tool exposed by TIP. Definitions are
// cached by the tool bridge and considered valid for a fixed TTL before
// re-fetch.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	Metadata    *ToolMetadata   `json:"metadata,omitempty"`
}

// ToolResultMetadata describes how a tool execution went.
type ToolResultMetadata struct {
	ToolName string `json:"tool_name"`

	// ExecutionTimeMs is wall-clock time from call submission to settlement,
	// including queueing time behind the concurrency limiter.
	ExecutionTimeMs int64 `json:"execution_time_ms"`

	Attempts   int     `json:"attempts,omitempty"`
	TokensUsed int     `json:"tokens_used,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
}

// ToolExecutionResult is the settlement of one tool call. It is created per
// call, never mutated after return, and never signals failure by panicking
// across the bridge boundary: Success=false implies Error is non-empty.
type ToolExecutionResult struct {
	Success  bool               `json:"success"`
	Result   json.RawMessage    `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	Metadata ToolResultMetadata `json:"metadata"`
}

// ResourceDescriptor describes a readable resource exposed by TIP.
type ResourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResourceAccessResult is the settlement of one resource read.
type ResourceAccessResult struct {
	Success bool   `json:"success"`
	URI     string `json:"uri"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`

	// AccessTimeMs is measured against this lookup, not the original fetch,
	// so cache hits report their own (shorter) latency.
	AccessTimeMs int64     `json:"access_time_ms"`
	FromCache    bool      `json:"from_cache"`
	FetchedAt    time.Time `json:"fetched_at,omitempty"`
}
