// Package mocks provides callback-style fakes for the three protocol
// collaborator interfaces. Every method delegates to an optional function
// field, so tests override only what they exercise.
package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/YmClash/vegapunk-sub006/protocol/adp"
	"github.com/YmClash/vegapunk-sub006/protocol/tip"
	"github.com/YmClash/vegapunk-sub006/protocol/wgp"
	"github.com/YmClash/vegapunk-sub006/types"
)

var (
	_ adp.Client = (*ADPClient)(nil)
	_ wgp.Client = (*WGPClient)(nil)
	_ tip.Client = (*TIPClient)(nil)
)

// ADPClient is a callback-style fake for adp.Client.
type ADPClient struct {
	ListAgentsFn      func(ctx context.Context) ([]types.AgentProfile, error)
	QueryCapabilityFn func(ctx context.Context, query adp.CapabilityQuery) ([]adp.CapabilityMatch, error)
	UpdateStatusFn    func(ctx context.Context, agentID string, status types.AgentStatus, meta map[string]string) error

	EventCh chan adp.Event

	ListCalls  atomic.Int64
	QueryCalls atomic.Int64
}

// NewADPClient creates a fake ADP client with a buffered event channel.
func NewADPClient() *ADPClient {
	return &ADPClient{EventCh: make(chan adp.Event, 16)}
}

func (m *ADPClient) ListAgents(ctx context.Context) ([]types.AgentProfile, error) {
	m.ListCalls.Add(1)
	if m.ListAgentsFn != nil {
		return m.ListAgentsFn(ctx)
	}
	return nil, nil
}

func (m *ADPClient) QueryCapability(ctx context.Context, query adp.CapabilityQuery) ([]adp.CapabilityMatch, error) {
	m.QueryCalls.Add(1)
	if m.QueryCapabilityFn != nil {
		return m.QueryCapabilityFn(ctx, query)
	}
	return nil, nil
}

func (m *ADPClient) UpdateAgentStatus(ctx context.Context, agentID string, status types.AgentStatus, meta map[string]string) error {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, agentID, status, meta)
	}
	return nil
}

func (m *ADPClient) Events() <-chan adp.Event {
	return m.EventCh
}

// WGPClient is a callback-style fake for wgp.Client.
type WGPClient struct {
	GetConfigFn func(ctx context.Context) (map[string]any, error)
	InvokeFn    func(ctx context.Context, message, sessionID, userID string) (*wgp.GraphResult, error)

	InvokeCalls atomic.Int64
}

func (m *WGPClient) GetConfig(ctx context.Context) (map[string]any, error) {
	if m.GetConfigFn != nil {
		return m.GetConfigFn(ctx)
	}
	return map[string]any{"graph": "default"}, nil
}

func (m *WGPClient) Invoke(ctx context.Context, message, sessionID, userID string) (*wgp.GraphResult, error) {
	m.InvokeCalls.Add(1)
	if m.InvokeFn != nil {
		return m.InvokeFn(ctx, message, sessionID, userID)
	}
	return &wgp.GraphResult{Response: fmt.Sprintf("echo: %s", message)}, nil
}

// TIPClient is a callback-style fake for tip.Client.
type TIPClient struct {
	ListToolsFn     func(ctx context.Context) ([]types.ToolDefinition, error)
	ListResourcesFn func(ctx context.Context) ([]types.ResourceDescriptor, error)
	CallToolFn      func(ctx context.Context, name string, args json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error)
	ReadResourceFn  func(ctx context.Context, uri string) (string, error)
	HealthCheckFn   func(ctx context.Context) (tip.HealthStatus, error)

	CallToolCalls     atomic.Int64
	ReadResourceCalls atomic.Int64
	ListToolsCalls    atomic.Int64
}

func (m *TIPClient) ListTools(ctx context.Context) ([]types.ToolDefinition, error) {
	m.ListToolsCalls.Add(1)
	if m.ListToolsFn != nil {
		return m.ListToolsFn(ctx)
	}
	return nil, nil
}

func (m *TIPClient) ListResources(ctx context.Context) ([]types.ResourceDescriptor, error) {
	if m.ListResourcesFn != nil {
		return m.ListResourcesFn(ctx)
	}
	return nil, nil
}

func (m *TIPClient) CallTool(ctx context.Context, name string, args json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
	m.CallToolCalls.Add(1)
	if m.CallToolFn != nil {
		return m.CallToolFn(ctx, name, args, execCtx)
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func (m *TIPClient) ReadResource(ctx context.Context, uri string) (string, error) {
	m.ReadResourceCalls.Add(1)
	if m.ReadResourceFn != nil {
		return m.ReadResourceFn(ctx, uri)
	}
	return "content of " + uri, nil
}

func (m *TIPClient) HealthCheck(ctx context.Context) (tip.HealthStatus, error) {
	if m.HealthCheckFn != nil {
		return m.HealthCheckFn(ctx)
	}
	return tip.HealthStatus{Status: "healthy"}, nil
}
