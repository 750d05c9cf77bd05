package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/testutil/mocks"
	"github.com/YmClash/vegapunk-sub006/types"
	"pgregory.net/rapid"
)

// Discovery filtering must be sound (every returned agent satisfies the
// requirements) and ranking must be monotonic in the composite score.
func TestDiscoverAgentsFilterProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capabilityNames := []string{"transcribe", "translate", "summarize", "search"}

		agentCount := rapid.IntRange(0, 20).Draw(t, "agent_count")
		agents := make([]types.AgentProfile, 0, agentCount)
		for i := 0; i < agentCount; i++ {
			capCount := rapid.IntRange(1, len(capabilityNames)).Draw(t, fmt.Sprintf("cap_count_%d", i))
			caps := make([]types.Capability, 0, capCount)
			for j := 0; j < capCount; j++ {
				caps = append(caps, types.Capability{
					Name:        capabilityNames[j],
					Reliability: rapid.Float64Range(0, 1).Draw(t, fmt.Sprintf("rel_%d_%d", i, j)),
				})
			}
			agents = append(agents, types.AgentProfile{
				AgentID:      fmt.Sprintf("agent-%d", i),
				Capabilities: caps,
				Load:         rapid.Float64Range(0, 100).Draw(t, fmt.Sprintf("load_%d", i)),
				Status:       types.AgentStatusOnline,
				Performance: types.AgentPerformance{
					SuccessRate: rapid.Float64Range(0, 1).Draw(t, fmt.Sprintf("success_%d", i)),
				},
			})
		}

		req := Requirements{
			Capabilities:   []string{rapid.SampledFrom(capabilityNames).Draw(t, "required_cap")},
			MinReliability: rapid.Float64Range(0, 1).Draw(t, "min_reliability"),
			MaxLoad:        rapid.Float64Range(1, 100).Draw(t, "max_load"),
		}
		if rapid.Bool().Draw(t, "exclude_first") && agentCount > 0 {
			req.ExcludeAgents = []string{agents[0].AgentID}
		}

		client := mocks.NewADPClient()
		client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
			return agents, nil
		}
		b := NewBridge(client, config.DefaultDiscoveryConfig(), config.DefaultHandoffConfig(), nil, nil)
		defer b.Close()

		result := b.DiscoverAgents(context.Background(), req)

		excluded := make(map[string]struct{})
		for _, id := range req.ExcludeAgents {
			excluded[id] = struct{}{}
		}

		for _, agent := range result {
			if _, skip := excluded[agent.AgentID]; skip {
				t.Fatalf("excluded agent %s returned", agent.AgentID)
			}
			if agent.AvgReliability() < req.MinReliability {
				t.Fatalf("agent %s below reliability floor: %f < %f",
					agent.AgentID, agent.AvgReliability(), req.MinReliability)
			}
			if agent.Load > req.MaxLoad {
				t.Fatalf("agent %s above load ceiling: %f > %f", agent.AgentID, agent.Load, req.MaxLoad)
			}
			if !agent.HasCapability(req.Capabilities[0]) {
				t.Fatalf("agent %s lacks capability %s", agent.AgentID, req.Capabilities[0])
			}
		}

		for i := 1; i < len(result); i++ {
			if b.scoreAgent(&result[i]) > b.scoreAgent(&result[i-1]) {
				t.Fatalf("ranking not monotonic at %d", i)
			}
		}
	})
}
