package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/protocol/adp"
	"github.com/YmClash/vegapunk-sub006/testutil"
	"github.com/YmClash/vegapunk-sub006/testutil/mocks"
	"github.com/YmClash/vegapunk-sub006/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func agentProfile(id string, load float64, reliability float64, capabilities ...string) types.AgentProfile {
	caps := make([]types.Capability, 0, len(capabilities))
	for _, name := range capabilities {
		caps = append(caps, types.Capability{Name: name, Reliability: reliability})
	}
	return types.AgentProfile{
		AgentID:      id,
		Capabilities: caps,
		Load:         load,
		Status:       types.AgentStatusOnline,
		Performance:  types.AgentPerformance{SuccessRate: reliability},
	}
}

func newTestBridge(t *testing.T, client adp.Client) *Bridge {
	t.Helper()
	b := NewBridge(client, config.DefaultDiscoveryConfig(), config.DefaultHandoffConfig(), nil, nil)
	t.Cleanup(b.Close)
	return b
}

func TestDiscoverAgentsFiltersByLoadCeiling(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return []types.AgentProfile{
			agentProfile("agent-a", 10, 0.9, "transcribe"),
			agentProfile("agent-b", 90, 0.6, "transcribe"),
		}, nil
	}

	b := newTestBridge(t, client)
	agents := b.DiscoverAgents(testutil.TestContext(t), Requirements{
		Capabilities: []string{"transcribe"},
		MaxLoad:      50,
	})

	require.Len(t, agents, 1)
	assert.Equal(t, "agent-a", agents[0].AgentID)
}

func TestDiscoverAgentsAppliesExclusionList(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return []types.AgentProfile{
			agentProfile("agent-a", 10, 0.9, "translate"),
			agentProfile("agent-b", 10, 0.9, "translate"),
		}, nil
	}

	b := newTestBridge(t, client)
	agents := b.DiscoverAgents(testutil.TestContext(t), Requirements{
		Capabilities:  []string{"translate"},
		ExcludeAgents: []string{"agent-a"},
	})

	require.Len(t, agents, 1)
	assert.Equal(t, "agent-b", agents[0].AgentID)
}

func TestDiscoverAgentsReliabilityFloorUsesMean(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		// Mean reliability (0.9+0.3)/2 = 0.6, below a 0.7 floor even though
		// the requested capability alone scores 0.9.
		mixed := types.AgentProfile{
			AgentID: "agent-mixed",
			Capabilities: []types.Capability{
				{Name: "summarize", Reliability: 0.9},
				{Name: "translate", Reliability: 0.3},
			},
			Status: types.AgentStatusOnline,
		}
		return []types.AgentProfile{mixed, agentProfile("agent-solid", 10, 0.8, "summarize")}, nil
	}

	b := newTestBridge(t, client)
	agents := b.DiscoverAgents(testutil.TestContext(t), Requirements{
		Capabilities:   []string{"summarize"},
		MinReliability: 0.7,
	})

	require.Len(t, agents, 1)
	assert.Equal(t, "agent-solid", agents[0].AgentID)
}

func TestDiscoverAgentsRankedByCompositeScore(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return []types.AgentProfile{
			agentProfile("agent-slow", 70, 0.8, "search"),
			agentProfile("agent-fast", 5, 0.95, "search"),
			agentProfile("agent-mid", 40, 0.85, "search"),
		}, nil
	}

	b := newTestBridge(t, client)
	agents := b.DiscoverAgents(testutil.TestContext(t), Requirements{Capabilities: []string{"search"}})

	require.Len(t, agents, 3)
	assert.Equal(t, "agent-fast", agents[0].AgentID)
	assert.Equal(t, "agent-mid", agents[1].AgentID)
	assert.Equal(t, "agent-slow", agents[2].AgentID)
}

func TestDiscoverAgentsADPFailureYieldsEmptyList(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return nil, errors.New("adp unreachable")
	}

	b := newTestBridge(t, client)
	agents := b.DiscoverAgents(testutil.TestContext(t), Requirements{Capabilities: []string{"search"}})

	require.NotNil(t, agents)
	assert.Empty(t, agents)
}

func TestDiscoverAgentsServedFromCacheWhenAutoDiscoveryOff(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return []types.AgentProfile{agentProfile("agent-a", 10, 0.9, "transcribe")}, nil
	}

	cfg := config.DefaultDiscoveryConfig()
	cfg.AutoDiscovery = false
	b := NewBridge(client, cfg, config.DefaultHandoffConfig(), nil, nil)
	t.Cleanup(b.Close)

	require.NoError(t, b.Cache().Rebuild(testutil.TestContext(t), client))
	listCallsAfterRebuild := client.ListCalls.Load()

	agents := b.DiscoverAgents(testutil.TestContext(t), Requirements{Capabilities: []string{"transcribe"}})

	require.Len(t, agents, 1)
	assert.Equal(t, listCallsAfterRebuild, client.ListCalls.Load(), "query should not hit ADP")
}

func TestOptimizeHandoffDisabledUsesDirectQuery(t *testing.T) {
	client := mocks.NewADPClient()
	client.QueryCapabilityFn = func(ctx context.Context, query adp.CapabilityQuery) ([]adp.CapabilityMatch, error) {
		return []adp.CapabilityMatch{
			{Agent: agentProfile("agent-a", 10, 0.9, query.Capability), MatchScore: 0.9},
		}, nil
	}

	cfg := config.DefaultHandoffConfig()
	cfg.OptimizationEnabled = false
	b := NewBridge(client, config.DefaultDiscoveryConfig(), cfg, nil, nil)
	t.Cleanup(b.Close)

	decision := b.OptimizeHandoff(testutil.TestContext(t), "agent-from", "session-1", "transcribe")

	assert.Equal(t, "agent-a", decision.TargetAgent)
	assert.InDelta(t, 0.7, decision.Confidence, 1e-9)
}

func TestOptimizeHandoffFallsBackOnQueryFailure(t *testing.T) {
	client := mocks.NewADPClient()
	client.QueryCapabilityFn = func(ctx context.Context, query adp.CapabilityQuery) ([]adp.CapabilityMatch, error) {
		return nil, errors.New("adp unreachable")
	}

	b := newTestBridge(t, client)
	decision := b.OptimizeHandoff(testutil.TestContext(t), "agent-from", "session-1", "transcribe")

	assert.Equal(t, "default-agent", decision.TargetAgent)
	assert.InDelta(t, 0.3, decision.Confidence, 1e-9)
}

func TestOptimizeHandoffFallsBackOnNoMatch(t *testing.T) {
	client := mocks.NewADPClient()

	b := newTestBridge(t, client)
	decision := b.OptimizeHandoff(testutil.TestContext(t), "agent-from", "session-1", "unknown-capability")

	assert.Equal(t, "default-agent", decision.TargetAgent)
	assert.InDelta(t, 0.3, decision.Confidence, 1e-9)
}

func TestOptimizeHandoffAvoidsRecentTargets(t *testing.T) {
	client := mocks.NewADPClient()
	client.QueryCapabilityFn = func(ctx context.Context, query adp.CapabilityQuery) ([]adp.CapabilityMatch, error) {
		// Identical base scores, loads, and success rates: only the
		// anti-ping-pong bonus can separate them.
		return []adp.CapabilityMatch{
			{Agent: agentProfile("agent-recent", 50, 0.8, query.Capability), MatchScore: 0.8},
			{Agent: agentProfile("agent-fresh", 50, 0.8, query.Capability), MatchScore: 0.8},
		}, nil
	}

	b := newTestBridge(t, client)
	b.RecordHandoff("session-1", types.HandoffRecord{
		FromAgent:  "agent-from",
		ToAgent:    "agent-recent",
		Capability: "transcribe",
	})

	decision := b.OptimizeHandoff(testutil.TestContext(t), "agent-from", "session-1", "transcribe")
	assert.Equal(t, "agent-fresh", decision.TargetAgent)
}

func TestOptimizeHandoffHistoryWindowIsPerSession(t *testing.T) {
	client := mocks.NewADPClient()
	client.QueryCapabilityFn = func(ctx context.Context, query adp.CapabilityQuery) ([]adp.CapabilityMatch, error) {
		return []adp.CapabilityMatch{
			{Agent: agentProfile("agent-recent", 50, 0.8, query.Capability), MatchScore: 0.8},
			{Agent: agentProfile("agent-fresh", 50, 0.8, query.Capability), MatchScore: 0.8},
		}, nil
	}

	b := newTestBridge(t, client)
	b.RecordHandoff("session-other", types.HandoffRecord{
		FromAgent:  "agent-from",
		ToAgent:    "agent-recent",
		Capability: "transcribe",
	})

	// History from another session must not influence this decision; with all
	// else equal the first candidate wins.
	decision := b.OptimizeHandoff(testutil.TestContext(t), "agent-from", "session-1", "transcribe")
	assert.Equal(t, "agent-recent", decision.TargetAgent)
}

func TestRecordHandoffTrimsHistoryOldestFirst(t *testing.T) {
	client := mocks.NewADPClient()
	cfg := config.DefaultHandoffConfig()
	cfg.HistoryCap = 3
	b := NewBridge(client, config.DefaultDiscoveryConfig(), cfg, nil, nil)
	t.Cleanup(b.Close)

	for i := 0; i < 5; i++ {
		b.RecordHandoff("session-1", types.HandoffRecord{
			FromAgent:  "agent-from",
			ToAgent:    "agent-" + string(rune('a'+i)),
			Capability: "transcribe",
		})
	}

	history := b.History("session-1")
	require.Len(t, history, 3)
	assert.Equal(t, "agent-c", history[0].ToAgent)
	assert.Equal(t, "agent-e", history[2].ToAgent)
}

func TestAnalyticsAggregatesSessionHistory(t *testing.T) {
	client := mocks.NewADPClient()
	b := newTestBridge(t, client)

	b.RecordHandoff("session-1", types.HandoffRecord{FromAgent: "a", ToAgent: "b", Capability: "transcribe"})
	b.RecordHandoff("session-1", types.HandoffRecord{FromAgent: "b", ToAgent: "c", Capability: "transcribe"})
	b.RecordHandoff("session-1", types.HandoffRecord{FromAgent: "c", ToAgent: "a", Capability: "translate"})

	analytics := b.Analytics("session-1")
	assert.Equal(t, "session-1", analytics.SessionID)
	assert.Equal(t, 3, analytics.TotalHandoffs)
	assert.Equal(t, 3, analytics.UniqueAgents)
	require.NotEmpty(t, analytics.MostUsedCapabilities)
	assert.Equal(t, "transcribe", analytics.MostUsedCapabilities[0].Capability)
	assert.Equal(t, 2, analytics.MostUsedCapabilities[0].Count)
}

func TestRecordHandoffPublishesNotification(t *testing.T) {
	client := mocks.NewADPClient()
	b := newTestBridge(t, client)

	b.RecordHandoff("session-1", types.HandoffRecord{
		FromAgent:  "agent-a",
		ToAgent:    "agent-b",
		Capability: "transcribe",
	})

	select {
	case n := <-b.Notifications():
		assert.Equal(t, NotificationHandoffRecorded, n.Type)
		assert.Equal(t, "agent-b", n.AgentID)
		require.NotNil(t, n.Record)
		assert.False(t, n.Record.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("expected a handoff notification")
	}
}

func TestTopologyEventTriggersRebuild(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return []types.AgentProfile{agentProfile("agent-a", 10, 0.9, "transcribe")}, nil
	}

	b := newTestBridge(t, client)
	require.NoError(t, b.Start(testutil.TestContext(t)))
	require.True(t, b.Started())

	before := client.ListCalls.Load()
	client.EventCh <- adp.Event{Type: adp.EventAgentRegistered, AgentID: "agent-b"}

	testutil.AssertEventuallyTrue(t, func() bool {
		return client.ListCalls.Load() > before
	}, 2*time.Second)

	select {
	case n := <-b.Notifications():
		assert.Equal(t, NotificationAgentDiscovered, n.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a discovery notification")
	}
}

func TestCacheRebuildFailureKeepsPreviousIndex(t *testing.T) {
	client := mocks.NewADPClient()
	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return []types.AgentProfile{agentProfile("agent-a", 10, 0.9, "transcribe")}, nil
	}

	cache := NewCapabilityCache(nil)
	require.NoError(t, cache.Rebuild(context.Background(), client))
	require.Equal(t, 1, cache.AgentCount())

	client.ListAgentsFn = func(ctx context.Context) ([]types.AgentProfile, error) {
		return nil, errors.New("adp unreachable")
	}
	require.Error(t, cache.Rebuild(context.Background(), client))

	assert.Equal(t, 1, cache.AgentCount())
	assert.Len(t, cache.AgentsFor("transcribe"), 1)
}
