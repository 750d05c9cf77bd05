package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YmClash/vegapunk-sub006/protocol/adp"
	"github.com/YmClash/vegapunk-sub006/types"
	"go.uber.org/zap"
)

// CapabilityCache maintains the mapping from capability name to the agents
// offering it. The bridge owns the cache exclusively; all mutation goes
// through Rebuild under a single lock. Refresh is always a full rebuild:
// clear, re-enumerate, regroup.
//
// Exclusion lists are applied by callers at query time, never baked into the
// cached index.
type CapabilityCache struct {
	mu           sync.RWMutex
	byCapability map[string][]types.AgentProfile
	agents       map[string]types.AgentProfile
	rebuiltAt    time.Time

	logger *zap.Logger
}

// NewCapabilityCache creates an empty capability cache.
func NewCapabilityCache(logger *zap.Logger) *CapabilityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapabilityCache{
		byCapability: make(map[string][]types.AgentProfile),
		agents:       make(map[string]types.AgentProfile),
		logger:       logger.With(zap.String("component", "capability_cache")),
	}
}

// Rebuild re-enumerates all agents from ADP and regroups them by advertised
// capability name. On ADP failure the previous index is kept.
func (c *CapabilityCache) Rebuild(ctx context.Context, client adp.Client) error {
	agents, err := client.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("list agents: %w", err)
	}

	byCapability := make(map[string][]types.AgentProfile)
	byID := make(map[string]types.AgentProfile, len(agents))
	for _, agent := range agents {
		byID[agent.AgentID] = agent
		for _, capability := range agent.Capabilities {
			byCapability[capability.Name] = append(byCapability[capability.Name], agent)
		}
	}

	c.mu.Lock()
	c.byCapability = byCapability
	c.agents = byID
	c.rebuiltAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("capability cache rebuilt",
		zap.Int("agents", len(byID)),
		zap.Int("capabilities", len(byCapability)),
	)
	return nil
}

// AgentsFor returns a copy of the agents advertising the named capability.
func (c *CapabilityCache) AgentsFor(capability string) []types.AgentProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached := c.byCapability[capability]
	out := make([]types.AgentProfile, len(cached))
	copy(out, cached)
	return out
}

// AllAgents returns a copy of every cached agent.
func (c *CapabilityCache) AllAgents() []types.AgentProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.AgentProfile, 0, len(c.agents))
	for _, agent := range c.agents {
		out = append(out, agent)
	}
	return out
}

// AgentCount returns the number of cached agents.
func (c *CapabilityCache) AgentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.agents)
}

// RebuiltAt returns when the cache was last rebuilt.
func (c *CapabilityCache) RebuiltAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rebuiltAt
}
