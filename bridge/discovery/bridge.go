// Package discovery implements the Agent Discovery Bridge: it translates a
// workflow's abstract requirements into a ranked list of concrete agents,
// selects handoff targets using historical context, and maintains the
// capability cache refreshed from ADP topology notifications.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/internal/events"
	"github.com/YmClash/vegapunk-sub006/internal/metrics"
	"github.com/YmClash/vegapunk-sub006/protocol/adp"
	"github.com/YmClash/vegapunk-sub006/types"
	"go.uber.org/zap"
)

// NotificationType identifies a discovery bridge lifecycle notification.
type NotificationType string

const (
	NotificationAgentDiscovered NotificationType = "agent_discovered"
	NotificationAgentLost       NotificationType = "agent_lost"
	NotificationTopologyChanged NotificationType = "topology_changed"
	NotificationHandoffRecorded NotificationType = "handoff_recorded"
)

// Notification is one discovery bridge lifecycle notification. The
// coordinator subscribes by pulling from the bridge's queue.
type Notification struct {
	Type      NotificationType     `json:"type"`
	AgentID   string               `json:"agent_id,omitempty"`
	SessionID string               `json:"session_id,omitempty"`
	Record    *types.HandoffRecord `json:"record,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Requirements describes what a workflow needs from an agent. An empty
// capability list means "any agent".
type Requirements struct {
	Capabilities   []string `json:"capabilities,omitempty"`
	ExcludeAgents  []string `json:"exclude_agents,omitempty"`
	MinReliability float64  `json:"min_reliability"` // 0-1
	MaxLoad        float64  `json:"max_load"`        // 0-100
}

// Bridge is the Agent Discovery Bridge.
type Bridge struct {
	client     adp.Client
	cfg        config.DiscoveryConfig
	handoffCfg config.HandoffConfig

	cache         *CapabilityCache
	history       *handoffHistory
	notifications *events.Queue[Notification]
	collector     *metrics.Collector
	logger        *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
}

// NewBridge creates an Agent Discovery Bridge. The collector may be nil.
func NewBridge(client adp.Client, cfg config.DiscoveryConfig, handoffCfg config.HandoffConfig, collector *metrics.Collector, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "discovery_bridge"))
	return &Bridge{
		client:        client,
		cfg:           cfg,
		handoffCfg:    handoffCfg,
		cache:         NewCapabilityCache(logger),
		history:       newHandoffHistory(handoffCfg.HistoryCap),
		notifications: events.NewQueue[Notification](256),
		collector:     collector,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start performs the initial cache build and launches the refresh loop. A
// failed initial build is recovered by the next refresh; it does not fail
// startup.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("discovery bridge already started")
	}
	b.started = true
	b.mu.Unlock()

	if err := b.rebuild(ctx); err != nil {
		b.logger.Warn("initial capability cache build failed", zap.Error(err))
	}

	b.wg.Add(1)
	go b.refreshLoop()

	b.logger.Info("discovery bridge started",
		zap.Duration("refresh_interval", b.cfg.RefreshInterval),
		zap.Bool("auto_discovery", b.cfg.AutoDiscovery),
	)
	return nil
}

// Started reports whether the bridge has been started.
func (b *Bridge) Started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

// Close stops the refresh loop and closes the notification queue.
func (b *Bridge) Close() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()

	close(b.stopCh)
	b.wg.Wait()
	b.notifications.Close()
}

// Notifications returns the bridge's lifecycle notification queue.
func (b *Bridge) Notifications() <-chan Notification {
	return b.notifications.Chan()
}

// Cache exposes the capability cache for health probes.
func (b *Bridge) Cache() *CapabilityCache {
	return b.cache
}

// refreshLoop rebuilds the cache on ADP topology notifications and on a
// fixed interval as a safety net.
func (b *Bridge) refreshLoop() {
	defer b.wg.Done()

	interval := b.cfg.RefreshInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return

		case event, ok := <-b.client.Events():
			if !ok {
				b.logger.Warn("adp event channel closed, refresh continues on interval only")
				b.waitForStop(ticker)
				return
			}
			b.handleEvent(event)

		case <-ticker.C:
			if err := b.rebuild(context.Background()); err != nil {
				b.logger.Warn("scheduled cache refresh failed", zap.Error(err))
			}
		}
	}
}

// waitForStop keeps interval-only refresh running after the ADP event
// channel closes.
func (b *Bridge) waitForStop(ticker *time.Ticker) {
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			if err := b.rebuild(context.Background()); err != nil {
				b.logger.Warn("scheduled cache refresh failed", zap.Error(err))
			}
		}
	}
}

func (b *Bridge) handleEvent(event adp.Event) {
	if err := b.rebuild(context.Background()); err != nil {
		b.logger.Warn("event-driven cache refresh failed",
			zap.String("event", string(event.Type)),
			zap.Error(err),
		)
	}

	notification := Notification{AgentID: event.AgentID, Timestamp: time.Now()}
	switch event.Type {
	case adp.EventAgentRegistered:
		notification.Type = NotificationAgentDiscovered
	case adp.EventAgentUnregistered:
		notification.Type = NotificationAgentLost
	default:
		notification.Type = NotificationTopologyChanged
	}
	b.notifications.Publish(notification)
}

func (b *Bridge) rebuild(ctx context.Context) error {
	if err := b.cache.Rebuild(ctx, b.client); err != nil {
		return err
	}
	if b.collector != nil {
		b.collector.RecordCacheRebuild(b.cache.AgentCount())
	}
	return nil
}

// DiscoverAgents returns agents satisfying the requirements, ranked by the
// composite score. An ADP query failure yields an empty list: the caller
// treats that as "no agents available", not a fatal error.
func (b *Bridge) DiscoverAgents(ctx context.Context, req Requirements) []types.AgentProfile {
	candidates, err := b.candidateSet(ctx, req)
	if err != nil {
		b.logger.Warn("agent discovery query failed", zap.Error(err))
		if b.collector != nil {
			b.collector.RecordDiscoveryQuery(false)
		}
		return []types.AgentProfile{}
	}

	excluded := make(map[string]struct{}, len(req.ExcludeAgents))
	for _, id := range req.ExcludeAgents {
		excluded[id] = struct{}{}
	}

	// Filter order: exclusion, reliability floor, load ceiling, then
	// capability membership.
	filtered := make([]types.AgentProfile, 0, len(candidates))
	for _, agent := range candidates {
		if _, skip := excluded[agent.AgentID]; skip {
			continue
		}
		if agent.AvgReliability() < req.MinReliability {
			continue
		}
		if req.MaxLoad > 0 && agent.Load > req.MaxLoad {
			continue
		}
		if len(req.Capabilities) > 0 && !advertisesAny(&agent, req.Capabilities) {
			continue
		}
		filtered = append(filtered, agent)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		si, sj := b.scoreAgent(&filtered[i]), b.scoreAgent(&filtered[j])
		if si != sj {
			return si > sj
		}
		return filtered[i].AgentID < filtered[j].AgentID
	})

	if b.collector != nil {
		b.collector.RecordDiscoveryQuery(true)
	}
	b.logger.Debug("agents discovered",
		zap.String("requirements", describeRequirements(req)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(filtered)),
	)
	return filtered
}

// candidateSet returns the base agent set: a live ADP enumeration when
// auto-discovery is enabled, the cached capability index otherwise.
func (b *Bridge) candidateSet(ctx context.Context, req Requirements) ([]types.AgentProfile, error) {
	if b.cfg.AutoDiscovery {
		return b.client.ListAgents(ctx)
	}
	if len(req.Capabilities) == 0 {
		return b.cache.AllAgents(), nil
	}

	seen := make(map[string]struct{})
	var agents []types.AgentProfile
	for _, capability := range req.Capabilities {
		for _, agent := range b.cache.AgentsFor(capability) {
			if _, dup := seen[agent.AgentID]; dup {
				continue
			}
			seen[agent.AgentID] = struct{}{}
			agents = append(agents, agent)
		}
	}
	return agents, nil
}

// scoreAgent computes the composite discovery score. With default weights:
// 0.4*avgReliability + 0.3*(1 - load/100) + 0.3*successRate.
func (b *Bridge) scoreAgent(agent *types.AgentProfile) float64 {
	return b.cfg.ReliabilityWeight*agent.AvgReliability() +
		b.cfg.LoadWeight*(1-agent.Load/100) +
		b.cfg.SuccessWeight*agent.Performance.SuccessRate
}

func advertisesAny(agent *types.AgentProfile, capabilities []string) bool {
	for _, name := range capabilities {
		if agent.HasCapability(name) {
			return true
		}
	}
	return false
}

// OptimizeHandoff selects the handoff target for delegating work with the
// given capability away from fromAgent. It always returns a decision; on no
// match the configured fallback agent is returned at low confidence.
func (b *Bridge) OptimizeHandoff(ctx context.Context, fromAgent, sessionID, targetCapability string) types.HandoffDecision {
	if !b.handoffCfg.OptimizationEnabled {
		return b.directHandoff(ctx, targetCapability)
	}

	matches, err := b.client.QueryCapability(ctx, adp.CapabilityQuery{
		Capability:     targetCapability,
		MinReliability: b.handoffCfg.ReliabilityFloor,
		MaxResults:     b.handoffCfg.CandidateLimit,
	})
	if err != nil || len(matches) == 0 {
		if err != nil {
			b.logger.Warn("capability query failed, using fallback agent",
				zap.String("capability", targetCapability),
				zap.Error(err),
			)
		}
		return types.HandoffDecision{
			TargetAgent: b.handoffCfg.FallbackAgent,
			Confidence:  0.3,
			Reasoning:   fmt.Sprintf("no capability match for %q, falling back to %s", targetCapability, b.handoffCfg.FallbackAgent),
		}
	}

	recent := b.history.Recent(sessionID, b.handoffCfg.AntiPingPongWindow)

	best := matches[0]
	bestScore := b.adjustScore(&best, recent)
	for i := 1; i < len(matches); i++ {
		if score := b.adjustScore(&matches[i], recent); score > bestScore {
			best = matches[i]
			bestScore = score
		}
	}

	confidence := bestScore
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	return types.HandoffDecision{
		TargetAgent: best.Agent.AgentID,
		Confidence:  confidence,
		Reasoning: fmt.Sprintf(
			"optimization pass applied over %d candidates for %q: selected %s (adjusted score %.3f, base %.3f)",
			len(matches), targetCapability, best.Agent.AgentID, bestScore, best.MatchScore,
		),
	}
}

// directHandoff queries ADP for the top capability match without the
// secondary scoring pass.
func (b *Bridge) directHandoff(ctx context.Context, targetCapability string) types.HandoffDecision {
	matches, err := b.client.QueryCapability(ctx, adp.CapabilityQuery{
		Capability: targetCapability,
		MaxResults: 1,
	})
	if err != nil || len(matches) == 0 {
		return types.HandoffDecision{
			TargetAgent: b.handoffCfg.FallbackAgent,
			Confidence:  0.3,
			Reasoning:   fmt.Sprintf("direct query found no agent for %q, falling back to %s", targetCapability, b.handoffCfg.FallbackAgent),
		}
	}
	return types.HandoffDecision{
		TargetAgent: matches[0].Agent.AgentID,
		Confidence:  0.7,
		Reasoning:   fmt.Sprintf("direct capability match for %q", targetCapability),
	}
}

// adjustScore applies the secondary scoring pass: the anti-ping-pong bonus
// when the candidate is absent from the recent history window, a load bonus,
// and a performance bonus. The recent slice is a snapshot taken once per
// decision, so all candidates see the same history.
func (b *Bridge) adjustScore(match *adp.CapabilityMatch, recent []types.HandoffRecord) float64 {
	score := match.MatchScore

	recentlyUsed := false
	for _, record := range recent {
		if record.ToAgent == match.Agent.AgentID {
			recentlyUsed = true
			break
		}
	}
	if !recentlyUsed {
		score += b.handoffCfg.AntiPingPongBonus
	}

	if b.handoffCfg.LoadBonusDivisor > 0 {
		score += (100 - match.Agent.Load) / b.handoffCfg.LoadBonusDivisor
	}
	score += match.Agent.Performance.SuccessRate * b.handoffCfg.PerformanceBonus

	return score
}

// RecordHandoff appends an executed delegation to the session history and
// publishes a notification. Records are immutable once appended.
func (b *Bridge) RecordHandoff(sessionID string, record types.HandoffRecord) {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	b.history.Append(sessionID, record)

	if b.collector != nil {
		b.collector.RecordHandoff(record.Capability)
	}
	b.notifications.Publish(Notification{
		Type:      NotificationHandoffRecorded,
		AgentID:   record.ToAgent,
		SessionID: sessionID,
		Record:    &record,
		Timestamp: record.Timestamp,
	})

	b.logger.Info("handoff recorded",
		zap.String("session_id", sessionID),
		zap.String("from", record.FromAgent),
		zap.String("to", record.ToAgent),
		zap.String("capability", record.Capability),
	)
}

// History returns a snapshot of the session's handoff history, oldest first.
func (b *Bridge) History(sessionID string) []types.HandoffRecord {
	return b.history.All(sessionID)
}

// Analytics aggregates the session's handoff history.
func (b *Bridge) Analytics(sessionID string) types.HandoffAnalytics {
	return b.history.Analytics(sessionID)
}

// describeRequirements renders requirements for logs.
func describeRequirements(req Requirements) string {
	if len(req.Capabilities) == 0 {
		return fmt.Sprintf("any capability, min_reliability=%.2f max_load=%.0f", req.MinReliability, req.MaxLoad)
	}
	return fmt.Sprintf("capabilities=[%s] min_reliability=%.2f max_load=%.0f",
		strings.Join(req.Capabilities, ","), req.MinReliability, req.MaxLoad)
}
