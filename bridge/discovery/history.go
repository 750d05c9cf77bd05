package discovery

import (
	"sort"
	"sync"

	"github.com/YmClash/vegapunk-sub006/types"
)

// handoffHistory keeps the bounded per-session handoff record books. Records
// are append-only; when a session reaches the cap, eviction is strictly
// oldest-first. Reads hand out snapshots so scoring always sees a consistent
// view at decision time.
type handoffHistory struct {
	mu       sync.RWMutex
	cap      int
	sessions map[string][]types.HandoffRecord
}

func newHandoffHistory(cap int) *handoffHistory {
	if cap <= 0 {
		cap = 50
	}
	return &handoffHistory{
		cap:      cap,
		sessions: make(map[string][]types.HandoffRecord),
	}
}

// Append adds a record to the session's history, evicting the oldest entry
// when the cap is reached.
func (h *handoffHistory) Append(sessionID string, record types.HandoffRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := append(h.sessions[sessionID], record)
	if len(records) > h.cap {
		records = records[len(records)-h.cap:]
	}
	h.sessions[sessionID] = records
}

// Recent returns a snapshot of the last n records for the session, oldest
// first.
func (h *handoffHistory) Recent(sessionID string, n int) []types.HandoffRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := h.sessions[sessionID]
	if n > len(records) {
		n = len(records)
	}
	out := make([]types.HandoffRecord, n)
	copy(out, records[len(records)-n:])
	return out
}

// All returns a snapshot of the session's full history, oldest first.
func (h *handoffHistory) All(sessionID string) []types.HandoffRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records := h.sessions[sessionID]
	out := make([]types.HandoffRecord, len(records))
	copy(out, records)
	return out
}

// Analytics aggregates a session's history for API consumers.
func (h *handoffHistory) Analytics(sessionID string) types.HandoffAnalytics {
	records := h.All(sessionID)

	agents := make(map[string]struct{})
	capabilities := make(map[string]int)
	for _, r := range records {
		agents[r.FromAgent] = struct{}{}
		agents[r.ToAgent] = struct{}{}
		if r.Capability != "" {
			capabilities[r.Capability]++
		}
	}

	usage := make([]types.CapabilityUsage, 0, len(capabilities))
	for name, count := range capabilities {
		usage = append(usage, types.CapabilityUsage{Capability: name, Count: count})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].Capability < usage[j].Capability
	})

	return types.HandoffAnalytics{
		SessionID:            sessionID,
		TotalHandoffs:        len(records),
		UniqueAgents:         len(agents),
		MostUsedCapabilities: usage,
	}
}
