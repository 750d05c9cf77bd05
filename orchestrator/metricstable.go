package orchestrator

import (
	"sync"

	"github.com/YmClash/vegapunk-sub006/types"
)

// metricsTable is the bounded in-memory table of per-workflow metrics records
// plus cumulative rolling aggregates. Records are immutable once stored;
// eviction is oldest-first by insertion order. Aggregates count every run
// ever recorded, surviving table eviction.
type metricsTable struct {
	mu      sync.RWMutex
	cap     int
	records map[string]types.WorkflowMetricsRecord
	order   []string

	totalWorkflows  int
	successes       int
	totalDurationMs int64
	totalHandoffs   int
	totalToolCalls  int
}

func newMetricsTable(capacity int) *metricsTable {
	if capacity <= 0 {
		capacity = 1
	}
	return &metricsTable{
		cap:     capacity,
		records: make(map[string]types.WorkflowMetricsRecord),
	}
}

func (t *metricsTable) Put(record types.WorkflowMetricsRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[record.WorkflowID]; !exists {
		t.order = append(t.order, record.WorkflowID)
	}
	t.records[record.WorkflowID] = record

	for len(t.order) > t.cap {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.records, oldest)
	}

	t.totalWorkflows++
	if record.Success {
		t.successes++
	}
	t.totalDurationMs += record.TotalExecutionTimeMs
	t.totalHandoffs += record.Handoffs
	t.totalToolCalls += len(record.ToolsExecuted)
}

func (t *metricsTable) Get(workflowID string) (types.WorkflowMetricsRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	record, ok := t.records[workflowID]
	return record, ok
}

func (t *metricsTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

func (t *metricsTable) Rolling() types.RollingMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rolling := types.RollingMetrics{
		TotalWorkflows: t.totalWorkflows,
		TotalHandoffs:  t.totalHandoffs,
		TotalToolCalls: t.totalToolCalls,
	}
	if t.totalWorkflows > 0 {
		rolling.SuccessRate = float64(t.successes) / float64(t.totalWorkflows)
		rolling.AvgExecutionTimeMs = float64(t.totalDurationMs) / float64(t.totalWorkflows)
	}
	return rolling
}
