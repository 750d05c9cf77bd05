// Package metrics provides internal Prometheus metrics collection for the
// coordination core. This package is internal and should not be imported by
// external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector registers and records the coordination core's metric families.
type Collector struct {
	// Workflow metrics
	workflowsTotal        *prometheus.CounterVec
	workflowDuration      *prometheus.HistogramVec
	workflowPhaseDuration *prometheus.HistogramVec

	// Discovery metrics
	discoveryQueriesTotal *prometheus.CounterVec
	handoffsTotal         *prometheus.CounterVec
	cacheRebuildsTotal    prometheus.Counter
	agentsKnown           prometheus.Gauge

	// Tool bridge metrics
	toolExecutionsTotal   *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolsInFlight         prometheus.Gauge
	resourceReadsTotal    *prometheus.CounterVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector registering all metric families under the
// given namespace. A nil registerer falls back to the default registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.workflowsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Total number of workflow executions",
		},
		[]string{"status"},
	)

	c.workflowDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_duration_seconds",
			Help:      "End-to-end workflow execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	c.workflowPhaseDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_phase_duration_seconds",
			Help:      "Per-phase workflow execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"phase"},
	)

	c.discoveryQueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_queries_total",
			Help:      "Total number of agent discovery queries",
		},
		[]string{"status"},
	)

	c.handoffsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoffs_total",
			Help:      "Total number of recorded agent handoffs",
		},
		[]string{"capability"},
	)

	c.cacheRebuildsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_cache_rebuilds_total",
			Help:      "Total number of capability cache rebuilds",
		},
	)

	c.agentsKnown = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agents_known",
			Help:      "Number of agents currently known to the capability cache",
		},
	)

	c.toolExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Total number of tool executions",
		},
		[]string{"tool", "status"},
	)

	c.toolExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_execution_duration_seconds",
			Help:      "Tool execution duration in seconds, including queueing",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool"},
	)

	c.toolsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tools_in_flight",
			Help:      "Number of tool calls currently in flight",
		},
	)

	c.resourceReadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_reads_total",
			Help:      "Total number of resource reads",
		},
		[]string{"status"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordWorkflow records one workflow execution.
func (c *Collector) RecordWorkflow(success bool, duration time.Duration) {
	status := boolStatus(success)
	c.workflowsTotal.WithLabelValues(status).Inc()
	c.workflowDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordPhase records one workflow phase duration.
func (c *Collector) RecordPhase(phase string, duration time.Duration) {
	c.workflowPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordDiscoveryQuery records one discovery query.
func (c *Collector) RecordDiscoveryQuery(success bool) {
	c.discoveryQueriesTotal.WithLabelValues(boolStatus(success)).Inc()
}

// RecordHandoff records one executed handoff.
func (c *Collector) RecordHandoff(capability string) {
	c.handoffsTotal.WithLabelValues(capability).Inc()
}

// RecordCacheRebuild records one capability cache rebuild with the resulting
// agent count.
func (c *Collector) RecordCacheRebuild(agentCount int) {
	c.cacheRebuildsTotal.Inc()
	c.agentsKnown.Set(float64(agentCount))
}

// RecordToolExecution records one tool execution.
func (c *Collector) RecordToolExecution(tool string, success bool, duration time.Duration) {
	c.toolExecutionsTotal.WithLabelValues(tool, boolStatus(success)).Inc()
	c.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ToolStarted increments the in-flight gauge.
func (c *Collector) ToolStarted() { c.toolsInFlight.Inc() }

// ToolSettled decrements the in-flight gauge.
func (c *Collector) ToolSettled() { c.toolsInFlight.Dec() }

// RecordResourceRead records one resource read.
func (c *Collector) RecordResourceRead(success bool) {
	c.resourceReadsTotal.WithLabelValues(boolStatus(success)).Inc()
}

// RecordCacheHit records a cache hit for the given cache type.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given cache type.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

func boolStatus(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
