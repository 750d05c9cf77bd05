// Package config provides unified configuration loading for the coordination
// core: defaults, YAML file, then environment variable overrides, in that
// precedence order.
package config

import (
	"fmt"
	"time"
)

// Config is the complete configuration of the coordination core.
type Config struct {
	// Server configures the daemon's HTTP surface (metrics, health).
	Server ServerConfig `yaml:"server"`

	// Discovery configures the capability cache and agent discovery bridge.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Handoff configures handoff target selection.
	Handoff HandoffConfig `yaml:"handoff"`

	// Tools configures tool execution through the tool bridge.
	Tools ToolsConfig `yaml:"tools"`

	// Resources configures resource reads and the resource cache.
	Resources ResourcesConfig `yaml:"resources"`

	// Orchestrator configures the workflow coordinator.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Redis configures the optional shared resource-cache backend.
	Redis RedisConfig `yaml:"redis"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`

	// Telemetry configures OpenTelemetry export.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the daemon's HTTP endpoints.
type ServerConfig struct {
	MetricsPort     int           `yaml:"metrics_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DiscoveryConfig configures the capability cache and discovery filters.
type DiscoveryConfig struct {
	// AutoDiscovery enables live ADP enumeration on every discovery query.
	// When disabled, queries are served from the capability cache index.
	AutoDiscovery bool `yaml:"auto_discovery"`

	// RefreshInterval is the safety-net interval for full cache rebuilds.
	// Event-driven rebuilds happen on every ADP topology notification.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// MinReliability is the default reliability floor (0-1).
	MinReliability float64 `yaml:"min_reliability"`

	// MaxLoad is the default load ceiling (0-100).
	MaxLoad float64 `yaml:"max_load"`

	// Scoring weights for the composite discovery score. They must sum to 1.
	ReliabilityWeight float64 `yaml:"reliability_weight"`
	LoadWeight        float64 `yaml:"load_weight"`
	SuccessWeight     float64 `yaml:"success_weight"`
}

// HandoffConfig configures handoff target selection. The bonus values are
// empirically chosen ranking constants, kept configurable since their exact
// values only affect ranking quality, not correctness.
type HandoffConfig struct {
	// OptimizationEnabled enables the secondary scoring pass over ADP's
	// capability matches. When disabled, the top ADP match is used directly.
	OptimizationEnabled bool `yaml:"optimization_enabled"`

	// ReliabilityFloor is the floor passed to ADP's capability query.
	ReliabilityFloor float64 `yaml:"reliability_floor"`

	// CandidateLimit caps the number of candidates scored.
	CandidateLimit int `yaml:"candidate_limit"`

	// AntiPingPongBonus is added when a candidate is absent from the last
	// AntiPingPongWindow entries of the session's handoff history.
	AntiPingPongBonus  float64 `yaml:"anti_ping_pong_bonus"`
	AntiPingPongWindow int     `yaml:"anti_ping_pong_window"`

	// LoadBonusDivisor scales the load bonus: (100-load)/divisor.
	LoadBonusDivisor float64 `yaml:"load_bonus_divisor"`

	// PerformanceBonus scales the success-rate bonus: successRate*bonus.
	PerformanceBonus float64 `yaml:"performance_bonus"`

	// FallbackAgent is returned at low confidence when no candidate matches.
	FallbackAgent string `yaml:"fallback_agent"`

	// HistoryCap bounds the per-session handoff history; eviction is strictly
	// oldest-first.
	HistoryCap int `yaml:"history_cap"`
}

// ToolsConfig configures tool execution.
type ToolsConfig struct {
	// MaxConcurrent is the global ceiling on in-flight tool calls. Exceeding
	// it is a rejection, not a queue.
	MaxConcurrent int64 `yaml:"max_concurrent"`

	// CallTimeout bounds a single tool call.
	CallTimeout time.Duration `yaml:"call_timeout"`

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryBackoff is the linear backoff unit: attempt N waits N*RetryBackoff.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// DefinitionTTL bounds how long a cached tool definition stays valid.
	DefinitionTTL time.Duration `yaml:"definition_ttl"`

	// CatalogCaching serves getAvailableTools/Resources from cache when
	// populated instead of querying TIP.
	CatalogCaching bool `yaml:"catalog_caching"`

	// RateLimit caps calls per tool per second; 0 disables rate limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	// Breaker configures the circuit breaker around raw TIP calls.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker around TIP calls.
type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
}

// ResourcesConfig configures resource reads.
type ResourcesConfig struct {
	// ReadTimeout bounds a single resource read.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryBackoff is the linear backoff unit.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// CacheTTL bounds resource cache entries. Entries are invalidated by TTL
	// only, never by explicit push invalidation.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// CacheBackend selects the cache store: "memory" or "redis".
	CacheBackend string `yaml:"cache_backend"`

	// CacheMaxEntries bounds the in-memory cache; eviction is oldest-first.
	CacheMaxEntries int `yaml:"cache_max_entries"`
}

// OrchestratorConfig configures the workflow coordinator.
type OrchestratorConfig struct {
	// IntelligentRouting enables the discovery warm-up phase.
	IntelligentRouting bool `yaml:"intelligent_routing"`

	// DiscoveryReliabilityFloor and DiscoveryMaxLoad are the fixed filters
	// used by the warm-up discovery phase.
	DiscoveryReliabilityFloor float64 `yaml:"discovery_reliability_floor"`
	DiscoveryMaxLoad          float64 `yaml:"discovery_max_load"`

	// MetricsTableCap bounds the in-memory workflow metrics table.
	MetricsTableCap int `yaml:"metrics_table_cap"`

	// EventQueueSize bounds the lifecycle notification queue.
	EventQueueSize int `yaml:"event_queue_size"`
}

// RedisConfig configures the optional Redis resource-cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Tools.MaxConcurrent <= 0 {
		return fmt.Errorf("tools.max_concurrent must be positive, got %d", c.Tools.MaxConcurrent)
	}
	if c.Tools.CallTimeout <= 0 {
		return fmt.Errorf("tools.call_timeout must be positive, got %s", c.Tools.CallTimeout)
	}
	if c.Tools.RetryAttempts < 0 {
		return fmt.Errorf("tools.retry_attempts must not be negative, got %d", c.Tools.RetryAttempts)
	}
	if c.Resources.ReadTimeout <= 0 {
		return fmt.Errorf("resources.read_timeout must be positive, got %s", c.Resources.ReadTimeout)
	}
	if c.Resources.CacheBackend != "memory" && c.Resources.CacheBackend != "redis" {
		return fmt.Errorf("resources.cache_backend must be memory or redis, got %q", c.Resources.CacheBackend)
	}
	if c.Discovery.MinReliability < 0 || c.Discovery.MinReliability > 1 {
		return fmt.Errorf("discovery.min_reliability must be in [0,1], got %v", c.Discovery.MinReliability)
	}
	if c.Discovery.MaxLoad < 0 || c.Discovery.MaxLoad > 100 {
		return fmt.Errorf("discovery.max_load must be in [0,100], got %v", c.Discovery.MaxLoad)
	}
	weights := c.Discovery.ReliabilityWeight + c.Discovery.LoadWeight + c.Discovery.SuccessWeight
	if weights < 0.999 || weights > 1.001 {
		return fmt.Errorf("discovery scoring weights must sum to 1, got %v", weights)
	}
	if c.Handoff.ReliabilityFloor < 0 || c.Handoff.ReliabilityFloor > 1 {
		return fmt.Errorf("handoff.reliability_floor must be in [0,1], got %v", c.Handoff.ReliabilityFloor)
	}
	if c.Handoff.HistoryCap <= 0 {
		return fmt.Errorf("handoff.history_cap must be positive, got %d", c.Handoff.HistoryCap)
	}
	if c.Handoff.CandidateLimit <= 0 {
		return fmt.Errorf("handoff.candidate_limit must be positive, got %d", c.Handoff.CandidateLimit)
	}
	if c.Orchestrator.MetricsTableCap <= 0 {
		return fmt.Errorf("orchestrator.metrics_table_cap must be positive, got %d", c.Orchestrator.MetricsTableCap)
	}
	return nil
}
