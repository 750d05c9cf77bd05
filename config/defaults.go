package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:       DefaultServerConfig(),
		Discovery:    DefaultDiscoveryConfig(),
		Handoff:      DefaultHandoffConfig(),
		Tools:        DefaultToolsConfig(),
		Resources:    DefaultResourcesConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Redis:        DefaultRedisConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
	}
}

// DefaultDiscoveryConfig returns the default discovery configuration.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		AutoDiscovery:     true,
		RefreshInterval:   60 * time.Second,
		MinReliability:    0.7,
		MaxLoad:           80,
		ReliabilityWeight: 0.4,
		LoadWeight:        0.3,
		SuccessWeight:     0.3,
	}
}

// DefaultHandoffConfig returns the default handoff configuration.
func DefaultHandoffConfig() HandoffConfig {
	return HandoffConfig{
		OptimizationEnabled: true,
		ReliabilityFloor:    0.7,
		CandidateLimit:      5,
		AntiPingPongBonus:   0.1,
		AntiPingPongWindow:  3,
		LoadBonusDivisor:    1000,
		PerformanceBonus:    0.1,
		FallbackAgent:       "default-agent",
		HistoryCap:          50,
	}
}

// DefaultToolsConfig returns the default tool execution configuration.
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		MaxConcurrent:  10,
		CallTimeout:    30 * time.Second,
		RetryAttempts:  1,
		RetryBackoff:   time.Second,
		DefinitionTTL:  5 * time.Minute,
		CatalogCaching: true,
		RateLimit:      0,
		RateBurst:      1,
		Breaker: BreakerConfig{
			Enabled:             true,
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
		},
	}
}

// DefaultResourcesConfig returns the default resource access configuration.
func DefaultResourcesConfig() ResourcesConfig {
	return ResourcesConfig{
		ReadTimeout:     10 * time.Second,
		RetryAttempts:   1,
		RetryBackoff:    time.Second,
		CacheTTL:        5 * time.Minute,
		CacheBackend:    "memory",
		CacheMaxEntries: 1000,
	}
}

// DefaultOrchestratorConfig returns the default orchestrator configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		IntelligentRouting:        true,
		DiscoveryReliabilityFloor: 0.7,
		DiscoveryMaxLoad:          80,
		MetricsTableCap:           1000,
		EventQueueSize:            256,
	}
}

// DefaultRedisConfig returns the default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     "localhost:6379",
		DB:       0,
		PoolSize: 10,
	}
}

// DefaultLogConfig returns the default log configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}

// DefaultTelemetryConfig returns the default telemetry configuration.
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		ServiceName:  "vegapunk",
		OTLPEndpoint: "localhost:4317",
		SampleRate:   1.0,
	}
}
