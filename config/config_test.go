package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(10), cfg.Tools.MaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.Tools.CallTimeout)
	assert.Equal(t, 10*time.Second, cfg.Resources.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Tools.DefinitionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Resources.CacheTTL)
	assert.Equal(t, 0.7, cfg.Handoff.ReliabilityFloor)
	assert.Equal(t, 5, cfg.Handoff.CandidateLimit)
	assert.Equal(t, 3, cfg.Handoff.AntiPingPongWindow)
	assert.Equal(t, 50, cfg.Handoff.HistoryCap)
	assert.Equal(t, 0.4, cfg.Discovery.ReliabilityWeight)
	assert.Equal(t, 0.3, cfg.Discovery.LoadWeight)
	assert.Equal(t, 0.3, cfg.Discovery.SuccessWeight)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max_concurrent", func(c *Config) { c.Tools.MaxConcurrent = 0 }},
		{"zero call_timeout", func(c *Config) { c.Tools.CallTimeout = 0 }},
		{"negative retry_attempts", func(c *Config) { c.Tools.RetryAttempts = -1 }},
		{"bad cache_backend", func(c *Config) { c.Resources.CacheBackend = "memcached" }},
		{"reliability floor above one", func(c *Config) { c.Handoff.ReliabilityFloor = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoaderReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
tools:
  max_concurrent: 4
  call_timeout: 5s
handoff:
  fallback_agent: backup-agent
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, int64(4), cfg.Tools.MaxConcurrent)
	assert.Equal(t, 5*time.Second, cfg.Tools.CallTimeout)
	assert.Equal(t, "backup-agent", cfg.Handoff.FallbackAgent)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Resources.ReadTimeout)
}

func TestLoaderMissingFileErrors(t *testing.T) {
	_, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	assert.Error(t, err)
}

func TestLoaderEnvOverrides(t *testing.T) {
	t.Setenv("VEGAPUNK_TOOLS_MAX_CONCURRENT", "7")
	t.Setenv("VEGAPUNK_TOOLS_CALL_TIMEOUT", "12s")
	t.Setenv("VEGAPUNK_DISCOVERY_MIN_RELIABILITY", "0.85")
	t.Setenv("VEGAPUNK_HANDOFF_OPTIMIZATION_ENABLED", "false")
	t.Setenv("VEGAPUNK_LOG_FORMAT", "console")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.Tools.MaxConcurrent)
	assert.Equal(t, 12*time.Second, cfg.Tools.CallTimeout)
	assert.Equal(t, 0.85, cfg.Discovery.MinReliability)
	assert.False(t, cfg.Handoff.OptimizationEnabled)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoaderEnvOverridesBeatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools:\n  max_concurrent: 4\n"), 0o600))
	t.Setenv("VEGAPUNK_TOOLS_MAX_CONCURRENT", "9")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, int64(9), cfg.Tools.MaxConcurrent)
}
