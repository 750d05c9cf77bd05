package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/protocol/tip"
	"github.com/YmClash/vegapunk-sub006/testutil"
	"github.com/YmClash/vegapunk-sub006/testutil/mocks"
	"github.com/YmClash/vegapunk-sub006/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogClient(names ...string) *mocks.TIPClient {
	client := &mocks.TIPClient{}
	client.ListToolsFn = func(ctx context.Context) ([]types.ToolDefinition, error) {
		defs := make([]types.ToolDefinition, 0, len(names))
		for _, name := range names {
			defs = append(defs, types.ToolDefinition{Name: name})
		}
		return defs, nil
	}
	return client
}

func newTestToolBridge(t *testing.T, client tip.Client, toolsCfg config.ToolsConfig) *Bridge {
	t.Helper()
	b := NewBridge(client, toolsCfg, config.DefaultResourcesConfig(), nil, nil)
	t.Cleanup(b.Close)
	return b
}

func TestExecuteToolSuccess(t *testing.T) {
	client := catalogClient("echo")
	client.CallToolFn = func(ctx context.Context, name string, args json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
		return json.RawMessage(`{"echoed":true}`), nil
	}

	b := newTestToolBridge(t, client, config.DefaultToolsConfig())
	result := b.ExecuteTool(testutil.TestContext(t), "echo", json.RawMessage(`{}`), tip.ExecutionContext{SessionID: "s1"})

	require.True(t, result.Success, "error: %s", result.Error)
	assert.JSONEq(t, `{"echoed":true}`, string(result.Result))
	assert.Equal(t, "echo", result.Metadata.ToolName)
	assert.Equal(t, 1, result.Metadata.Attempts)
	assert.GreaterOrEqual(t, result.Metadata.ExecutionTimeMs, int64(0))
}

func TestExecuteToolUnknownToolFailsWithoutCall(t *testing.T) {
	client := catalogClient("echo")

	b := newTestToolBridge(t, client, config.DefaultToolsConfig())
	result := b.ExecuteTool(testutil.TestContext(t), "does-not-exist", nil, tip.ExecutionContext{})

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
	assert.Zero(t, client.CallToolCalls.Load())
}

func TestExecuteToolTimeoutSettlesQuickly(t *testing.T) {
	client := catalogClient("slow")
	client.CallToolFn = func(ctx context.Context, name string, args json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return json.RawMessage(`{}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	cfg := config.DefaultToolsConfig()
	cfg.CallTimeout = 50 * time.Millisecond
	cfg.RetryAttempts = 0
	b := newTestToolBridge(t, client, cfg)

	start := time.Now()
	result := b.ExecuteTool(testutil.TestContext(t), "slow", nil, tip.ExecutionContext{})
	elapsed := time.Since(start)

	require.False(t, result.Success)
	assert.Contains(t, result.Error, "timeout")
	assert.Equal(t, 1, result.Metadata.Attempts)
	assert.Less(t, elapsed, 150*time.Millisecond, "timeout must settle near the deadline, not the call latency")
}

func TestExecuteToolRetriesWithBackoff(t *testing.T) {
	client := catalogClient("flaky")
	var calls atomic.Int64
	client.CallToolFn = func(ctx context.Context, name string, args json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient failure")
		}
		return json.RawMessage(`{"ok":true}`), nil
	}

	cfg := config.DefaultToolsConfig()
	cfg.RetryAttempts = 1
	cfg.RetryBackoff = 10 * time.Millisecond
	b := newTestToolBridge(t, client, cfg)

	result := b.ExecuteTool(testutil.TestContext(t), "flaky", nil, tip.ExecutionContext{})

	require.True(t, result.Success, "error: %s", result.Error)
	assert.Equal(t, 2, result.Metadata.Attempts)
}

func TestExecuteToolResultTotality(t *testing.T) {
	client := catalogClient("broken")
	client.CallToolFn = func(ctx context.Context, name string, args json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
		return nil, errors.New("downstream exploded")
	}

	cfg := config.DefaultToolsConfig()
	cfg.RetryAttempts = 0
	b := newTestToolBridge(t, client, cfg)

	result := b.ExecuteTool(testutil.TestContext(t), "broken", nil, tip.ExecutionContext{})

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.GreaterOrEqual(t, result.Metadata.ExecutionTimeMs, int64(0))
}

func TestExecuteToolConcurrencyCeilingRejects(t *testing.T) {
	client := catalogClient("hold")
	release := make(chan struct{})
	client.CallToolFn = func(ctx context.Context, name string, args json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
		select {
		case <-release:
			return json.RawMessage(`{}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	cfg := config.DefaultToolsConfig()
	cfg.MaxConcurrent = 2
	cfg.RetryAttempts = 0
	b := newTestToolBridge(t, client, cfg)

	// Warm the definition cache so in-flight calls do not race the catalog
	// fetch.
	_, err := b.AvailableTools(testutil.TestContext(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var rejected atomic.Int64
	results := make(chan types.ToolExecutionResult, 3)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- b.ExecuteTool(testutil.TestContext(t), "hold", nil, tip.ExecutionContext{})
		}()
	}

	// Wait until both held calls are actually in flight.
	testutil.AssertEventuallyTrue(t, func() bool {
		return client.CallToolCalls.Load() == 2
	}, 2*time.Second)

	overflow := b.ExecuteTool(testutil.TestContext(t), "hold", nil, tip.ExecutionContext{})
	require.False(t, overflow.Success)
	assert.Contains(t, overflow.Error, "concurrency ceiling")
	assert.Zero(t, overflow.Metadata.Attempts, "rejection must not consume a retry slot")
	rejected.Add(1)

	close(release)
	wg.Wait()
	close(results)

	for result := range results {
		assert.True(t, result.Success, "held calls should complete: %s", result.Error)
	}
	assert.Equal(t, int64(1), rejected.Load())
}

func TestExecuteToolRateLimited(t *testing.T) {
	client := catalogClient("limited")

	cfg := config.DefaultToolsConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	b := newTestToolBridge(t, client, cfg)

	first := b.ExecuteTool(testutil.TestContext(t), "limited", nil, tip.ExecutionContext{})
	require.True(t, first.Success, "error: %s", first.Error)

	second := b.ExecuteTool(testutil.TestContext(t), "limited", nil, tip.ExecutionContext{})
	require.False(t, second.Success)
	assert.Contains(t, second.Error, "rate limit")
}

func TestAccessResourceCachesWithinTTL(t *testing.T) {
	client := catalogClient()
	client.ReadResourceFn = func(ctx context.Context, uri string) (string, error) {
		return "payload for " + uri, nil
	}

	b := newTestToolBridge(t, client, config.DefaultToolsConfig())

	first := b.AccessResource(testutil.TestContext(t), "doc://reports/q3")
	require.True(t, first.Success)
	assert.False(t, first.FromCache)

	second := b.AccessResource(testutil.TestContext(t), "doc://reports/q3")
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, int64(1), client.ReadResourceCalls.Load())
	assert.LessOrEqual(t, second.AccessTimeMs, first.AccessTimeMs)
}

func TestAccessResourceExpiredEntryRefetches(t *testing.T) {
	client := catalogClient()
	client.ReadResourceFn = func(ctx context.Context, uri string) (string, error) {
		return "fresh", nil
	}

	resCfg := config.DefaultResourcesConfig()
	resCfg.CacheTTL = time.Millisecond
	b := NewBridge(client, config.DefaultToolsConfig(), resCfg, nil, nil)
	t.Cleanup(b.Close)

	first := b.AccessResource(testutil.TestContext(t), "doc://volatile")
	require.True(t, first.Success)

	time.Sleep(5 * time.Millisecond)

	second := b.AccessResource(testutil.TestContext(t), "doc://volatile")
	require.True(t, second.Success)
	assert.False(t, second.FromCache)
	assert.Equal(t, int64(2), client.ReadResourceCalls.Load())
}

func TestAccessResourceFailureReturnsErrorResult(t *testing.T) {
	client := catalogClient()
	client.ReadResourceFn = func(ctx context.Context, uri string) (string, error) {
		return "", errors.New("resource gone")
	}

	resCfg := config.DefaultResourcesConfig()
	resCfg.RetryAttempts = 0
	b := NewBridge(client, config.DefaultToolsConfig(), resCfg, nil, nil)
	t.Cleanup(b.Close)

	result := b.AccessResource(testutil.TestContext(t), "doc://missing")

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, "doc://missing", result.URI)
	assert.Zero(t, client.CallToolCalls.Load())
}

func TestAvailableToolsServedFromCatalogCache(t *testing.T) {
	client := catalogClient("echo", "search")

	b := newTestToolBridge(t, client, config.DefaultToolsConfig())

	first, err := b.AvailableTools(testutil.TestContext(t))
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := b.AvailableTools(testutil.TestContext(t))
	require.NoError(t, err)
	require.Len(t, second, 2)

	assert.Equal(t, int64(1), client.ListToolsCalls.Load())
	assert.Zero(t, client.CallToolCalls.Load(), "catalog reads must never execute a tool")
}

func TestAvailableToolsBypassesCacheWhenDisabled(t *testing.T) {
	client := catalogClient("echo")

	cfg := config.DefaultToolsConfig()
	cfg.CatalogCaching = false
	b := newTestToolBridge(t, client, cfg)

	_, err := b.AvailableTools(testutil.TestContext(t))
	require.NoError(t, err)
	_, err = b.AvailableTools(testutil.TestContext(t))
	require.NoError(t, err)

	assert.Equal(t, int64(2), client.ListToolsCalls.Load())
}

func TestAvailableResourcesErrorsWhenTIPDown(t *testing.T) {
	client := &mocks.TIPClient{}
	client.ListResourcesFn = func(ctx context.Context) ([]types.ResourceDescriptor, error) {
		return nil, errors.New("tip unreachable")
	}

	b := newTestToolBridge(t, client, config.DefaultToolsConfig())

	_, err := b.AvailableResources(testutil.TestContext(t))
	require.Error(t, err)
	assert.Equal(t, types.ErrProtocolUnavailable, types.GetErrorCode(err))
}

func TestToolNotificationsPublished(t *testing.T) {
	client := catalogClient("echo")

	b := newTestToolBridge(t, client, config.DefaultToolsConfig())
	result := b.ExecuteTool(testutil.TestContext(t), "echo", nil, tip.ExecutionContext{})
	require.True(t, result.Success)

	select {
	case n := <-b.Notifications():
		assert.Equal(t, NotificationToolExecuted, n.Type)
		require.NotNil(t, n.Tool)
		assert.Equal(t, "echo", n.Tool.Metadata.ToolName)
	case <-time.After(time.Second):
		t.Fatal("expected a tool notification")
	}
}
