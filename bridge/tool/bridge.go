// Package tool implements the Tool/Resource Bridge: it executes TIP tool
// calls and resource reads on behalf of workflow graph nodes under bounded
// concurrency, with per-call timeouts, linear-backoff retries, circuit
// breaking, and response caching. Failures never cross the bridge boundary
// as panics or errors; every call settles into a result value.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/YmClash/vegapunk-sub006/config"
	"github.com/YmClash/vegapunk-sub006/internal/events"
	"github.com/YmClash/vegapunk-sub006/internal/metrics"
	"github.com/YmClash/vegapunk-sub006/protocol/tip"
	"github.com/YmClash/vegapunk-sub006/types"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// NotificationType identifies a tool bridge lifecycle notification.
type NotificationType string

const (
	NotificationToolExecuted     NotificationType = "tool_executed"
	NotificationToolErrored      NotificationType = "tool_errored"
	NotificationResourceAccessed NotificationType = "resource_accessed"
	NotificationResourceErrored  NotificationType = "resource_errored"
)

// Notification is one tool bridge lifecycle notification.
type Notification struct {
	Type      NotificationType            `json:"type"`
	Tool      *types.ToolExecutionResult  `json:"tool,omitempty"`
	Resource  *types.ResourceAccessResult `json:"resource,omitempty"`
	Timestamp time.Time                   `json:"timestamp"`
}

// Bridge is the Tool/Resource Bridge.
type Bridge struct {
	client   tip.Client
	toolsCfg config.ToolsConfig
	resCfg   config.ResourcesConfig

	// sem is the counting semaphore enforcing the global in-flight ceiling.
	// Exceeding the ceiling is a rejection, not a queue.
	sem   *semaphore.Weighted
	defs  *definitionCache
	store resourceStore

	toolBreaker     *gobreaker.CircuitBreaker[json.RawMessage]
	resourceBreaker *gobreaker.CircuitBreaker[string]

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter

	catalogMu         sync.RWMutex
	resourceCatalog   []types.ResourceDescriptor
	resourceCatalogAt time.Time

	notifications *events.Queue[Notification]
	collector     *metrics.Collector
	logger        *zap.Logger

	mu     sync.Mutex
	closed bool
}

// Option customizes bridge construction.
type Option func(*Bridge)

// WithResourceStore replaces the default in-memory resource store, e.g. with
// the Redis-backed store.
func WithResourceStore(store resourceStore) Option {
	return func(b *Bridge) { b.store = store }
}

// NewBridge creates a Tool/Resource Bridge. The collector may be nil.
func NewBridge(client tip.Client, toolsCfg config.ToolsConfig, resCfg config.ResourcesConfig, collector *metrics.Collector, logger *zap.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		client:        client,
		toolsCfg:      toolsCfg,
		resCfg:        resCfg,
		sem:           semaphore.NewWeighted(toolsCfg.MaxConcurrent),
		defs:          newDefinitionCache(toolsCfg.DefinitionTTL),
		store:         newMemoryStore(resCfg.CacheMaxEntries),
		limiters:      make(map[string]*rate.Limiter),
		notifications: events.NewQueue[Notification](256),
		collector:     collector,
		logger:        logger.With(zap.String("component", "tool_bridge")),
	}

	if toolsCfg.Breaker.Enabled {
		b.toolBreaker = gobreaker.NewCircuitBreaker[json.RawMessage](breakerSettings("tip-tools", toolsCfg.Breaker, b.logger))
		b.resourceBreaker = gobreaker.NewCircuitBreaker[string](breakerSettings("tip-resources", toolsCfg.Breaker, b.logger))
	}

	for _, opt := range opts {
		opt(b)
	}
	return b
}

func breakerSettings(name string, cfg config.BreakerConfig, logger *zap.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
}

// Ready reports whether the bridge can serve calls.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

// Close shuts the notification queue and releases the resource store.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.notifications.Close()
	if err := b.store.Close(); err != nil {
		b.logger.Warn("resource store close failed", zap.Error(err))
	}
}

// Notifications returns the bridge's lifecycle notification queue.
func (b *Bridge) Notifications() <-chan Notification {
	return b.notifications.Chan()
}

// ExecuteTool executes one TIP tool call under the bridge's discipline. It
// always returns a result object; Success=false implies Error is non-empty.
// ExecutionTimeMs spans submission to settlement.
func (b *Bridge) ExecuteTool(ctx context.Context, name string, params json.RawMessage, execCtx tip.ExecutionContext) types.ToolExecutionResult {
	start := time.Now()

	if !b.sem.TryAcquire(1) {
		err := types.NewError(types.ErrConcurrencyLimit,
			fmt.Sprintf("concurrency ceiling of %d in-flight calls reached", b.toolsCfg.MaxConcurrent))
		return b.settleToolFailure(name, start, 0, err)
	}
	defer b.sem.Release(1)

	if b.collector != nil {
		b.collector.ToolStarted()
		defer b.collector.ToolSettled()
	}

	if limiter := b.limiterFor(name); limiter != nil && !limiter.Allow() {
		err := types.NewError(types.ErrRateLimited, fmt.Sprintf("rate limit exceeded for tool %q", name))
		return b.settleToolFailure(name, start, 0, err)
	}

	if !b.resolveDefinition(ctx, name) {
		err := types.NewError(types.ErrToolNotFound, fmt.Sprintf("tool %q not found in TIP catalog", name))
		return b.settleToolFailure(name, start, 0, err)
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= b.toolsCfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			// Linear backoff: attempt N waits N * RetryBackoff.
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(time.Duration(attempt) * b.toolsCfg.RetryBackoff):
			}
			if ctx.Err() != nil {
				break
			}
		}

		attempts++
		raw, err := b.callToolOnce(ctx, name, params, execCtx)
		if err == nil {
			return b.settleToolSuccess(name, start, attempts, raw)
		}
		lastErr = err

		b.logger.Debug("tool call attempt failed",
			zap.String("tool", name),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	return b.settleToolFailure(name, start, attempts, lastErr)
}

// callToolOnce races a single raw call against the per-call timeout;
// whichever settles first wins. The buffered channel lets the call goroutine
// exit even when the timeout won.
func (b *Bridge) callToolOnce(ctx context.Context, name string, params json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, b.toolsCfg.CallTimeout)
	defer cancel()

	type outcome struct {
		raw json.RawMessage
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		raw, err := b.invokeTool(callCtx, name, params, execCtx)
		select {
		case done <- outcome{raw: raw, err: err}:
		case <-callCtx.Done():
		}
	}()

	select {
	case out := <-done:
		return out.raw, out.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, types.NewError(types.ErrTimeout,
			fmt.Sprintf("timeout after %s", b.toolsCfg.CallTimeout)).WithRetryable(true).WithProtocol("tip")
	}
}

func (b *Bridge) invokeTool(ctx context.Context, name string, params json.RawMessage, execCtx tip.ExecutionContext) (json.RawMessage, error) {
	if b.toolBreaker != nil {
		return b.toolBreaker.Execute(func() (json.RawMessage, error) {
			return b.client.CallTool(ctx, name, params, execCtx)
		})
	}
	return b.client.CallTool(ctx, name, params, execCtx)
}

// resolveDefinition checks the definition cache and falls back to a TIP
// catalog fetch on a stale or missing entry.
func (b *Bridge) resolveDefinition(ctx context.Context, name string) bool {
	if _, ok := b.defs.Get(name); ok {
		b.recordCache("tool_definition", true)
		return true
	}
	b.recordCache("tool_definition", false)

	defs, err := b.client.ListTools(ctx)
	if err != nil {
		b.logger.Warn("tool catalog fetch failed", zap.Error(err))
		return false
	}
	b.defs.Replace(defs)
	_, ok := b.defs.Get(name)
	return ok
}

func (b *Bridge) limiterFor(name string) *rate.Limiter {
	if b.toolsCfg.RateLimit <= 0 {
		return nil
	}
	b.limitersMu.Lock()
	defer b.limitersMu.Unlock()

	limiter, ok := b.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(b.toolsCfg.RateLimit), b.toolsCfg.RateBurst)
		b.limiters[name] = limiter
	}
	return limiter
}

func (b *Bridge) settleToolSuccess(name string, start time.Time, attempts int, raw json.RawMessage) types.ToolExecutionResult {
	elapsed := time.Since(start)
	result := types.ToolExecutionResult{
		Success: true,
		Result:  raw,
		Metadata: types.ToolResultMetadata{
			ToolName:        name,
			ExecutionTimeMs: elapsed.Milliseconds(),
			Attempts:        attempts,
		},
	}
	if b.collector != nil {
		b.collector.RecordToolExecution(name, true, elapsed)
	}
	b.notifications.Publish(Notification{
		Type:      NotificationToolExecuted,
		Tool:      &result,
		Timestamp: time.Now(),
	})
	b.logger.Info("tool executed",
		zap.String("tool", name),
		zap.Int("attempts", attempts),
		zap.Duration("duration", elapsed),
	)
	return result
}

func (b *Bridge) settleToolFailure(name string, start time.Time, attempts int, err error) types.ToolExecutionResult {
	elapsed := time.Since(start)
	if err == nil {
		err = types.NewError(types.ErrRetryExhausted, "tool call failed")
	}
	result := types.ToolExecutionResult{
		Success: false,
		Error:   err.Error(),
		Metadata: types.ToolResultMetadata{
			ToolName:        name,
			ExecutionTimeMs: elapsed.Milliseconds(),
			Attempts:        attempts,
		},
	}
	if b.collector != nil {
		b.collector.RecordToolExecution(name, false, elapsed)
	}
	b.notifications.Publish(Notification{
		Type:      NotificationToolErrored,
		Tool:      &result,
		Timestamp: time.Now(),
	})
	b.logger.Warn("tool execution failed",
		zap.String("tool", name),
		zap.Int("attempts", attempts),
		zap.Duration("duration", elapsed),
		zap.Error(err),
	)
	return result
}

// AccessResource reads a resource through the cache. A cache hit settles
// immediately with AccessTimeMs measured against this lookup; a miss
// performs the timeout-raced read with retry and stores the content before
// returning.
func (b *Bridge) AccessResource(ctx context.Context, uri string) types.ResourceAccessResult {
	start := time.Now()

	content, fetchedAt, hit, err := b.store.Get(ctx, uri)
	if err != nil {
		// A failing store degrades to a read-through; the read below decides.
		b.logger.Warn("resource cache lookup failed", zap.String("uri", uri), zap.Error(err))
	}
	if hit {
		b.recordCache("resource", true)
		result := types.ResourceAccessResult{
			Success:      true,
			URI:          uri,
			Content:      content,
			AccessTimeMs: time.Since(start).Milliseconds(),
			FromCache:    true,
			FetchedAt:    fetchedAt,
		}
		b.notifications.Publish(Notification{
			Type:      NotificationResourceAccessed,
			Resource:  &result,
			Timestamp: time.Now(),
		})
		return result
	}
	b.recordCache("resource", false)

	var lastErr error
	for attempt := 0; attempt <= b.resCfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(time.Duration(attempt) * b.resCfg.RetryBackoff):
			}
			if ctx.Err() != nil {
				break
			}
		}

		content, err := b.readResourceOnce(ctx, uri)
		if err == nil {
			return b.settleResourceSuccess(ctx, uri, start, content)
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return b.settleResourceFailure(uri, start, lastErr)
}

func (b *Bridge) readResourceOnce(ctx context.Context, uri string) (string, error) {
	readCtx, cancel := context.WithTimeout(ctx, b.resCfg.ReadTimeout)
	defer cancel()

	type outcome struct {
		content string
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		content, err := b.invokeRead(readCtx, uri)
		select {
		case done <- outcome{content: content, err: err}:
		case <-readCtx.Done():
		}
	}()

	select {
	case out := <-done:
		return out.content, out.err
	case <-readCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", types.NewError(types.ErrTimeout,
			fmt.Sprintf("timeout after %s", b.resCfg.ReadTimeout)).WithRetryable(true).WithProtocol("tip")
	}
}

func (b *Bridge) invokeRead(ctx context.Context, uri string) (string, error) {
	if b.resourceBreaker != nil {
		return b.resourceBreaker.Execute(func() (string, error) {
			return b.client.ReadResource(ctx, uri)
		})
	}
	return b.client.ReadResource(ctx, uri)
}

func (b *Bridge) settleResourceSuccess(ctx context.Context, uri string, start time.Time, content string) types.ResourceAccessResult {
	fetchedAt := time.Now()
	if err := b.store.Set(ctx, uri, content, fetchedAt, b.resCfg.CacheTTL); err != nil {
		b.logger.Warn("resource cache store failed", zap.String("uri", uri), zap.Error(err))
	}

	result := types.ResourceAccessResult{
		Success:      true,
		URI:          uri,
		Content:      content,
		AccessTimeMs: time.Since(start).Milliseconds(),
		FromCache:    false,
		FetchedAt:    fetchedAt,
	}
	if b.collector != nil {
		b.collector.RecordResourceRead(true)
	}
	b.notifications.Publish(Notification{
		Type:      NotificationResourceAccessed,
		Resource:  &result,
		Timestamp: time.Now(),
	})
	return result
}

func (b *Bridge) settleResourceFailure(uri string, start time.Time, err error) types.ResourceAccessResult {
	if err == nil {
		err = types.NewError(types.ErrRetryExhausted, "resource read failed")
	}
	result := types.ResourceAccessResult{
		Success:      false,
		URI:          uri,
		Error:        err.Error(),
		AccessTimeMs: time.Since(start).Milliseconds(),
	}
	if b.collector != nil {
		b.collector.RecordResourceRead(false)
	}
	b.notifications.Publish(Notification{
		Type:      NotificationResourceErrored,
		Resource:  &result,
		Timestamp: time.Now(),
	})
	b.logger.Warn("resource access failed", zap.String("uri", uri), zap.Error(err))
	return result
}

// AvailableTools returns the tool catalog for planning-time reads: the
// cached catalog when catalog caching is enabled and populated, a direct TIP
// query otherwise. It never executes a tool.
func (b *Bridge) AvailableTools(ctx context.Context) ([]types.ToolDefinition, error) {
	if b.toolsCfg.CatalogCaching {
		if defs, ok := b.defs.List(); ok {
			b.recordCache("tool_catalog", true)
			return defs, nil
		}
		b.recordCache("tool_catalog", false)
	}

	defs, err := b.client.ListTools(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrProtocolUnavailable, "tool catalog unavailable").
			WithCause(err).WithProtocol("tip")
	}
	b.defs.Replace(defs)
	return defs, nil
}

// AvailableResources returns the resource catalog for planning-time reads.
func (b *Bridge) AvailableResources(ctx context.Context) ([]types.ResourceDescriptor, error) {
	if b.toolsCfg.CatalogCaching {
		b.catalogMu.RLock()
		fresh := len(b.resourceCatalog) > 0 && time.Since(b.resourceCatalogAt) <= b.resCfg.CacheTTL
		catalog := b.resourceCatalog
		b.catalogMu.RUnlock()
		if fresh {
			b.recordCache("resource_catalog", true)
			out := make([]types.ResourceDescriptor, len(catalog))
			copy(out, catalog)
			return out, nil
		}
		b.recordCache("resource_catalog", false)
	}

	catalog, err := b.client.ListResources(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrProtocolUnavailable, "resource catalog unavailable").
			WithCause(err).WithProtocol("tip")
	}

	b.catalogMu.Lock()
	b.resourceCatalog = catalog
	b.resourceCatalogAt = time.Now()
	b.catalogMu.Unlock()
	return catalog, nil
}

// HealthCheck proxies TIP's self-reported health.
func (b *Bridge) HealthCheck(ctx context.Context) (tip.HealthStatus, error) {
	return b.client.HealthCheck(ctx)
}

func (b *Bridge) recordCache(cacheType string, hit bool) {
	if b.collector == nil {
		return
	}
	if hit {
		b.collector.RecordCacheHit(cacheType)
	} else {
		b.collector.RecordCacheMiss(cacheType)
	}
}
