// path: internal/dispatcher/dispatcher.go
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
	"github.com/IsaiahDupree/mediaposter/internal/events"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
	"github.com/IsaiahDupree/mediaposter/internal/social"
)

// Config carries the dispatcher tunables.
type Config struct {
	LeaseTTL       time.Duration
	BatchSize      int
	BatchSizeMax   int
	PublishTimeout time.Duration
	LatencyTarget  time.Duration
	WorkerCount    int
	ReleaseDelay   time.Duration
}

// Dispatcher leases due queue items and pushes them through platform
// adapters. Many dispatchers may run concurrently; the skip-locked lease is
// the mutual exclusion.
type Dispatcher struct {
	queue    queue.Repository
	contents content.Repository
	registry *social.Registry
	limiter  *social.RateLimiter
	bus      common.EventBus
	logger   common.Logger
	clk      clock.Clock
	backoff  *Backoff
	metrics  *services.EngineMetrics
	cfg      Config

	breakers   map[content.Platform]*gobreaker.CircuitBreaker[*social.PublishResult]
	breakersMu sync.Mutex

	// batchN adapts between 1 and BatchSizeMax.
	batchN   int
	batchMu  sync.Mutex
}

// New creates a dispatcher.
func New(
	q queue.Repository,
	contents content.Repository,
	registry *social.Registry,
	limiter *social.RateLimiter,
	bus common.EventBus,
	logger common.Logger,
	clk clock.Clock,
	backoff *Backoff,
	metrics *services.EngineMetrics,
	cfg Config,
) *Dispatcher {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.BatchSizeMax < cfg.BatchSize {
		cfg.BatchSizeMax = cfg.BatchSize
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	if cfg.ReleaseDelay <= 0 {
		cfg.ReleaseDelay = time.Minute
	}
	if cfg.LatencyTarget <= 0 {
		cfg.LatencyTarget = 10 * time.Second
	}
	return &Dispatcher{
		queue:    q,
		contents: contents,
		registry: registry,
		limiter:  limiter,
		bus:      bus,
		logger:   logger,
		clk:      clk,
		backoff:  backoff,
		metrics:  metrics,
		cfg:      cfg,
		breakers: make(map[content.Platform]*gobreaker.CircuitBreaker[*social.PublishResult]),
		batchN:   cfg.BatchSize,
	}
}

// Tick leases one batch of due items and dispatches them. Returns the number
// of items handled.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	now := d.clk.Now()
	n := d.currentBatch()

	items, err := d.queue.LeaseDue(ctx, n, now, d.cfg.LeaseTTL)
	if err != nil {
		return 0, fmt.Errorf("leasing due items: %w", err)
	}
	if len(items) == 0 {
		d.growBatch()
		return 0, nil
	}

	start := d.clk.Now()
	sem := make(chan struct{}, d.cfg.WorkerCount)
	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(it *queue.Item) {
			defer wg.Done()
			defer func() { <-sem }()
			d.dispatchOne(ctx, it)
		}(item)
	}
	wg.Wait()

	// Back-pressure: halve the batch when the batch ran slow, grow on a
	// full fast batch.
	elapsed := d.clk.Now().Sub(start)
	avg := elapsed / time.Duration(len(items))
	if avg > d.cfg.LatencyTarget {
		d.shrinkBatch()
	} else if len(items) == n {
		d.growBatch()
	}
	return len(items), nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, item *queue.Item) {
	now := d.clk.Now()
	platform := item.Platform()

	// At-most-once guard: a second item for an already-published variant
	// terminates without touching the platform.
	published, err := d.queue.HasPublishedItem(ctx, item.VariantID())
	if err != nil {
		d.release(ctx, item, queue.StatusLeased)
		return
	}
	if published {
		prev := item.Status()
		if err := item.MarkFailed("variant already published", now); err == nil {
			_ = d.queue.Update(ctx, item, prev)
		}
		d.count(platform, "duplicate")
		return
	}

	adapter, err := d.registry.Get(platform)
	if err != nil {
		// No adapter or disabled: preserve the queue, try again later.
		d.logger.Warn("adapter unavailable, releasing item",
			"platform", platform, "item_id", item.ID(), "error", err)
		d.release(ctx, item, queue.StatusLeased)
		return
	}

	// leased -> publishing (burns the attempt).
	prev := item.Status()
	if err := item.BeginPublishing(now); err != nil {
		return
	}
	if err := d.queue.Update(ctx, item, prev); err != nil {
		if errors.Is(err, queue.ErrStaleState) {
			// Raced by Cancel; the CAS saw it, drop the work.
			d.logger.Info("item state changed before dispatch, discarding", "item_id", item.ID())
			return
		}
		d.logger.Error("persisting publishing transition", "item_id", item.ID(), "error", err)
		return
	}

	variant, err := d.contents.FindVariantByID(ctx, item.VariantID())
	if err != nil {
		d.fail(ctx, item, nil, fmt.Sprintf("loading variant: %v", err))
		return
	}
	if verr := variant.MarkPublishing(now); verr == nil {
		_ = d.contents.UpdateVariant(ctx, variant)
	}

	result, err := d.publish(ctx, adapter, item, variant)
	if err == nil {
		d.succeed(ctx, item, variant, result)
		return
	}

	switch common.ClassOf(err) {
	case common.KindAuthExpired:
		d.logger.Error("platform credentials expired, disabling adapter",
			"platform", platform, "adapter", adapter.ID(), "error", err)
		d.registry.Disable(platform)
		d.count(platform, "auth_expired")
		d.releaseFromPublishing(ctx, item, variant)
	case common.KindTransient:
		// Ambiguous outcome: the request may have landed. Ask the adapter
		// before burning the attempt chain.
		if postID, found := d.lookupRecent(ctx, adapter, item); found {
			d.succeed(ctx, item, variant, &social.PublishResult{
				PlatformPostID: postID,
				PublishedAt:    d.clk.Now(),
			})
			return
		}
		d.retryOrFail(ctx, item, variant, err)
	default:
		d.fail(ctx, item, variant, err.Error())
	}
}

func (d *Dispatcher) publish(ctx context.Context, adapter social.Adapter, item *queue.Item, variant *content.Variant) (*social.PublishResult, error) {
	if err := d.limiter.Wait(ctx, item.Platform()); err != nil {
		return nil, common.Transient(fmt.Errorf("rate limit wait: %w", err))
	}

	req := buildPublishRequest(item, variant)

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()

	start := d.clk.Now()
	result, err := d.breakerFor(item.Platform()).Execute(func() (*social.PublishResult, error) {
		return adapter.Publish(callCtx, req)
	})
	d.metrics.PublishLatency.Observe(d.clk.Now().Sub(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, common.Transient(fmt.Errorf("circuit open for %s: %w", item.Platform(), err))
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return nil, common.Transient(fmt.Errorf("publish timed out after %s", d.cfg.PublishTimeout))
	}
	return result, err
}

func buildPublishRequest(item *queue.Item, variant *content.Variant) *social.PublishRequest {
	meta := item.PlatformMetadata()
	req := &social.PublishRequest{
		VariantID:      item.VariantID(),
		Platform:       item.Platform(),
		IdempotencyKey: item.ID().String(),
		Metadata:       meta,
	}
	if v, ok := meta["media_url"].(string); ok && v != "" {
		req.MediaURLs = append(req.MediaURLs, v)
	}
	if vs, ok := meta["media_urls"].([]interface{}); ok {
		for _, u := range vs {
			if s, ok := u.(string); ok {
				req.MediaURLs = append(req.MediaURLs, s)
			}
		}
	}
	if v, ok := meta["caption"].(string); ok {
		req.Caption = v
	}
	if vs, ok := meta["hashtags"].([]interface{}); ok {
		for _, h := range vs {
			if s, ok := h.(string); ok {
				req.Hashtags = append(req.Hashtags, s)
			}
		}
	}
	_ = variant
	return req
}

func (d *Dispatcher) succeed(ctx context.Context, item *queue.Item, variant *content.Variant, result *social.PublishResult) {
	now := d.clk.Now()

	prev := item.Status()
	if err := item.MarkPublished(result.PlatformPostID, result.PlatformURL, now); err != nil {
		d.logger.Error("marking item published", "item_id", item.ID(), "error", err)
		return
	}
	if err := d.queue.Update(ctx, item, prev); err != nil {
		if errors.Is(err, queue.ErrStaleState) {
			// Cancelled mid-flight: the publish happened, keep the platform
			// truth — the CAS loser logs and the operator reconciles.
			d.logger.Warn("item cancelled during publish; platform post exists",
				"item_id", item.ID(), "platform_post_id", result.PlatformPostID)
		} else {
			d.logger.Error("persisting published transition", "item_id", item.ID(), "error", err)
		}
		return
	}

	if variant != nil {
		if err := variant.MarkPublished(result.PlatformPostID, result.PlatformURL, now); err == nil {
			if err := d.contents.UpdateVariant(ctx, variant); err != nil {
				d.logger.Error("persisting variant publish", "variant_id", variant.ID(), "error", err)
			}
		}
	}

	d.count(item.Platform(), "published")
	d.logger.Info("published",
		"item_id", item.ID(), "variant_id", item.VariantID(),
		"platform", item.Platform(), "platform_post_id", result.PlatformPostID,
		"attempt", item.AttemptCount())

	evt := events.Published{
		QueueItemID:    item.ID(),
		VariantID:      item.VariantID(),
		Platform:       item.Platform(),
		PlatformPostID: result.PlatformPostID,
		PublishedAt:    now,
	}
	if variant != nil {
		evt.ContentID = variant.ContentID()
	}
	if err := d.bus.Publish(ctx, evt); err != nil {
		d.logger.Error("emitting published event", "item_id", item.ID(), "error", err)
	}
}

func (d *Dispatcher) retryOrFail(ctx context.Context, item *queue.Item, variant *content.Variant, cause error) {
	now := d.clk.Now()
	prev := item.Status()

	if item.AttemptCount() < item.MaxAttempts() {
		next := now.Add(d.backoff.Delay(item.AttemptCount()))
		if err := item.MarkRetry(cause.Error(), next, now); err != nil {
			d.logger.Error("marking retry", "item_id", item.ID(), "error", err)
			return
		}
		if err := d.queue.Update(ctx, item, prev); err != nil {
			d.logger.Error("persisting retry", "item_id", item.ID(), "error", err)
			return
		}
		if variant != nil {
			if verr := variant.ReturnToQueue(now); verr == nil {
				_ = d.contents.UpdateVariant(ctx, variant)
			}
		}
		d.count(item.Platform(), "retry")
		d.logger.Warn("publish failed, retrying",
			"item_id", item.ID(), "attempt", item.AttemptCount(),
			"next_at", next, "error", cause)
		return
	}

	d.fail(ctx, item, variant, cause.Error())
}

func (d *Dispatcher) fail(ctx context.Context, item *queue.Item, variant *content.Variant, lastError string) {
	now := d.clk.Now()
	prev := item.Status()
	if err := item.MarkFailed(lastError, now); err != nil {
		d.logger.Error("marking item failed", "item_id", item.ID(), "error", err)
		return
	}
	if err := d.queue.Update(ctx, item, prev); err != nil {
		d.logger.Error("persisting failed transition", "item_id", item.ID(), "error", err)
		return
	}
	if variant != nil {
		if verr := variant.MarkFailed(now); verr == nil {
			_ = d.contents.UpdateVariant(ctx, variant)
		}
	}
	d.count(item.Platform(), "failed")
	d.logger.Error("publish failed permanently",
		"item_id", item.ID(), "variant_id", item.VariantID(),
		"attempts", item.AttemptCount(), "error", lastError)
}

// release puts a leased item back without burning an attempt.
func (d *Dispatcher) release(ctx context.Context, item *queue.Item, prev queue.Status) {
	if err := item.Release(d.clk.Now(), d.cfg.ReleaseDelay); err != nil {
		return
	}
	if err := d.queue.Update(ctx, item, prev); err != nil {
		d.logger.Error("releasing item", "item_id", item.ID(), "error", err)
	}
}

func (d *Dispatcher) releaseFromPublishing(ctx context.Context, item *queue.Item, variant *content.Variant) {
	d.release(ctx, item, queue.StatusPublishing)
	if variant != nil {
		if verr := variant.ReturnToQueue(d.clk.Now()); verr == nil {
			_ = d.contents.UpdateVariant(ctx, variant)
		}
	}
}

func (d *Dispatcher) lookupRecent(ctx context.Context, adapter social.Adapter, item *queue.Item) (string, bool) {
	lookuper, ok := adapter.(social.RecentLookuper)
	if !ok {
		return "", false
	}
	postID, found, err := lookuper.LookupRecent(ctx, item.VariantID())
	if err != nil || !found {
		return "", false
	}
	return postID, true
}

func (d *Dispatcher) breakerFor(platform content.Platform) *gobreaker.CircuitBreaker[*social.PublishResult] {
	d.breakersMu.Lock()
	defer d.breakersMu.Unlock()
	if cb, ok := d.breakers[platform]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[*social.PublishResult](gobreaker.Settings{
		Name:        "publish:" + string(platform),
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Permanent rejections are the caller's problem, not platform
			// health; only transport-level failures trip the breaker.
			return err == nil || common.ClassOf(err) == common.KindPermanent
		},
	})
	d.breakers[platform] = cb
	return cb
}

func (d *Dispatcher) count(platform content.Platform, outcome string) {
	d.metrics.PublishTotal.WithLabelValues(string(platform), outcome).Inc()
}

func (d *Dispatcher) currentBatch() int {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	return d.batchN
}

func (d *Dispatcher) growBatch() {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	d.batchN *= 2
	if d.batchN > d.cfg.BatchSizeMax {
		d.batchN = d.cfg.BatchSizeMax
	}
}

func (d *Dispatcher) shrinkBatch() {
	d.batchMu.Lock()
	defer d.batchMu.Unlock()
	d.batchN /= 2
	if d.batchN < 1 {
		d.batchN = 1
	}
}
