// path: internal/dispatcher/dispatcher_test.go
package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/checkback"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	domainmetrics "github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
	"github.com/IsaiahDupree/mediaposter/internal/social"
)

type fixture struct {
	queue      *memQueue
	contents   *memContents
	checkbacks *memCheckbacks
	registry   *social.Registry
	bus        *syncBus
	clk        *clock.Fake
	dispatcher *Dispatcher
	workspace  uuid.UUID
}

func newFixture(t *testing.T, adapter social.Adapter) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	q := newMemQueue()
	contents := newMemContents()
	checkbacks := newMemCheckbacks()
	registry := social.NewRegistry()
	if adapter != nil {
		require.NoError(t, registry.Register(adapter))
	}
	bus := newSyncBus()
	logger := nopLogger{}
	engineMetrics := services.NewEngineMetrics(prometheus.NewRegistry())

	// Checkback scheduler listens on the bus so a publish creates jobs.
	cbScheduler := checkback.NewScheduler(checkbacks, logger, clk, domainmetrics.StandardOffsets)
	require.NoError(t, cbScheduler.Subscribe(bus))

	d := New(
		q, contents, registry, social.NewRateLimiter(registry), bus, logger, clk,
		fixedBackoff(time.Millisecond, 10*time.Millisecond, 0.5),
		engineMetrics,
		Config{
			LeaseTTL:       5 * time.Minute,
			BatchSize:      10,
			BatchSizeMax:   50,
			PublishTimeout: time.Second,
			LatencyTarget:  time.Minute,
			WorkerCount:    2,
		},
	)
	return &fixture{
		queue:      q,
		contents:   contents,
		checkbacks: checkbacks,
		registry:   registry,
		bus:        bus,
		clk:        clk,
		dispatcher: d,
		workspace:  uuid.New(),
	}
}

func (f *fixture) seedItem(t *testing.T) (*content.Variant, *queue.Item) {
	t.Helper()
	now := f.clk.Now()
	item, err := content.NewItem(f.workspace, content.TypeVideo, "clip one", now)
	require.NoError(t, err)
	require.NoError(t, f.contents.CreateItem(context.Background(), item))

	variant, err := content.NewVariant(item.ID(), content.PlatformInstagram, false, now)
	require.NoError(t, err)
	require.NoError(t, f.contents.CreateVariant(context.Background(), variant))

	qi, err := queue.New(variant.ID(), content.PlatformInstagram, now, queue.PriorityNormal, 3, map[string]interface{}{
		"media_url": "https://cdn.example.com/clip.mp4",
		"caption":   "clip one",
	}, now.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, f.queue.Create(context.Background(), qi))
	return variant, qi
}

func TestDispatch_SuccessPublishesAndSchedulesCheckbacks(t *testing.T) {
	adapter := &scriptedAdapter{postID: "ig-1"}
	f := newFixture(t, adapter)
	variant, item := f.seedItem(t)

	n, err := f.dispatcher.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.queue.FindByID(context.Background(), item.ID())
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPublished, stored.Status())
	assert.Equal(t, 1, stored.AttemptCount())
	require.NotNil(t, stored.PlatformPostID())
	assert.Equal(t, "ig-1", *stored.PlatformPostID())

	v, err := f.contents.FindVariantByID(context.Background(), variant.ID())
	require.NoError(t, err)
	assert.Equal(t, content.VariantPublished, v.Status())

	// Exactly the five standard checkback offsets exist.
	jobs, err := f.checkbacks.FindByVariant(context.Background(), variant.ID())
	require.NoError(t, err)
	require.Len(t, jobs, 5)
	offsets := make([]int, 0, 5)
	for _, j := range jobs {
		offsets = append(offsets, j.OffsetHours)
		assert.Equal(t, domainmetrics.JobPending, j.Status)
	}
	assert.Equal(t, []int{1, 6, 24, 72, 168}, offsets)
}

func TestDispatch_TransientRetriesThenSucceeds(t *testing.T) {
	transient := common.Transient(errors.New("rate limited"))
	adapter := &scriptedAdapter{postID: "ig-2", script: []error{transient, transient, nil}}
	f := newFixture(t, adapter)
	variant, item := f.seedItem(t)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := f.dispatcher.Tick(ctx); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
		stored, _ := f.queue.FindByID(ctx, item.ID())
		if stored.Status() == queue.StatusPublished {
			break
		}
		// Skip past the retry backoff.
		f.clk.Advance(time.Second)
	}

	stored, err := f.queue.FindByID(ctx, item.ID())
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPublished, stored.Status())
	assert.Equal(t, 3, stored.AttemptCount())
	require.NotNil(t, stored.PlatformPostID())
	assert.Equal(t, "ig-2", *stored.PlatformPostID())

	jobs, _ := f.checkbacks.FindByVariant(ctx, variant.ID())
	assert.Len(t, jobs, 5)
}

func TestDispatch_PermanentFailureIsTerminal(t *testing.T) {
	adapter := &scriptedAdapter{postID: "x", script: []error{common.Permanent(errors.New("caption rejected"))}}
	f := newFixture(t, adapter)
	variant, item := f.seedItem(t)

	_, err := f.dispatcher.Tick(context.Background())
	require.NoError(t, err)

	stored, _ := f.queue.FindByID(context.Background(), item.ID())
	assert.Equal(t, queue.StatusFailed, stored.Status())
	assert.Contains(t, stored.LastError(), "caption rejected")

	// The variant fails; the parent item is untouched and other platforms
	// stay publishable.
	v, _ := f.contents.FindVariantByID(context.Background(), variant.ID())
	assert.Equal(t, content.VariantFailed, v.Status())

	jobs, _ := f.checkbacks.FindByVariant(context.Background(), variant.ID())
	assert.Empty(t, jobs)
}

func TestDispatch_TransientExhaustionFails(t *testing.T) {
	transient := common.Transient(errors.New("502"))
	adapter := &scriptedAdapter{postID: "x", script: []error{transient, transient, transient, transient}}
	f := newFixture(t, adapter)
	_, item := f.seedItem(t)

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, err := f.dispatcher.Tick(ctx)
		require.NoError(t, err)
		stored, _ := f.queue.FindByID(ctx, item.ID())
		if stored.Status().IsTerminal() {
			break
		}
		f.clk.Advance(time.Second)
	}

	stored, _ := f.queue.FindByID(ctx, item.ID())
	assert.Equal(t, queue.StatusFailed, stored.Status())
	assert.Equal(t, 3, stored.AttemptCount())
}

func TestDispatch_AuthExpiredDisablesAdapterAndPreservesQueue(t *testing.T) {
	adapter := &scriptedAdapter{postID: "x", script: []error{common.AuthExpired(errors.New("token revoked"))}}
	f := newFixture(t, adapter)
	_, item := f.seedItem(t)

	_, err := f.dispatcher.Tick(context.Background())
	require.NoError(t, err)

	assert.True(t, f.registry.IsDisabled(content.PlatformInstagram))

	stored, _ := f.queue.FindByID(context.Background(), item.ID())
	assert.Equal(t, queue.StatusQueued, stored.Status())
	assert.Equal(t, 0, stored.AttemptCount())
}

func TestDispatch_NoAdapterReleasesItem(t *testing.T) {
	f := newFixture(t, nil)
	_, item := f.seedItem(t)

	_, err := f.dispatcher.Tick(context.Background())
	require.NoError(t, err)

	stored, _ := f.queue.FindByID(context.Background(), item.ID())
	assert.Equal(t, queue.StatusQueued, stored.Status())
	assert.Equal(t, 0, stored.AttemptCount())
	assert.True(t, stored.ScheduledFor().After(f.clk.Now()))
}

func TestDispatch_DuplicateVariantNeverPublishesTwice(t *testing.T) {
	adapter := &scriptedAdapter{postID: "ig-dup"}
	f := newFixture(t, adapter)
	variant, first := f.seedItem(t)

	ctx := context.Background()
	_, err := f.dispatcher.Tick(ctx)
	require.NoError(t, err)
	stored, _ := f.queue.FindByID(ctx, first.ID())
	require.Equal(t, queue.StatusPublished, stored.Status())

	// A second item for the same variant terminates without an adapter call.
	second, err := queue.New(variant.ID(), content.PlatformInstagram, f.clk.Now(), queue.PriorityNormal, 3, nil, f.clk.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, f.queue.Create(ctx, second))

	callsBefore := adapter.calls
	_, err = f.dispatcher.Tick(ctx)
	require.NoError(t, err)

	dupe, _ := f.queue.FindByID(ctx, second.ID())
	assert.Equal(t, queue.StatusFailed, dupe.Status())
	assert.Equal(t, callsBefore, adapter.calls)
}

func TestReaper_RestoresExpiredLease(t *testing.T) {
	adapter := &scriptedAdapter{postID: "ig-3"}
	f := newFixture(t, adapter)
	_, item := f.seedItem(t)

	ctx := context.Background()
	now := f.clk.Now()

	// Worker A leases and crashes before updating.
	leased, err := f.queue.LeaseDue(ctx, 1, now, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	reaper := NewReaper(f.queue, nopLogger{}, f.clk, services.NewEngineMetrics(prometheus.NewRegistry()))

	// Before expiry: nothing to reap.
	n, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// At t0 + ttl + 1s the lease is reclaimed and worker B publishes.
	f.clk.Advance(5*time.Minute + time.Second)
	n, err = reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.dispatcher.Tick(ctx)
	require.NoError(t, err)

	stored, _ := f.queue.FindByID(ctx, item.ID())
	assert.Equal(t, queue.StatusPublished, stored.Status())
	assert.Equal(t, 1, stored.AttemptCount())
}
