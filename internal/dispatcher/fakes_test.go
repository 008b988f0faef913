// path: internal/dispatcher/fakes_test.go
package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
	"github.com/IsaiahDupree/mediaposter/internal/social"
)

// memQueue is an in-memory queue.Repository with the same CAS and lease
// semantics as the SQL implementation.
type memQueue struct {
	mu    sync.Mutex
	items map[uuid.UUID]*queue.Item
}

func newMemQueue() *memQueue {
	return &memQueue{items: map[uuid.UUID]*queue.Item{}}
}

func (m *memQueue) Create(ctx context.Context, item *queue.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID()] = item
	return nil
}

func (m *memQueue) CreateBatch(ctx context.Context, items []*queue.Item) error {
	for _, it := range items {
		if err := m.Create(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (m *memQueue) FindByID(ctx context.Context, id uuid.UUID) (*queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, queue.ErrItemNotFound
	}
	return item, nil
}

func (m *memQueue) Update(ctx context.Context, item *queue.Item, prevStatus queue.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[item.ID()]
	if !ok {
		return queue.ErrItemNotFound
	}
	if stored.Status() != prevStatus && stored != item {
		return queue.ErrStaleState
	}
	m.items[item.ID()] = item
	return nil
}

func (m *memQueue) LeaseDue(ctx context.Context, n int, now time.Time, ttl time.Duration) ([]*queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	due := make([]*queue.Item, 0)
	for _, item := range m.items {
		if item.IsDue(now) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.Priority() != b.Priority() {
			return a.Priority() > b.Priority()
		}
		if !a.ScheduledFor().Equal(b.ScheduledFor()) {
			return a.ScheduledFor().Before(b.ScheduledFor())
		}
		return a.ID().String() < b.ID().String()
	})
	if len(due) > n {
		due = due[:n]
	}
	for _, item := range due {
		if err := item.Lease(now, ttl); err != nil {
			return nil, err
		}
	}
	return due, nil
}

func (m *memQueue) ExpireLeases(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, item := range m.items {
		if item.ExpireLease(now) == nil {
			count++
		}
	}
	return count, nil
}

func (m *memQueue) ListDue(ctx context.Context, limit int, platform *content.Platform, now time.Time) ([]*queue.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*queue.Item, 0)
	for _, item := range m.items {
		if !item.IsDue(now) {
			continue
		}
		if platform != nil && item.Platform() != *platform {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *memQueue) FindQueuedInWindow(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) ([]*queue.Item, error) {
	return nil, nil
}

func (m *memQueue) HasPublishedItem(ctx context.Context, variantID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.VariantID() == variantID && item.Status() == queue.StatusPublished {
			return true, nil
		}
	}
	return false, nil
}

func (m *memQueue) Stats(ctx context.Context, workspaceID uuid.UUID) (*queue.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &queue.Stats{ByStatus: map[queue.Status]int{}, ByPlatform: map[content.Platform]int{}}
	for _, item := range m.items {
		stats.ByStatus[item.Status()]++
		stats.ByPlatform[item.Platform()]++
		stats.Total++
	}
	return stats, nil
}

// memContents is a minimal in-memory content.Repository.
type memContents struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*content.Item
	variants map[uuid.UUID]*content.Variant
}

func newMemContents() *memContents {
	return &memContents{
		items:    map[uuid.UUID]*content.Item{},
		variants: map[uuid.UUID]*content.Variant{},
	}
}

func (m *memContents) CreateItem(ctx context.Context, item *content.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID()] = item
	return nil
}

func (m *memContents) FindItemByID(ctx context.Context, id uuid.UUID) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, content.ErrItemNotFound
	}
	return item, nil
}

func (m *memContents) CreateVariant(ctx context.Context, v *content.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[v.ID()] = v
	return nil
}

func (m *memContents) UpdateVariant(ctx context.Context, v *content.Variant) error {
	return m.CreateVariant(ctx, v)
}

func (m *memContents) FindVariantByID(ctx context.Context, id uuid.UUID) (*content.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.variants[id]
	if !ok {
		return nil, content.ErrVariantNotFound
	}
	return v, nil
}

func (m *memContents) FindVariantsByContentID(ctx context.Context, contentID uuid.UUID) ([]*content.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*content.Variant, 0)
	for _, v := range m.variants {
		if v.ContentID() == contentID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memContents) FindVariantByPlatformPost(ctx context.Context, platform content.Platform, platformPostID string) (*content.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.variants {
		if v.Platform() == platform && v.PlatformPostID() != nil && *v.PlatformPostID() == platformPostID {
			return v, nil
		}
	}
	return nil, content.ErrVariantNotFound
}

func (m *memContents) FindContentIDsPublishedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

// memCheckbacks is an in-memory metrics.CheckbackRepository good enough for
// dedupe assertions.
type memCheckbacks struct {
	mu   sync.Mutex
	jobs map[string]*metrics.CheckbackJob // key variant|offset
}

func newMemCheckbacks() *memCheckbacks {
	return &memCheckbacks{jobs: map[string]*metrics.CheckbackJob{}}
}

func cbKey(variantID uuid.UUID, offset int) string {
	return fmt.Sprintf("%s|%d", variantID, offset)
}

func (m *memCheckbacks) CreateForPublish(ctx context.Context, variantID uuid.UUID, publishedAt time.Time, offsetsHours []int, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := 0
	for _, offset := range offsetsHours {
		key := cbKey(variantID, offset)
		if _, exists := m.jobs[key]; exists {
			continue
		}
		m.jobs[key] = metrics.NewCheckbackJob(variantID, publishedAt, offset, now)
		created++
	}
	return created, nil
}

func (m *memCheckbacks) LeaseDue(ctx context.Context, n int, now time.Time) ([]*metrics.CheckbackJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*metrics.CheckbackJob, 0)
	for _, job := range m.jobs {
		if job.IsDue(now) && len(out) < n {
			job.Status = metrics.JobFired
			fired := now
			job.FiredAt = &fired
			out = append(out, job)
		}
	}
	return out, nil
}

func (m *memCheckbacks) Complete(ctx context.Context, id uuid.UUID, status metrics.JobStatus, attemptCount int, lastError string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID == id {
			job.Status = status
			job.AttemptCount = attemptCount
			job.LastError = lastError
			return nil
		}
	}
	return metrics.ErrJobNotFound
}

func (m *memCheckbacks) Requeue(ctx context.Context, id uuid.UUID, attemptCount int, lastError string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ID == id {
			job.Status = metrics.JobPending
			job.AttemptCount = attemptCount
			job.LastError = lastError
			return nil
		}
	}
	return metrics.ErrJobNotFound
}

func (m *memCheckbacks) SkipPendingForVariant(ctx context.Context, variantID uuid.UUID, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, job := range m.jobs {
		if job.VariantID == variantID && job.Status == metrics.JobPending {
			job.Status = metrics.JobSkipped
			n++
		}
	}
	return n, nil
}

func (m *memCheckbacks) FindByVariant(ctx context.Context, variantID uuid.UUID) ([]*metrics.CheckbackJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*metrics.CheckbackJob, 0)
	for _, job := range m.jobs {
		if job.VariantID == variantID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OffsetHours < out[j].OffsetHours })
	return out, nil
}

// syncBus delivers events synchronously so tests observe side effects
// without sleeping.
type syncBus struct {
	mu       sync.Mutex
	handlers map[string][]common.EventHandler
}

func newSyncBus() *syncBus {
	return &syncBus{handlers: map[string][]common.EventHandler{}}
}

func (b *syncBus) Publish(ctx context.Context, event common.Event) error {
	b.mu.Lock()
	hs := append([]common.EventHandler(nil), b.handlers[event.Type()]...)
	b.mu.Unlock()
	for _, h := range hs {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *syncBus) Subscribe(eventType string, handler common.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

func (b *syncBus) Close() error { return nil }

// scriptedAdapter returns scripted outcomes per publish call.
type scriptedAdapter struct {
	mu     sync.Mutex
	script []error // error per call, nil = success
	calls  int
	postID string
}

func (a *scriptedAdapter) ID() string          { return "scripted" }
func (a *scriptedAdapter) DisplayName() string { return "Scripted" }
func (a *scriptedAdapter) SupportedPlatforms() []content.Platform {
	return []content.Platform{content.PlatformInstagram, content.PlatformTikTok}
}
func (a *scriptedAdapter) SupportsScheduling() bool { return false }
func (a *scriptedAdapter) RateLimits() map[string]social.RateLimit {
	return map[string]social.RateLimit{"default": {Requests: 1000, Per: time.Second, Burst: 100}}
}

func (a *scriptedAdapter) Publish(ctx context.Context, req *social.PublishRequest) (*social.PublishResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.calls
	a.calls++
	if idx < len(a.script) && a.script[idx] != nil {
		return nil, a.script[idx]
	}
	return &social.PublishResult{
		PlatformPostID: a.postID,
		PlatformURL:    "https://platform.example/" + a.postID,
		PublishedAt:    time.Now().UTC(),
	}, nil
}

func (a *scriptedAdapter) FetchMetrics(ctx context.Context, platform content.Platform, platformPostID string) (*social.MetricsResult, error) {
	return &social.MetricsResult{Views: 100}, nil
}

func (a *scriptedAdapter) FetchComments(ctx context.Context, platform content.Platform, platformPostID string, since *time.Time, cursor string) (*social.CommentsPage, error) {
	return &social.CommentsPage{}, nil
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...interface{}) {}
func (nopLogger) Info(msg string, fields ...interface{})  {}
func (nopLogger) Warn(msg string, fields ...interface{})  {}
func (nopLogger) Error(msg string, fields ...interface{}) {}
