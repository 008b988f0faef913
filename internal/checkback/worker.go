// path: internal/checkback/worker.go
package checkback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	domainmetrics "github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
	"github.com/IsaiahDupree/mediaposter/internal/events"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
	"github.com/IsaiahDupree/mediaposter/internal/social"
)

// WorkerConfig carries the checkback poller tunables.
type WorkerConfig struct {
	BatchSize      int
	GraceWindow    time.Duration
	MaxAttempts    int
	MetricsTimeout time.Duration
}

// CommentIngestor feeds fetched comments into the people graph.
type CommentIngestor interface {
	IngestComment(ctx context.Context, workspaceID uuid.UUID, channel, handle, text, platformPostID, trafficType string) error
}

// Worker polls due checkback jobs and pulls metric snapshots through the
// platform adapters. Runs on the same skip-locked lease protocol as the
// publish queue, on a coarser interval.
type Worker struct {
	comments CommentIngestor
	jobs      domainmetrics.CheckbackRepository
	snapshots domainmetrics.SnapshotRepository
	contents  content.Repository
	registry  *social.Registry
	limiter   *social.RateLimiter
	bus       common.EventBus
	logger    common.Logger
	clk       clock.Clock
	metrics   *services.EngineMetrics
	cfg       WorkerConfig
}

// NewWorker creates the checkback poller.
func NewWorker(
	jobs domainmetrics.CheckbackRepository,
	snapshots domainmetrics.SnapshotRepository,
	contents content.Repository,
	registry *social.Registry,
	limiter *social.RateLimiter,
	bus common.EventBus,
	logger common.Logger,
	clk clock.Clock,
	metrics *services.EngineMetrics,
	cfg WorkerConfig,
) *Worker {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = time.Hour
	}
	if cfg.MetricsTimeout <= 0 {
		cfg.MetricsTimeout = 30 * time.Second
	}
	return &Worker{
		jobs:      jobs,
		snapshots: snapshots,
		contents:  contents,
		registry:  registry,
		limiter:   limiter,
		bus:       bus,
		logger:    logger,
		clk:       clk,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Tick fires one batch of due jobs. Returns how many were handled.
func (w *Worker) Tick(ctx context.Context) (int, error) {
	now := w.clk.Now()
	jobs, err := w.jobs.LeaseDue(ctx, w.cfg.BatchSize, now)
	if err != nil {
		return 0, fmt.Errorf("leasing due checkbacks: %w", err)
	}
	for _, job := range jobs {
		w.fire(ctx, job)
	}
	return len(jobs), nil
}

func (w *Worker) fire(ctx context.Context, job *domainmetrics.CheckbackJob) {
	now := w.clk.Now()
	w.metrics.CheckbackLag.Observe(now.Sub(job.FireAt).Seconds())

	variant, err := w.contents.FindVariantByID(ctx, job.VariantID)
	if err != nil {
		w.complete(ctx, job, domainmetrics.JobFailed, fmt.Sprintf("loading variant: %v", err))
		return
	}

	// Never published (or publish abandoned): there is nothing to measure.
	if variant.PlatformPostID() == nil {
		w.complete(ctx, job, domainmetrics.JobSkipped, "variant has no platform post id")
		return
	}

	adapter, err := w.registry.Get(variant.Platform())
	if err != nil {
		w.complete(ctx, job, domainmetrics.JobFailed, err.Error())
		return
	}

	if err := w.limiter.Wait(ctx, variant.Platform()); err != nil {
		w.requeueOrFail(ctx, job, fmt.Sprintf("rate limit wait: %v", err))
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, w.cfg.MetricsTimeout)
	result, err := adapter.FetchMetrics(callCtx, variant.Platform(), *variant.PlatformPostID())
	cancel()
	if err != nil {
		if common.IsTransient(err) || common.IsAuthExpired(err) {
			w.requeueOrFail(ctx, job, err.Error())
		} else {
			w.complete(ctx, job, domainmetrics.JobFailed, err.Error())
		}
		return
	}
	if result == nil {
		// Platform still processing; try again next poll until the attempts
		// run out.
		w.requeueOrFail(ctx, job, "platform still processing")
		return
	}

	// Late fires keep the intended offset: snapshot_at is honest about when
	// we looked, offset_hours about which checkpoint this was.
	snapshot := &domainmetrics.Snapshot{
		VariantID:   job.VariantID,
		SnapshotAt:  now,
		Views:       result.Views,
		Impressions: result.Impressions,
		Likes:       result.Likes,
		Comments:    result.Comments,
		Shares:      result.Shares,
		Saves:       result.Saves,
		Clicks:      result.Clicks,
		WatchTimeS:  result.WatchTimeS,
		TrafficType: domainmetrics.TrafficType(variant.TrafficType()),
		Raw:         result.Raw,
	}
	if err := w.snapshots.Insert(ctx, snapshot); err != nil {
		w.requeueOrFail(ctx, job, fmt.Sprintf("inserting snapshot: %v", err))
		return
	}

	w.complete(ctx, job, domainmetrics.JobSucceeded, "")
	w.logger.Info("checkback recorded",
		"variant_id", job.VariantID, "offset_hours", job.OffsetHours,
		"views", result.Views, "late", job.IsLate(now, w.cfg.GraceWindow))

	if err := w.bus.Publish(ctx, events.SnapshotRecorded{
		VariantID:  job.VariantID,
		ContentID:  variant.ContentID(),
		SnapshotAt: now,
	}); err != nil {
		w.logger.Error("emitting snapshot event", "variant_id", job.VariantID, "error", err)
	}

	w.ingestComments(ctx, adapter, variant)
}

// SetCommentIngestor wires the people graph into the checkback flow; without
// one, comment ingestion is skipped.
func (w *Worker) SetCommentIngestor(ci CommentIngestor) { w.comments = ci }

// ingestComments pages fetched comments into the people graph. Best effort:
// a comment failure never fails the checkback.
func (w *Worker) ingestComments(ctx context.Context, adapter social.Adapter, variant *content.Variant) {
	if w.comments == nil || variant.PlatformPostID() == nil {
		return
	}
	item, err := w.contents.FindItemByID(ctx, variant.ContentID())
	if err != nil {
		w.logger.Warn("loading content item for comment ingest", "content_id", variant.ContentID(), "error", err)
		return
	}

	since := variant.PublishedAt()
	cursor := ""
	for page := 0; page < 5; page++ {
		callCtx, cancel := context.WithTimeout(ctx, w.cfg.MetricsTimeout)
		comments, err := adapter.FetchComments(callCtx, variant.Platform(), *variant.PlatformPostID(), since, cursor)
		cancel()
		if err != nil {
			w.logger.Warn("fetching comments", "variant_id", variant.ID(), "error", err)
			return
		}
		for _, c := range comments.Comments {
			err := w.comments.IngestComment(ctx, item.WorkspaceID(),
				string(variant.Platform()), c.AuthorHandle, c.Text,
				*variant.PlatformPostID(), variant.TrafficType())
			if err != nil {
				w.logger.Warn("ingesting comment", "handle", c.AuthorHandle, "error", err)
			}
		}
		if comments.NextCursor == "" {
			return
		}
		cursor = comments.NextCursor
	}
}

func (w *Worker) complete(ctx context.Context, job *domainmetrics.CheckbackJob, status domainmetrics.JobStatus, lastError string) {
	w.metrics.CheckbacksFired.WithLabelValues(string(status)).Inc()
	if err := w.jobs.Complete(ctx, job.ID, status, job.AttemptCount+1, lastError, w.clk.Now()); err != nil {
		w.logger.Error("completing checkback job", "job_id", job.ID, "error", err)
	}
}

// requeueOrFail retries a transient failure up to the attempt cap; a
// checkback never retries indefinitely.
func (w *Worker) requeueOrFail(ctx context.Context, job *domainmetrics.CheckbackJob, cause string) {
	attempts := job.AttemptCount + 1
	if attempts >= w.cfg.MaxAttempts {
		w.complete(ctx, job, domainmetrics.JobFailed, cause)
		return
	}
	w.metrics.CheckbacksFired.WithLabelValues("requeued").Inc()
	if err := w.jobs.Requeue(ctx, job.ID, attempts, cause, w.clk.Now()); err != nil {
		w.logger.Error("requeueing checkback job", "job_id", job.ID, "error", err)
	}
}
