// path: internal/application/queueops/service.go
package queueops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
)

// Service implements the Queue API over the durable store.
type Service struct {
	queue      queue.Repository
	contents   content.Repository
	checkbacks metrics.CheckbackRepository
	logger     common.Logger
	clk        clock.Clock
	maxAttempts int
}

// NewService creates the queue operations service.
func NewService(
	q queue.Repository,
	contents content.Repository,
	checkbacks metrics.CheckbackRepository,
	logger common.Logger,
	clk clock.Clock,
	maxAttempts int,
) *Service {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Service{
		queue:       q,
		contents:    contents,
		checkbacks:  checkbacks,
		logger:      logger,
		clk:         clk,
		maxAttempts: maxAttempts,
	}
}

// EnqueueRequest carries a direct enqueue (bypassing the planner but never
// the queue: nothing publishes outside it).
type EnqueueRequest struct {
	VariantID        uuid.UUID              `json:"variant_id" validate:"required"`
	Platform         content.Platform       `json:"platform" validate:"required"`
	ScheduledFor     time.Time              `json:"scheduled_for" validate:"required"`
	Priority         *int                   `json:"priority,omitempty"`
	PlatformMetadata map[string]interface{} `json:"platform_metadata,omitempty"`
}

// Enqueue creates a queued item for an existing variant.
func (s *Service) Enqueue(ctx context.Context, req *EnqueueRequest) (uuid.UUID, error) {
	variant, err := s.contents.FindVariantByID(ctx, req.VariantID)
	if err != nil {
		if errors.Is(err, content.ErrVariantNotFound) {
			return uuid.Nil, fmt.Errorf("%w: variant %s", common.ErrNotFound, req.VariantID)
		}
		return uuid.Nil, err
	}
	if variant.Status() == content.VariantPublished {
		return uuid.Nil, fmt.Errorf("%w: variant already published", common.ErrConflict)
	}

	priority := queue.PriorityNormal
	if req.Priority != nil {
		priority = queue.Priority(*req.Priority)
	}

	item, err := queue.New(req.VariantID, req.Platform, req.ScheduledFor, priority, s.maxAttempts, req.PlatformMetadata, s.clk.Now())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	if err := s.queue.Create(ctx, item); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("enqueued item",
		"item_id", item.ID(), "variant_id", req.VariantID,
		"platform", req.Platform, "scheduled_for", item.ScheduledFor())
	return item.ID(), nil
}

// ListDue is the read-only peek at dispatchable items.
func (s *Service) ListDue(ctx context.Context, limit int, platform *content.Platform) ([]*queue.Item, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.queue.ListDue(ctx, limit, platform, s.clk.Now())
}

// Cancel flips a non-terminal, non-leased item to cancelled. Returns false
// (no error) when the item is already terminal — cancel on published is a
// no-op by contract. Pending checkbacks for the variant are skipped.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	item, err := s.queue.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			return false, fmt.Errorf("%w: queue item %s", common.ErrNotFound, id)
		}
		return false, err
	}

	now := s.clk.Now()
	prev := item.Status()
	if err := item.Cancel(now); err != nil {
		if errors.Is(err, queue.ErrTerminalState) {
			return false, nil
		}
		if errors.Is(err, queue.ErrItemLeased) {
			return false, fmt.Errorf("%w: item is mid-flight; it will finish or time out", common.ErrConflict)
		}
		return false, err
	}
	if err := s.queue.Update(ctx, item, prev); err != nil {
		if errors.Is(err, queue.ErrStaleState) {
			return false, fmt.Errorf("%w: item state changed", common.ErrConflict)
		}
		return false, err
	}

	if n, err := s.checkbacks.SkipPendingForVariant(ctx, item.VariantID(), now); err != nil {
		s.logger.Warn("skipping pending checkbacks after cancel", "variant_id", item.VariantID(), "error", err)
	} else if n > 0 {
		s.logger.Info("skipped pending checkbacks", "variant_id", item.VariantID(), "count", n)
	}

	s.logger.Info("cancelled queue item", "item_id", id)
	return true, nil
}

// Reschedule moves a queued item to a later time.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newTime time.Time) (bool, error) {
	item, err := s.queue.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			return false, fmt.Errorf("%w: queue item %s", common.ErrNotFound, id)
		}
		return false, err
	}

	prev := item.Status()
	if err := item.Reschedule(newTime, s.clk.Now()); err != nil {
		switch {
		case errors.Is(err, queue.ErrNotQueued):
			return false, nil
		case errors.Is(err, queue.ErrRescheduleNotMonotonic):
			return false, fmt.Errorf("%w: scheduled time cannot move backward", common.ErrInvalidRequest)
		default:
			return false, err
		}
	}
	if err := s.queue.Update(ctx, item, prev); err != nil {
		if errors.Is(err, queue.ErrStaleState) {
			return false, fmt.Errorf("%w: item state changed", common.ErrConflict)
		}
		return false, err
	}
	return true, nil
}

// Retry resets the attempt counter on an item parked in retry so it
// dispatches on the next poll.
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (bool, error) {
	item, err := s.queue.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			return false, fmt.Errorf("%w: queue item %s", common.ErrNotFound, id)
		}
		return false, err
	}

	prev := item.Status()
	if err := item.ForceRetry(s.clk.Now()); err != nil {
		if errors.Is(err, queue.ErrNotRetryable) {
			return false, nil
		}
		return false, err
	}
	if err := s.queue.Update(ctx, item, prev); err != nil {
		if errors.Is(err, queue.ErrStaleState) {
			return false, fmt.Errorf("%w: item state changed", common.ErrConflict)
		}
		return false, err
	}
	return true, nil
}

// Stats returns the workspace queue census.
func (s *Service) Stats(ctx context.Context, workspaceID uuid.UUID) (*queue.Stats, error) {
	return s.queue.Stats(ctx, workspaceID)
}
