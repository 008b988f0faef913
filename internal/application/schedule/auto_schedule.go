// path: internal/application/schedule/auto_schedule.go
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
	"github.com/IsaiahDupree/mediaposter/internal/scheduler"
)

// AutoSchedule computes a plan and materializes queue items for one
// workspace. One run at a time per workspace: the advisory lock rejects
// concurrent planners with Conflict.
func (s *Service) AutoSchedule(ctx context.Context, workspaceID uuid.UUID, req *AutoScheduleRequest) (*AutoScheduleResponse, error) {
	if workspaceID == uuid.Nil {
		return nil, fmt.Errorf("%w: workspace id required", common.ErrInvalidRequest)
	}

	release, err := s.lock.Acquire(ctx, workspaceID.String(), s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	cfg := s.plannerConfig(req)
	now := s.clk.Now()

	inv, err := s.scanner.Scan(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	plan, err := scheduler.Compute(inv, cfg, now)
	if err != nil {
		return nil, err
	}

	windowEnd := plan.HorizonStart.AddDate(0, 0, plan.HorizonDays)

	if cfg.ForceReschedule {
		evicted, err := s.plans.EvictQueued(ctx, workspaceID, plan.HorizonStart, windowEnd, now)
		if err != nil {
			return nil, fmt.Errorf("evicting window before replan: %w", err)
		}
		if evicted > 0 {
			s.logger.Info("evicted queued items for replan",
				"workspace_id", workspaceID, "count", evicted)
		}
	}

	// Gap filling: a non-forced run never stacks a second post onto a slot
	// that already has one on the same platform.
	occupied := map[string]bool{}
	if !cfg.ForceReschedule {
		existing, err := s.queue.FindQueuedInWindow(ctx, workspaceID, plan.HorizonStart, windowEnd)
		if err != nil {
			return nil, fmt.Errorf("loading existing window items: %w", err)
		}
		for _, item := range existing {
			occupied[slotKey(item.ScheduledFor(), item.Platform())] = true
		}
	}

	resp := &AutoScheduleResponse{}
	for _, binding := range plan.Bindings {
		if occupied[slotKey(binding.At, binding.Platform)] {
			resp.Skipped++
			continue
		}
		if err := s.materializeBinding(ctx, workspaceID, binding, now); err != nil {
			if errors.Is(err, content.ErrArtifactConsumed) || errors.Is(err, common.ErrConflict) {
				resp.Skipped++
				continue
			}
			return resp, err
		}
		resp.Created++
	}

	s.logger.Info("auto-schedule complete",
		"workspace_id", workspaceID, "created", resp.Created,
		"skipped", resp.Skipped, "can_extend_horizon", plan.CanExtendHorizon)
	return resp, nil
}

// materializeBinding writes one binding. A consumed artifact or a conflict is
// returned at once (the caller counts it as skipped); any other write error
// is retried once before surfacing.
func (s *Service) materializeBinding(ctx context.Context, workspaceID uuid.UUID, b scheduler.Binding, now time.Time) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		item, variant, queueItem, err := s.buildBinding(workspaceID, b, now)
		if err != nil {
			return err
		}
		lastErr = s.plans.Materialize(ctx, item, variant, queueItem, b.Artifact.ID(), now)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, content.ErrArtifactConsumed) || errors.Is(lastErr, common.ErrConflict) {
			return lastErr
		}
	}
	return fmt.Errorf("materializing binding for artifact %s: %w", b.Artifact.ID(), lastErr)
}

func (s *Service) buildBinding(workspaceID uuid.UUID, b scheduler.Binding, now time.Time) (*content.Item, *content.Variant, *queue.Item, error) {
	title := b.Artifact.SourceName()
	if title == "" {
		title = "untitled " + string(b.Artifact.Form())
	}

	item, err := content.NewItem(workspaceID, content.TypeVideo, title, now)
	if err != nil {
		return nil, nil, nil, err
	}
	variant, err := content.NewVariant(item.ID(), b.Platform, false, now)
	if err != nil {
		return nil, nil, nil, err
	}
	queueItem, err := queue.New(variant.ID(), b.Platform, b.At, queue.PriorityLow, 3, map[string]interface{}{
		"media_url": b.Artifact.MediaURL(),
		"caption":   title,
	}, now)
	if err != nil {
		return nil, nil, nil, err
	}
	return item, variant, queueItem, nil
}

func slotKey(at time.Time, platform content.Platform) string {
	return at.UTC().Truncate(time.Hour).Format(time.RFC3339) + "|" + string(platform)
}
