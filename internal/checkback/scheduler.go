// path: internal/checkback/scheduler.go
package checkback

import (
	"context"
	"fmt"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
	"github.com/IsaiahDupree/mediaposter/internal/events"
)

// Scheduler turns publish events into durable checkback jobs. Insertion is
// idempotent on (variant_id, offset_hours), so replays and crash-retries of
// the same publish never double a job.
type Scheduler struct {
	jobs    metrics.CheckbackRepository
	logger  common.Logger
	clk     clock.Clock
	offsets []int
}

// NewScheduler creates the checkback scheduler.
func NewScheduler(jobs metrics.CheckbackRepository, logger common.Logger, clk clock.Clock, offsetsHours []int) *Scheduler {
	if len(offsetsHours) == 0 {
		offsetsHours = metrics.StandardOffsets
	}
	return &Scheduler{jobs: jobs, logger: logger, clk: clk, offsets: offsetsHours}
}

// Subscribe wires the scheduler to the event bus.
func (s *Scheduler) Subscribe(bus common.EventBus) error {
	return bus.Subscribe(events.TypePublished, func(ctx context.Context, e common.Event) error {
		published, ok := e.(events.Published)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", e.Type())
		}
		return s.OnPublished(ctx, published)
	})
}

// OnPublished inserts one pending job per standard offset.
func (s *Scheduler) OnPublished(ctx context.Context, e events.Published) error {
	created, err := s.jobs.CreateForPublish(ctx, e.VariantID, e.PublishedAt, s.offsets, s.clk.Now())
	if err != nil {
		return fmt.Errorf("scheduling checkbacks for variant %s: %w", e.VariantID, err)
	}
	s.logger.Info("scheduled checkbacks",
		"variant_id", e.VariantID, "platform", e.Platform, "created", created)
	return nil
}
