// path: internal/checkback/aggregator.go
package checkback

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	domainmetrics "github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
	"github.com/IsaiahDupree/mediaposter/internal/events"
	"github.com/IsaiahDupree/mediaposter/internal/infrastructure/services"
)

// Aggregator recomputes a content item's rollup from the latest snapshot per
// variant. Rollups are derived state: recomputing is always safe and
// idempotent.
type Aggregator struct {
	snapshots domainmetrics.SnapshotRepository
	rollups   domainmetrics.RollupRepository
	logger    common.Logger
	clk       clock.Clock
	metrics   *services.EngineMetrics
}

// NewAggregator creates the rollup aggregator.
func NewAggregator(
	snapshots domainmetrics.SnapshotRepository,
	rollups domainmetrics.RollupRepository,
	logger common.Logger,
	clk clock.Clock,
	metrics *services.EngineMetrics,
) *Aggregator {
	return &Aggregator{
		snapshots: snapshots,
		rollups:   rollups,
		logger:    logger,
		clk:       clk,
		metrics:   metrics,
	}
}

// Subscribe wires the aggregator to snapshot events.
func (a *Aggregator) Subscribe(bus common.EventBus) error {
	return bus.Subscribe(events.TypeSnapshotRecorded, func(ctx context.Context, e common.Event) error {
		recorded, ok := e.(events.SnapshotRecorded)
		if !ok {
			return fmt.Errorf("unexpected event payload for %s", e.Type())
		}
		_, err := a.Recompute(ctx, recorded.ContentID)
		return err
	})
}

// Recompute rebuilds and upserts the rollup for one content item.
func (a *Aggregator) Recompute(ctx context.Context, contentID uuid.UUID) (*domainmetrics.Rollup, error) {
	latest, err := a.snapshots.LatestPerVariant(ctx, contentID)
	if err != nil {
		return nil, fmt.Errorf("loading latest snapshots for %s: %w", contentID, err)
	}
	if len(latest) == 0 {
		// No variant has reported yet; leave any existing rollup alone.
		return nil, nil
	}

	rollup := domainmetrics.Recompute(contentID, latest, a.clk.Now())
	if err := a.rollups.Upsert(ctx, rollup); err != nil {
		return nil, fmt.Errorf("upserting rollup for %s: %w", contentID, err)
	}

	a.metrics.RollupsRecomputed.Inc()
	a.logger.Info("rollup recomputed",
		"content_id", contentID, "total_views", rollup.TotalViews,
		"platforms", len(latest))
	return rollup, nil
}
