// path: internal/application/metricsops/service.go
package metricsops

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
	"github.com/IsaiahDupree/mediaposter/internal/checkback"
	"github.com/IsaiahDupree/mediaposter/internal/clock"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
	"github.com/IsaiahDupree/mediaposter/internal/social"
)

// PollRecentResponse summarizes a sweep over recently published content.
type PollRecentResponse struct {
	ContentItems     int `json:"content_items"`
	MetricsCollected int `json:"metrics_collected"`
	RollupsUpdated   int `json:"rollups_updated"`
}

// Service implements the Metrics API: on-demand polls and rollup reads.
type Service struct {
	contents   content.Repository
	snapshots  metrics.SnapshotRepository
	rollups    metrics.RollupRepository
	aggregator *checkback.Aggregator
	registry   *social.Registry
	limiter    *social.RateLimiter
	logger     common.Logger
	clk        clock.Clock
	fetchTimeout time.Duration
}

// NewService creates the metrics operations service.
func NewService(
	contents content.Repository,
	snapshots metrics.SnapshotRepository,
	rollups metrics.RollupRepository,
	aggregator *checkback.Aggregator,
	registry *social.Registry,
	limiter *social.RateLimiter,
	logger common.Logger,
	clk clock.Clock,
	fetchTimeout time.Duration,
) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	return &Service{
		contents:     contents,
		snapshots:    snapshots,
		rollups:      rollups,
		aggregator:   aggregator,
		registry:     registry,
		limiter:      limiter,
		logger:       logger,
		clk:          clk,
		fetchTimeout: fetchTimeout,
	}
}

// PollVariant forces a metric pull for one variant regardless of the
// checkback schedule. Returns nil when the platform is still processing.
func (s *Service) PollVariant(ctx context.Context, variantID uuid.UUID) (*metrics.Snapshot, error) {
	variant, err := s.contents.FindVariantByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, content.ErrVariantNotFound) {
			return nil, fmt.Errorf("%w: variant %s", common.ErrNotFound, variantID)
		}
		return nil, err
	}
	if variant.PlatformPostID() == nil {
		return nil, fmt.Errorf("%w: variant %s is not published", common.ErrInvalidRequest, variantID)
	}

	adapter, err := s.registry.Get(variant.Platform())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	if err := s.limiter.Wait(ctx, variant.Platform()); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	result, err := adapter.FetchMetrics(callCtx, variant.Platform(), *variant.PlatformPostID())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	if result == nil {
		return nil, nil
	}

	snapshot := &metrics.Snapshot{
		VariantID:   variantID,
		SnapshotAt:  s.clk.Now(),
		Views:       result.Views,
		Impressions: result.Impressions,
		Likes:       result.Likes,
		Comments:    result.Comments,
		Shares:      result.Shares,
		Saves:       result.Saves,
		Clicks:      result.Clicks,
		WatchTimeS:  result.WatchTimeS,
		TrafficType: metrics.TrafficType(variant.TrafficType()),
		Raw:         result.Raw,
	}
	if err := s.snapshots.Insert(ctx, snapshot); err != nil {
		return nil, err
	}

	if _, err := s.aggregator.Recompute(ctx, variant.ContentID()); err != nil {
		s.logger.Error("rollup recompute after poll", "content_id", variant.ContentID(), "error", err)
	}
	return snapshot, nil
}

// GetRollup returns the latest aggregate for a content item.
func (s *Service) GetRollup(ctx context.Context, contentID uuid.UUID) (*metrics.Rollup, error) {
	rollup, err := s.rollups.FindByContentID(ctx, contentID)
	if err != nil {
		if errors.Is(err, metrics.ErrRollupNotFound) {
			return nil, fmt.Errorf("%w: rollup for content %s", common.ErrNotFound, contentID)
		}
		return nil, err
	}
	return rollup, nil
}

// PollRecent sweeps every content item with a variant published in the last
// `hours` and pulls fresh metrics for each published variant. Failures on
// one variant never block the rest.
func (s *Service) PollRecent(ctx context.Context, hours int) (*PollRecentResponse, error) {
	if hours <= 0 {
		hours = 48
	}
	since := s.clk.Now().Add(-time.Duration(hours) * time.Hour)

	contentIDs, err := s.contents.FindContentIDsPublishedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	resp := &PollRecentResponse{ContentItems: len(contentIDs)}
	for _, contentID := range contentIDs {
		variants, err := s.contents.FindVariantsByContentID(ctx, contentID)
		if err != nil {
			s.logger.Error("loading variants for poll", "content_id", contentID, "error", err)
			continue
		}
		collected := 0
		for _, v := range variants {
			if v.PlatformPostID() == nil {
				continue
			}
			if _, err := s.PollVariant(ctx, v.ID()); err != nil {
				s.logger.Warn("poll failed for variant", "variant_id", v.ID(), "error", err)
				continue
			}
			collected++
		}
		resp.MetricsCollected += collected
		if collected > 0 {
			resp.RollupsUpdated++
		}
	}
	return resp, nil
}
