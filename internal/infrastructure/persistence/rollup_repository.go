// ============================================================================
// FILE: internal/infrastructure/persistence/rollup_repository.go
// PURPOSE: Content rollup upserts
// ============================================================================
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
)

type RollupRepository struct {
	db *sql.DB
}

func NewRollupRepository(db *sql.DB) *RollupRepository {
	return &RollupRepository{db: db}
}

func (r *RollupRepository) Upsert(ctx context.Context, rollup *metrics.Rollup) error {
	var bestPlatform sql.NullString
	if rollup.BestPlatform != nil {
		bestPlatform = sql.NullString{String: string(*rollup.BestPlatform), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO content_rollups (
			content_id, total_views, total_impressions, total_likes,
			total_comments, total_shares, total_saves, total_clicks,
			avg_watch_time_s, best_platform, last_updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (content_id) DO UPDATE SET
			total_views = EXCLUDED.total_views,
			total_impressions = EXCLUDED.total_impressions,
			total_likes = EXCLUDED.total_likes,
			total_comments = EXCLUDED.total_comments,
			total_shares = EXCLUDED.total_shares,
			total_saves = EXCLUDED.total_saves,
			total_clicks = EXCLUDED.total_clicks,
			avg_watch_time_s = EXCLUDED.avg_watch_time_s,
			best_platform = EXCLUDED.best_platform,
			last_updated_at = EXCLUDED.last_updated_at
	`,
		rollup.ContentID, rollup.TotalViews, rollup.TotalImpressions,
		rollup.TotalLikes, rollup.TotalComments, rollup.TotalShares,
		rollup.TotalSaves, rollup.TotalClicks, nullFloat64(rollup.AvgWatchTimeS),
		bestPlatform, rollup.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rollup: %w", err)
	}
	return nil
}

func (r *RollupRepository) FindByContentID(ctx context.Context, contentID uuid.UUID) (*metrics.Rollup, error) {
	var (
		rollup       metrics.Rollup
		avgWatch     sql.NullFloat64
		bestPlatform sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT content_id, total_views, total_impressions, total_likes,
			total_comments, total_shares, total_saves, total_clicks,
			avg_watch_time_s, best_platform, last_updated_at
		FROM content_rollups WHERE content_id = $1
	`, contentID).Scan(
		&rollup.ContentID, &rollup.TotalViews, &rollup.TotalImpressions,
		&rollup.TotalLikes, &rollup.TotalComments, &rollup.TotalShares,
		&rollup.TotalSaves, &rollup.TotalClicks, &avgWatch, &bestPlatform,
		&rollup.LastUpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, metrics.ErrRollupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rollup: %w", err)
	}
	rollup.AvgWatchTimeS = float64Ptr(avgWatch)
	if bestPlatform.Valid {
		p := content.Platform(bestPlatform.String)
		rollup.BestPlatform = &p
	}
	return &rollup, nil
}
