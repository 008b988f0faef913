// ============================================================================
// FILE: internal/infrastructure/persistence/snapshot_repository.go
// PURPOSE: Append-only metric snapshot persistence
// ============================================================================
package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/metrics"
)

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotColumns = `
	id, variant_id, snapshot_at, views, impressions, likes, comments,
	shares, saves, clicks, watch_time_s, traffic_type, raw, created_at
`

func (r *SnapshotRepository) Insert(ctx context.Context, s *metrics.Snapshot) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.SnapshotAt
	}

	raw := pqtype.NullRawMessage{}
	if len(s.Raw) > 0 {
		raw = pqtype.NullRawMessage{RawMessage: s.Raw, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metric_snapshots (`+snapshotColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		s.ID, s.VariantID, s.SnapshotAt, s.Views, nullInt64(s.Impressions),
		s.Likes, s.Comments, s.Shares, nullInt64(s.Saves), nullInt64(s.Clicks),
		nullFloat64(s.WatchTimeS), string(s.TrafficType), raw, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// LatestPerVariant picks each variant's newest snapshot via DISTINCT ON,
// keyed by the variant's platform for the aggregator.
func (r *SnapshotRepository) LatestPerVariant(ctx context.Context, contentID uuid.UUID) (map[content.Platform]*metrics.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (ms.variant_id)
			cv.platform, `+qualify(snapshotColumns, "ms")+`
		FROM metric_snapshots ms
		JOIN content_variants cv ON cv.id = ms.variant_id
		WHERE cv.content_id = $1
		ORDER BY ms.variant_id, ms.snapshot_at DESC
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshots: %w", err)
	}
	defer rows.Close()

	out := map[content.Platform]*metrics.Snapshot{}
	for rows.Next() {
		var platform string
		s, err := scanSnapshotWithPrefix(rows, &platform)
		if err != nil {
			return nil, err
		}
		// Two variants on the same platform (organic + paid) both count;
		// sum them under the platform key.
		p := content.Platform(platform)
		if existing, ok := out[p]; ok {
			merged := *existing
			merged.Views += s.Views
			merged.Likes += s.Likes
			merged.Comments += s.Comments
			merged.Shares += s.Shares
			merged.Impressions = addOpt(merged.Impressions, s.Impressions)
			merged.Saves = addOpt(merged.Saves, s.Saves)
			merged.Clicks = addOpt(merged.Clicks, s.Clicks)
			out[p] = &merged
		} else {
			out[p] = s
		}
	}
	return out, rows.Err()
}

func (r *SnapshotRepository) FindByVariant(ctx context.Context, variantID uuid.UUID, limit int) ([]*metrics.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+` FROM metric_snapshots
		WHERE variant_id = $1 ORDER BY snapshot_at DESC LIMIT $2
	`, variantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]*metrics.Snapshot, 0)
	for rows.Next() {
		s, err := scanSnapshotWithPrefix(rows, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSnapshotWithPrefix(rows *sql.Rows, platform *string) (*metrics.Snapshot, error) {
	var (
		s           metrics.Snapshot
		impressions, saves, clicks sql.NullInt64
		watchTime   sql.NullFloat64
		trafficType string
		raw         pqtype.NullRawMessage
	)
	dest := []interface{}{}
	if platform != nil {
		dest = append(dest, platform)
	}
	dest = append(dest,
		&s.ID, &s.VariantID, &s.SnapshotAt, &s.Views, &impressions,
		&s.Likes, &s.Comments, &s.Shares, &saves, &clicks,
		&watchTime, &trafficType, &raw, &s.CreatedAt,
	)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	s.Impressions = int64Ptr(impressions)
	s.Saves = int64Ptr(saves)
	s.Clicks = int64Ptr(clicks)
	s.WatchTimeS = float64Ptr(watchTime)
	s.TrafficType = metrics.TrafficType(trafficType)
	if raw.Valid {
		s.Raw = raw.RawMessage
	}
	return &s, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	n := v.Float64
	return &n
}

func addOpt(a, b *int64) *int64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	sum := *a + *b
	return &sum
}
