// path: internal/domain/metrics/repository.go
package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// CheckbackRepository persists metric-pull jobs. CreateForPublish must be
// idempotent on (variant_id, offset_hours).
type CheckbackRepository interface {
	// CreateForPublish inserts one pending job per offset, skipping offsets
	// that already exist for the variant. Returns how many were created.
	CreateForPublish(ctx context.Context, variantID uuid.UUID, publishedAt time.Time, offsetsHours []int, now time.Time) (int, error)

	// LeaseDue selects up to n due pending jobs with skip-locked semantics
	// and marks them fired.
	LeaseDue(ctx context.Context, n int, now time.Time) ([]*CheckbackJob, error)

	// Complete finalizes a fired job.
	Complete(ctx context.Context, id uuid.UUID, status JobStatus, attemptCount int, lastError string, now time.Time) error

	// Requeue puts a fired job back to pending after a transient failure.
	Requeue(ctx context.Context, id uuid.UUID, attemptCount int, lastError string, now time.Time) error

	// SkipPendingForVariant marks all pending jobs for a variant skipped
	// (used when a queue item is cancelled after publish was abandoned).
	SkipPendingForVariant(ctx context.Context, variantID uuid.UUID, now time.Time) (int, error)

	FindByVariant(ctx context.Context, variantID uuid.UUID) ([]*CheckbackJob, error)
}

// SnapshotRepository persists append-only metric observations.
type SnapshotRepository interface {
	Insert(ctx context.Context, s *Snapshot) error

	// LatestPerVariant returns, for each variant of the content item, the
	// snapshot with maximum snapshot_at, keyed by the variant's platform.
	LatestPerVariant(ctx context.Context, contentID uuid.UUID) (map[content.Platform]*Snapshot, error)

	FindByVariant(ctx context.Context, variantID uuid.UUID, limit int) ([]*Snapshot, error)
}

// RollupRepository persists derived aggregates.
type RollupRepository interface {
	Upsert(ctx context.Context, r *Rollup) error
	FindByContentID(ctx context.Context, contentID uuid.UUID) (*Rollup, error)
}
