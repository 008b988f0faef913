// ============================================================================
// FILE: internal/infrastructure/persistence/plan_store.go
// PURPOSE: Transactional materialization of schedule plans
// ============================================================================
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
)

// PlanStore materializes one schedule binding atomically: content item,
// variant, queue item, and the artifact's consumed_at land in a single
// transaction or not at all.
type PlanStore struct {
	db       *sql.DB
	contents *ContentRepository
	queueRep *QueueRepository
}

func NewPlanStore(db *sql.DB, contents *ContentRepository, queueRep *QueueRepository) *PlanStore {
	return &PlanStore{db: db, contents: contents, queueRep: queueRep}
}

// Materialize writes one binding. The artifact consume guard inside the
// transaction makes a concurrently planned artifact a no-op conflict rather
// than a double schedule.
func (s *PlanStore) Materialize(
	ctx context.Context,
	item *content.Item,
	variant *content.Variant,
	queueItem *queue.Item,
	artifactID uuid.UUID,
	consumedAt time.Time,
) error {
	return InTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE artifacts SET consumed_at = $1 WHERE id = $2 AND consumed_at IS NULL
		`, consumedAt, artifactID)
		if err != nil {
			return fmt.Errorf("failed to consume artifact: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return content.ErrArtifactConsumed
		}

		if err := s.contents.createItem(ctx, tx, item); err != nil {
			return err
		}
		if err := s.contents.createVariant(ctx, tx, variant); err != nil {
			return err
		}
		return s.queueRep.insert(ctx, tx, queueItem)
	})
}

// EvictQueued cancels unpublished queued items in the window ahead of a
// force reschedule. Terminal items are never touched.
func (s *PlanStore) EvictQueued(ctx context.Context, workspaceID uuid.UUID, from, to time.Time, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE queue_items qi SET status = 'cancelled', updated_at = $4
		FROM content_variants cv, content_items ci
		WHERE cv.id = qi.variant_id AND ci.id = cv.content_id
		  AND ci.workspace_id = $1
		  AND qi.status IN ('queued', 'retry')
		  AND qi.scheduled_for >= $2 AND qi.scheduled_for < $3
	`, workspaceID, from, to, now)
	if err != nil {
		return 0, fmt.Errorf("failed to evict queued items: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
