// ============================================================================
// FILE: internal/infrastructure/persistence/queue_repository.go
// PURPOSE: Durable publishing queue over Postgres with skip-locked leasing
// ============================================================================
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
)

type QueueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

const queueColumns = `
	id, variant_id, platform, scheduled_for, priority, status,
	attempt_count, max_attempts, platform_metadata, last_error,
	lease_expires_at, published_at, platform_post_id, platform_url,
	created_at, updated_at
`

// ============================================================================
// CREATE
// ============================================================================

func (r *QueueRepository) Create(ctx context.Context, item *queue.Item) error {
	return r.insert(ctx, r.db, item)
}

func (r *QueueRepository) CreateBatch(ctx context.Context, items []*queue.Item) error {
	return InTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, item := range items {
			if err := r.insert(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *QueueRepository) insert(ctx context.Context, q querier, item *queue.Item) error {
	meta, err := metadataJSON(item.PlatformMetadata())
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO queue_items (`+queueColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		item.ID(), item.VariantID(), string(item.Platform()), item.ScheduledFor(),
		int(item.Priority()), string(item.Status()), item.AttemptCount(), item.MaxAttempts(),
		meta, nullString(strPtrOrNil(item.LastError())),
		nullTime(item.LeaseExpiresAt()), nullTime(item.PublishedAt()),
		nullString(item.PlatformPostID()), nullString(item.PlatformURL()),
		item.CreatedAt(), item.UpdatedAt(),
	)
	if err != nil {
		return conflictIfDuplicate(err, fmt.Sprintf("queue item for variant %s", item.VariantID()))
	}
	return nil
}

// ============================================================================
// READ
// ============================================================================

func (r *QueueRepository) FindByID(ctx context.Context, id uuid.UUID) (*queue.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM queue_items WHERE id = $1`, id)
	item, err := scanQueueItem(row)
	if err == sql.ErrNoRows {
		return nil, queue.ErrItemNotFound
	}
	return item, err
}

func (r *QueueRepository) ListDue(ctx context.Context, limit int, platform *content.Platform, now time.Time) ([]*queue.Item, error) {
	query := `
		SELECT ` + queueColumns + ` FROM queue_items
		WHERE status IN ('queued', 'retry') AND scheduled_for <= $1
	`
	args := []interface{}{now}
	if platform != nil {
		query += ` AND platform = $2`
		args = append(args, string(*platform))
	}
	query += fmt.Sprintf(` ORDER BY priority DESC, scheduled_for ASC, id ASC LIMIT %d`, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list due items: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *QueueRepository) FindQueuedInWindow(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) ([]*queue.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+qualify(queueColumns, "qi")+`
		FROM queue_items qi
		JOIN content_variants cv ON cv.id = qi.variant_id
		JOIN content_items ci ON ci.id = cv.content_id
		WHERE ci.workspace_id = $1
		  AND qi.status IN ('queued', 'retry')
		  AND qi.scheduled_for >= $2 AND qi.scheduled_for < $3
		ORDER BY qi.scheduled_for ASC
	`, workspaceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to find queued items in window: %w", err)
	}
	defer rows.Close()
	return scanQueueItems(rows)
}

func (r *QueueRepository) HasPublishedItem(ctx context.Context, variantID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM queue_items WHERE variant_id = $1 AND status = 'published')
	`, variantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check published marker: %w", err)
	}
	return exists, nil
}

// ============================================================================
// LEASING
// ============================================================================

// LeaseDue implements the exactly-one-dispatcher guarantee: the inner select
// locks candidate rows FOR UPDATE SKIP LOCKED, so concurrent workers carve
// up the due set without blocking each other.
func (r *QueueRepository) LeaseDue(ctx context.Context, n int, now time.Time, ttl time.Duration) ([]*queue.Item, error) {
	var items []*queue.Item
	err := InTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE queue_items SET
				status = 'leased',
				lease_expires_at = $1,
				updated_at = $2
			WHERE id IN (
				SELECT id FROM queue_items
				WHERE status IN ('queued', 'retry') AND scheduled_for <= $2
				ORDER BY priority DESC, scheduled_for ASC, id ASC
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+queueColumns,
			now.Add(ttl), now, n,
		)
		if err != nil {
			return fmt.Errorf("failed to lease due items: %w", err)
		}
		defer rows.Close()
		items, err = scanQueueItems(rows)
		return err
	})
	return items, err
}

func (r *QueueRepository) ExpireLeases(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE queue_items SET
			status = 'queued',
			lease_expires_at = NULL,
			updated_at = $1
		WHERE status IN ('leased', 'publishing') AND lease_expires_at < $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire leases: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ============================================================================
// UPDATE
// ============================================================================

// Update persists a transition with a CAS on the previous status. Zero rows
// affected means another worker (or a Cancel) moved the row first.
func (r *QueueRepository) Update(ctx context.Context, item *queue.Item, prevStatus queue.Status) error {
	meta, err := metadataJSON(item.PlatformMetadata())
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE queue_items SET
			scheduled_for = $1,
			priority = $2,
			status = $3,
			attempt_count = $4,
			platform_metadata = $5,
			last_error = $6,
			lease_expires_at = $7,
			published_at = $8,
			platform_post_id = $9,
			platform_url = $10,
			updated_at = $11
		WHERE id = $12 AND status = $13
	`,
		item.ScheduledFor(), int(item.Priority()), string(item.Status()),
		item.AttemptCount(), meta, nullString(strPtrOrNil(item.LastError())),
		nullTime(item.LeaseExpiresAt()), nullTime(item.PublishedAt()),
		nullString(item.PlatformPostID()), nullString(item.PlatformURL()),
		item.UpdatedAt(), item.ID(), string(prevStatus),
	)
	if err != nil {
		return conflictIfDuplicate(err, fmt.Sprintf("publish marker for variant %s", item.VariantID()))
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return queue.ErrStaleState
	}
	return nil
}

// ============================================================================
// STATS
// ============================================================================

func (r *QueueRepository) Stats(ctx context.Context, workspaceID uuid.UUID) (*queue.Stats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT qi.status, qi.platform, COUNT(*)
		FROM queue_items qi
		JOIN content_variants cv ON cv.id = qi.variant_id
		JOIN content_items ci ON ci.id = cv.content_id
		WHERE ci.workspace_id = $1
		GROUP BY qi.status, qi.platform
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute queue stats: %w", err)
	}
	defer rows.Close()

	stats := &queue.Stats{
		ByStatus:   map[queue.Status]int{},
		ByPlatform: map[content.Platform]int{},
	}
	for rows.Next() {
		var status, platform string
		var count int
		if err := rows.Scan(&status, &platform, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[queue.Status(status)] += count
		stats.ByPlatform[content.Platform(platform)] += count
		stats.Total += count
	}
	return stats, rows.Err()
}

// ============================================================================
// SCANNING HELPERS
// ============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQueueItem(row rowScanner) (*queue.Item, error) {
	var (
		id, variantID                      uuid.UUID
		platform, status                   string
		scheduledFor, createdAt, updatedAt time.Time
		priority, attemptCount, maxAttempts int
		meta                               pqtype.NullRawMessage
		lastError, platformPostID, platformURL sql.NullString
		leaseExpiresAt, publishedAt        sql.NullTime
	)
	err := row.Scan(
		&id, &variantID, &platform, &scheduledFor, &priority, &status,
		&attemptCount, &maxAttempts, &meta, &lastError,
		&leaseExpiresAt, &publishedAt, &platformPostID, &platformURL,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{}
	if meta.Valid && len(meta.RawMessage) > 0 {
		if err := json.Unmarshal(meta.RawMessage, &metadata); err != nil {
			return nil, fmt.Errorf("decoding platform metadata: %w", err)
		}
	}

	return queue.Reconstruct(
		id, variantID, content.Platform(platform), scheduledFor,
		queue.Priority(priority), queue.Status(status), attemptCount, maxAttempts,
		metadata, lastError.String,
		timePtr(leaseExpiresAt), timePtr(publishedAt),
		stringPtr(platformPostID), stringPtr(platformURL),
		createdAt, updatedAt,
	), nil
}

func scanQueueItems(rows *sql.Rows) ([]*queue.Item, error) {
	items := make([]*queue.Item, 0)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func metadataJSON(m map[string]interface{}) (pqtype.NullRawMessage, error) {
	if m == nil {
		return pqtype.NullRawMessage{RawMessage: []byte("{}"), Valid: true}, nil
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("encoding platform metadata: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: buf, Valid: true}, nil
}
