// ============================================================================
// FILE: internal/infrastructure/persistence/content_repository.go
// PURPOSE: Content item and variant persistence
// ============================================================================
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const variantColumns = `
	id, content_id, platform, platform_post_id, platform_url, is_paid,
	published_at, status, created_at, updated_at
`

func (r *ContentRepository) CreateItem(ctx context.Context, item *content.Item) error {
	return r.createItem(ctx, r.db, item)
}

func (r *ContentRepository) createItem(ctx context.Context, q querier, item *content.Item) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO content_items (id, workspace_id, content_type, title, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID(), item.WorkspaceID(), string(item.ContentType()), item.Title(), item.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to create content item: %w", err)
	}
	return nil
}

func (r *ContentRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*content.Item, error) {
	var (
		itemID, workspaceID uuid.UUID
		contentType, title  string
		createdAt           time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, content_type, title, created_at
		FROM content_items WHERE id = $1
	`, id).Scan(&itemID, &workspaceID, &contentType, &title, &createdAt)
	if err == sql.ErrNoRows {
		return nil, content.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find content item: %w", err)
	}
	return content.ReconstructItem(itemID, workspaceID, content.Type(contentType), title, createdAt), nil
}

func (r *ContentRepository) CreateVariant(ctx context.Context, v *content.Variant) error {
	return r.createVariant(ctx, r.db, v)
}

func (r *ContentRepository) createVariant(ctx context.Context, q querier, v *content.Variant) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO content_variants (`+variantColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		v.ID(), v.ContentID(), string(v.Platform()),
		nullString(v.PlatformPostID()), nullString(v.PlatformURL()), v.IsPaid(),
		nullTime(v.PublishedAt()), string(v.Status()), v.CreatedAt(), v.UpdatedAt(),
	)
	if err != nil {
		return conflictIfDuplicate(err, fmt.Sprintf("variant for content %s on %s", v.ContentID(), v.Platform()))
	}
	return nil
}

// UpdateVariant persists the full variant row. The partial unique index on
// (platform, platform_post_id) rejects a duplicate publish surviving retry
// across restarts.
func (r *ContentRepository) UpdateVariant(ctx context.Context, v *content.Variant) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE content_variants SET
			platform_post_id = $1,
			platform_url = $2,
			published_at = $3,
			status = $4,
			updated_at = $5
		WHERE id = $6
	`,
		nullString(v.PlatformPostID()), nullString(v.PlatformURL()),
		nullTime(v.PublishedAt()), string(v.Status()), v.UpdatedAt(), v.ID(),
	)
	if err != nil {
		return conflictIfDuplicate(err, fmt.Sprintf("platform post %v already recorded", v.PlatformPostID()))
	}
	return nil
}

func (r *ContentRepository) FindVariantByID(ctx context.Context, id uuid.UUID) (*content.Variant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+variantColumns+` FROM content_variants WHERE id = $1`, id)
	v, err := scanVariant(row)
	if err == sql.ErrNoRows {
		return nil, content.ErrVariantNotFound
	}
	return v, err
}

func (r *ContentRepository) FindVariantsByContentID(ctx context.Context, contentID uuid.UUID) ([]*content.Variant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+variantColumns+` FROM content_variants
		WHERE content_id = $1 ORDER BY created_at ASC
	`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	variants := make([]*content.Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (r *ContentRepository) FindVariantByPlatformPost(ctx context.Context, platform content.Platform, platformPostID string) (*content.Variant, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+variantColumns+` FROM content_variants
		WHERE platform = $1 AND platform_post_id = $2
	`, string(platform), platformPostID)
	v, err := scanVariant(row)
	if err == sql.ErrNoRows {
		return nil, content.ErrVariantNotFound
	}
	return v, err
}

func (r *ContentRepository) FindContentIDsPublishedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT content_id FROM content_variants
		WHERE published_at >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent content: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanVariant(row rowScanner) (*content.Variant, error) {
	var (
		id, contentID              uuid.UUID
		platform, status           string
		platformPostID, platformURL sql.NullString
		isPaid                     bool
		publishedAt                sql.NullTime
		createdAt, updatedAt       time.Time
	)
	err := row.Scan(
		&id, &contentID, &platform, &platformPostID, &platformURL, &isPaid,
		&publishedAt, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	return content.ReconstructVariant(
		id, contentID, content.Platform(platform),
		stringPtr(platformPostID), stringPtr(platformURL), isPaid,
		timePtr(publishedAt), content.VariantStatus(status), createdAt, updatedAt,
	), nil
}
