// path: internal/domain/content/repository.go
package content

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines content item and variant persistence.
type Repository interface {
	CreateItem(ctx context.Context, item *Item) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*Item, error)

	CreateVariant(ctx context.Context, v *Variant) error
	UpdateVariant(ctx context.Context, v *Variant) error
	FindVariantByID(ctx context.Context, id uuid.UUID) (*Variant, error)
	FindVariantsByContentID(ctx context.Context, contentID uuid.UUID) ([]*Variant, error)

	// FindVariantByPlatformPost resolves (platform, platform_post_id); used by
	// comment ingestion to attribute engagement.
	FindVariantByPlatformPost(ctx context.Context, platform Platform, platformPostID string) (*Variant, error)

	// FindContentIDsPublishedSince lists distinct content ids with a variant
	// published after since (the PollRecent sweep).
	FindContentIDsPublishedSince(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

// ArtifactRepository defines inventory persistence.
type ArtifactRepository interface {
	Create(ctx context.Context, a *Artifact) error
	FindByID(ctx context.Context, id uuid.UUID) (*Artifact, error)

	// FindReady returns unconsumed artifacts for a workspace ordered by
	// ready_at ascending (FIFO binding order).
	FindReady(ctx context.Context, workspaceID uuid.UUID) ([]*Artifact, error)

	// MarkConsumed stamps consumed_at inside the caller's transaction scope.
	MarkConsumed(ctx context.Context, id uuid.UUID, at time.Time) error
}
