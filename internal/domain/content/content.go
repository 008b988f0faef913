// path: internal/domain/content/content.go
package content

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the kind of a content item
type Type string

const (
	TypeVideo    Type = "video"
	TypeImage    Type = "image"
	TypeCarousel Type = "carousel"
	TypeBlog     Type = "blog"
)

// Platform identifies a publishing target. Adapters register under these ids.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformThreads   Platform = "threads"
	PlatformBluesky   Platform = "bluesky"
	PlatformPinterest Platform = "pinterest"
)

// VariantStatus represents the lifecycle of a platform-bound variant
type VariantStatus string

const (
	VariantDraft      VariantStatus = "draft"
	VariantReady      VariantStatus = "ready"
	VariantQueued     VariantStatus = "queued"
	VariantPublishing VariantStatus = "publishing"
	VariantPublished  VariantStatus = "published"
	VariantFailed     VariantStatus = "failed"
)

// Item is a logical piece of content independent of platform. It owns its
// variants; deleting an item cascades to them.
type Item struct {
	id          uuid.UUID
	workspaceID uuid.UUID
	contentType Type
	title       string
	createdAt   time.Time
}

// NewItem creates a content item with validation.
func NewItem(workspaceID uuid.UUID, contentType Type, title string, now time.Time) (*Item, error) {
	if workspaceID == uuid.Nil {
		return nil, ErrInvalidWorkspaceID
	}
	if !isValidType(contentType) {
		return nil, ErrInvalidContentType
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	return &Item{
		id:          uuid.New(),
		workspaceID: workspaceID,
		contentType: contentType,
		title:       title,
		createdAt:   now.UTC(),
	}, nil
}

// ReconstructItem recreates an item from persistence.
func ReconstructItem(id, workspaceID uuid.UUID, contentType Type, title string, createdAt time.Time) *Item {
	return &Item{
		id:          id,
		workspaceID: workspaceID,
		contentType: contentType,
		title:       title,
		createdAt:   createdAt,
	}
}

func (i *Item) ID() uuid.UUID          { return i.id }
func (i *Item) WorkspaceID() uuid.UUID { return i.workspaceID }
func (i *Item) ContentType() Type      { return i.contentType }
func (i *Item) Title() string          { return i.title }
func (i *Item) CreatedAt() time.Time   { return i.createdAt }

// Variant is a platform-bound instance of a content item. platform plus
// platform_post_id is unique once the post id is set.
type Variant struct {
	id             uuid.UUID
	contentID      uuid.UUID
	platform       Platform
	platformPostID *string
	platformURL    *string
	isPaid         bool
	publishedAt    *time.Time
	status         VariantStatus
	createdAt      time.Time
	updatedAt      time.Time
}

// NewVariant creates a queued variant bound to a platform.
func NewVariant(contentID uuid.UUID, platform Platform, isPaid bool, now time.Time) (*Variant, error) {
	if contentID == uuid.Nil {
		return nil, ErrInvalidContentID
	}
	if !IsValidPlatform(platform) {
		return nil, ErrInvalidPlatform
	}
	now = now.UTC()
	return &Variant{
		id:        uuid.New(),
		contentID: contentID,
		platform:  platform,
		isPaid:    isPaid,
		status:    VariantQueued,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructVariant recreates a variant from persistence.
func ReconstructVariant(
	id, contentID uuid.UUID,
	platform Platform,
	platformPostID, platformURL *string,
	isPaid bool,
	publishedAt *time.Time,
	status VariantStatus,
	createdAt, updatedAt time.Time,
) *Variant {
	return &Variant{
		id:             id,
		contentID:      contentID,
		platform:       platform,
		platformPostID: platformPostID,
		platformURL:    platformURL,
		isPaid:         isPaid,
		publishedAt:    publishedAt,
		status:         status,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (v *Variant) ID() uuid.UUID           { return v.id }
func (v *Variant) ContentID() uuid.UUID    { return v.contentID }
func (v *Variant) Platform() Platform      { return v.platform }
func (v *Variant) PlatformPostID() *string { return v.platformPostID }
func (v *Variant) PlatformURL() *string    { return v.platformURL }
func (v *Variant) IsPaid() bool            { return v.isPaid }
func (v *Variant) PublishedAt() *time.Time { return v.publishedAt }
func (v *Variant) Status() VariantStatus   { return v.status }
func (v *Variant) CreatedAt() time.Time    { return v.createdAt }
func (v *Variant) UpdatedAt() time.Time    { return v.updatedAt }

// TrafficType reports which traffic bucket this variant's snapshots belong to.
func (v *Variant) TrafficType() string {
	if v.isPaid {
		return "paid"
	}
	return "organic"
}

// MarkPublishing transitions the variant while the dispatcher holds it.
func (v *Variant) MarkPublishing(now time.Time) error {
	if v.status != VariantQueued {
		return ErrVariantNotQueued
	}
	v.status = VariantPublishing
	v.updatedAt = now.UTC()
	return nil
}

// MarkPublished records the platform's post identity. Terminal.
func (v *Variant) MarkPublished(platformPostID, platformURL string, now time.Time) error {
	if v.status == VariantPublished {
		return ErrVariantAlreadyPublished
	}
	now = now.UTC()
	v.status = VariantPublished
	v.platformPostID = &platformPostID
	if platformURL != "" {
		v.platformURL = &platformURL
	}
	v.publishedAt = &now
	v.updatedAt = now
	return nil
}

// ReturnToQueue reverts a publishing variant whose attempt will be retried.
func (v *Variant) ReturnToQueue(now time.Time) error {
	if v.status != VariantPublishing {
		return ErrVariantNotPublishing
	}
	v.status = VariantQueued
	v.updatedAt = now.UTC()
	return nil
}

// MarkFailed leaves the parent item untouched; other platforms stay publishable.
func (v *Variant) MarkFailed(now time.Time) error {
	if v.status == VariantPublished {
		return ErrVariantAlreadyPublished
	}
	v.status = VariantFailed
	v.updatedAt = now.UTC()
	return nil
}

func isValidType(t Type) bool {
	switch t {
	case TypeVideo, TypeImage, TypeCarousel, TypeBlog:
		return true
	default:
		return false
	}
}

// IsValidPlatform reports whether p is a known platform id.
func IsValidPlatform(p Platform) bool {
	switch p {
	case PlatformInstagram, PlatformTikTok, PlatformYouTube, PlatformFacebook,
		PlatformLinkedIn, PlatformTwitter, PlatformThreads, PlatformBluesky,
		PlatformPinterest:
		return true
	default:
		return false
	}
}
