// path: internal/social/adapter.go
package social

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// Adapter is the capability interface every platform plugin implements. The
// engine never talks to a platform except through one of these.
type Adapter interface {
	// ID returns the adapter identifier (stable across restarts).
	ID() string

	// DisplayName returns a human-readable adapter name.
	DisplayName() string

	// SupportedPlatforms lists the platform ids this adapter serves.
	SupportedPlatforms() []content.Platform

	// Publish pushes a variant's media to the platform. Idempotent when
	// request.IdempotencyKey is supplied. Errors must be classified via
	// the common error wrappers (transient / permanent / auth expired).
	Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error)

	// FetchMetrics pulls the current metric snapshot for a platform post.
	// MAY return (nil, nil) while the platform is still processing.
	FetchMetrics(ctx context.Context, platform content.Platform, platformPostID string) (*MetricsResult, error)

	// FetchComments pages through comments since the cursor. The caller
	// owns cursor handling.
	FetchComments(ctx context.Context, platform content.Platform, platformPostID string, since *time.Time, cursor string) (*CommentsPage, error)

	// SupportsScheduling is informational only; the engine never relies on
	// native scheduling.
	SupportsScheduling() bool

	// RateLimits describes the platform's limits; the dispatcher honors
	// them via per-adapter token buckets.
	RateLimits() map[string]RateLimit
}

// RecentLookuper is the optional publish-idempotency capability. On an
// ambiguous publish failure the dispatcher asks whether the post actually
// landed before burning the attempt.
type RecentLookuper interface {
	LookupRecent(ctx context.Context, variantID uuid.UUID) (platformPostID string, found bool, err error)
}

// PublishRequest carries everything an adapter needs to publish one variant.
type PublishRequest struct {
	VariantID      uuid.UUID
	Platform       content.Platform
	MediaURLs      []string
	Caption        string
	Hashtags       []string
	IdempotencyKey string
	// Metadata is the opaque per-platform escape hatch; it never leaks past
	// the adapter boundary.
	Metadata map[string]interface{}
}

// PublishResult is the platform's acknowledgement of a publish.
type PublishResult struct {
	PlatformPostID string    `json:"platform_post_id"`
	PlatformURL    string    `json:"platform_url"`
	PublishedAt    time.Time `json:"published_at"`
}

// MetricsResult is a raw per-post observation from the platform.
type MetricsResult struct {
	Views       int64           `json:"views"`
	Impressions *int64          `json:"impressions,omitempty"`
	Likes       int64           `json:"likes"`
	Comments    int64           `json:"comments"`
	Shares      int64           `json:"shares"`
	Saves       *int64          `json:"saves,omitempty"`
	Clicks      *int64          `json:"clicks,omitempty"`
	WatchTimeS  *float64        `json:"watch_time_s,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// CommentRecord is one comment as the platform reports it.
type CommentRecord struct {
	AuthorHandle string    `json:"author_handle"`
	AuthorName   string    `json:"author_name,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}

// CommentsPage is one page of comments plus the continuation cursor.
type CommentsPage struct {
	Comments   []CommentRecord `json:"comments"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// RateLimit describes one limit bucket the platform enforces.
type RateLimit struct {
	Requests int           `json:"requests"`
	Per      time.Duration `json:"per"`
	Burst    int           `json:"burst"`
}
