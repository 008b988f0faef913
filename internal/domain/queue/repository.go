// path: internal/domain/queue/repository.go
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// Stats is the queue census returned by the Stats operation.
type Stats struct {
	ByStatus   map[Status]int           `json:"by_status"`
	ByPlatform map[content.Platform]int `json:"by_platform"`
	Total      int                      `json:"total"`
}

// Repository defines durable queue persistence. Implementations must back
// LeaseDue with SELECT ... FOR UPDATE SKIP LOCKED so two dispatchers never
// hold the same item, and must CAS on the previous status in Update so a
// concurrent Cancel is observed rather than overwritten.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	CreateBatch(ctx context.Context, items []*Item) error
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// Update persists a transition; prevStatus is the status the caller
	// loaded. Returns ErrStaleState when the row moved underneath.
	Update(ctx context.Context, item *Item, prevStatus Status) error

	// LeaseDue atomically selects up to n due items ordered by
	// (priority DESC, scheduled_for ASC, id ASC), marks them leased with
	// lease_expires_at = now + ttl, and returns them.
	LeaseDue(ctx context.Context, n int, now time.Time, ttl time.Duration) ([]*Item, error)

	// ExpireLeases returns leased items whose lease passed back to queued.
	// Reports how many were reaped.
	ExpireLeases(ctx context.Context, now time.Time) (int, error)

	// ListDue is the read-only peek; it takes no locks.
	ListDue(ctx context.Context, limit int, platform *content.Platform, now time.Time) ([]*Item, error)

	// FindQueuedInWindow lists non-terminal queued items scheduled inside
	// [from, to) — gap-filling and force-reschedule eviction.
	FindQueuedInWindow(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) ([]*Item, error)

	// HasPublishedItem reports whether any item for variantID reached
	// published (the at-most-once guard).
	HasPublishedItem(ctx context.Context, variantID uuid.UUID) (bool, error)

	Stats(ctx context.Context, workspaceID uuid.UUID) (*Stats, error)
}
