// path: internal/domain/queue/item.go
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// Status represents the queue item state machine
type Status string

const (
	StatusQueued     Status = "queued"
	StatusLeased     Status = "leased"
	StatusPublishing Status = "publishing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRetry      Status = "retry"
)

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPublished, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Priority in the queue; higher dispatches first.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

// Item is a materialized scheduled publish. All transitions go through the
// methods below; persistence CASes on the previous status so a transition
// raced by Cancel is observed, never clobbered.
type Item struct {
	id               uuid.UUID
	variantID        uuid.UUID
	platform         content.Platform
	scheduledFor     time.Time
	priority         Priority
	status           Status
	attemptCount     int
	maxAttempts      int
	platformMetadata map[string]interface{}
	lastError        string
	leaseExpiresAt   *time.Time
	publishedAt      *time.Time
	platformPostID   *string
	platformURL      *string
	createdAt        time.Time
	updatedAt        time.Time
}

// New creates a queued item with validation.
func New(variantID uuid.UUID, platform content.Platform, scheduledFor time.Time, priority Priority, maxAttempts int, metadata map[string]interface{}, now time.Time) (*Item, error) {
	if variantID == uuid.Nil {
		return nil, ErrInvalidVariantID
	}
	if !content.IsValidPlatform(platform) {
		return nil, ErrInvalidPlatform
	}
	if maxAttempts < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	now = now.UTC()
	scheduledFor = scheduledFor.UTC()
	// Past times round up so a horizon shift never produces an already-due
	// backlog spike.
	if scheduledFor.Before(now) {
		scheduledFor = now.Add(time.Minute)
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &Item{
		id:               uuid.New(),
		variantID:        variantID,
		platform:         platform,
		scheduledFor:     scheduledFor,
		priority:         priority,
		status:           StatusQueued,
		maxAttempts:      maxAttempts,
		platformMetadata: metadata,
		createdAt:        now,
		updatedAt:        now,
	}, nil
}

// Reconstruct recreates an item from persistence.
func Reconstruct(
	id, variantID uuid.UUID,
	platform content.Platform,
	scheduledFor time.Time,
	priority Priority,
	status Status,
	attemptCount, maxAttempts int,
	platformMetadata map[string]interface{},
	lastError string,
	leaseExpiresAt, publishedAt *time.Time,
	platformPostID, platformURL *string,
	createdAt, updatedAt time.Time,
) *Item {
	if platformMetadata == nil {
		platformMetadata = map[string]interface{}{}
	}
	return &Item{
		id:               id,
		variantID:        variantID,
		platform:         platform,
		scheduledFor:     scheduledFor,
		priority:         priority,
		status:           status,
		attemptCount:     attemptCount,
		maxAttempts:      maxAttempts,
		platformMetadata: platformMetadata,
		lastError:        lastError,
		leaseExpiresAt:   leaseExpiresAt,
		publishedAt:      publishedAt,
		platformPostID:   platformPostID,
		platformURL:      platformURL,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (i *Item) ID() uuid.UUID                         { return i.id }
func (i *Item) VariantID() uuid.UUID                  { return i.variantID }
func (i *Item) Platform() content.Platform            { return i.platform }
func (i *Item) ScheduledFor() time.Time               { return i.scheduledFor }
func (i *Item) Priority() Priority                    { return i.priority }
func (i *Item) Status() Status                        { return i.status }
func (i *Item) AttemptCount() int                     { return i.attemptCount }
func (i *Item) MaxAttempts() int                      { return i.maxAttempts }
func (i *Item) PlatformMetadata() map[string]interface{} { return i.platformMetadata }
func (i *Item) LastError() string                     { return i.lastError }
func (i *Item) LeaseExpiresAt() *time.Time            { return i.leaseExpiresAt }
func (i *Item) PublishedAt() *time.Time               { return i.publishedAt }
func (i *Item) PlatformPostID() *string               { return i.platformPostID }
func (i *Item) PlatformURL() *string                  { return i.platformURL }
func (i *Item) CreatedAt() time.Time                  { return i.createdAt }
func (i *Item) UpdatedAt() time.Time                  { return i.updatedAt }

// IsDue reports whether the item is dispatchable at now.
func (i *Item) IsDue(now time.Time) bool {
	return (i.status == StatusQueued || i.status == StatusRetry) && !i.scheduledFor.After(now)
}

// Lease grants a worker an exclusive hold until now+ttl. Valid from queued
// or from retry once the backoff has elapsed.
func (i *Item) Lease(now time.Time, ttl time.Duration) error {
	if i.status != StatusQueued && i.status != StatusRetry {
		return ErrNotLeasable
	}
	if i.scheduledFor.After(now) {
		return ErrNotDue
	}
	now = now.UTC()
	expires := now.Add(ttl)
	i.status = StatusLeased
	i.leaseExpiresAt = &expires
	i.updatedAt = now
	return nil
}

// BeginPublishing moves a leased item into flight.
func (i *Item) BeginPublishing(now time.Time) error {
	if i.status != StatusLeased {
		return ErrNotLeased
	}
	i.status = StatusPublishing
	i.attemptCount++
	i.updatedAt = now.UTC()
	return nil
}

// MarkPublished records the publish result. Terminal.
func (i *Item) MarkPublished(platformPostID, platformURL string, now time.Time) error {
	if i.status != StatusPublishing {
		return ErrNotPublishing
	}
	now = now.UTC()
	i.status = StatusPublished
	i.publishedAt = &now
	i.platformPostID = &platformPostID
	if platformURL != "" {
		i.platformURL = &platformURL
	}
	i.leaseExpiresAt = nil
	i.updatedAt = now
	return nil
}

// MarkRetry schedules another attempt after a transient failure. The next
// scheduled_for must move forward (monotonic across reschedules).
func (i *Item) MarkRetry(lastError string, nextAt time.Time, now time.Time) error {
	if i.status != StatusPublishing {
		return ErrNotPublishing
	}
	if i.attemptCount >= i.maxAttempts {
		return i.MarkFailed(lastError, now)
	}
	nextAt = nextAt.UTC()
	if nextAt.Before(i.scheduledFor) {
		return ErrRescheduleNotMonotonic
	}
	i.status = StatusRetry
	i.lastError = lastError
	i.scheduledFor = nextAt
	i.leaseExpiresAt = nil
	i.updatedAt = now.UTC()
	return nil
}

// MarkFailed is the terminal failure transition.
func (i *Item) MarkFailed(lastError string, now time.Time) error {
	if i.status.IsTerminal() {
		return ErrTerminalState
	}
	i.status = StatusFailed
	i.lastError = lastError
	i.leaseExpiresAt = nil
	i.updatedAt = now.UTC()
	return nil
}

// Cancel flips any non-terminal, non-leased item to cancelled. A leased item
// finishes or times out; the dispatcher observes the cancel on its CAS.
func (i *Item) Cancel(now time.Time) error {
	if i.status.IsTerminal() {
		return ErrTerminalState
	}
	if i.status == StatusLeased || i.status == StatusPublishing {
		return ErrItemLeased
	}
	i.status = StatusCancelled
	i.leaseExpiresAt = nil
	i.updatedAt = now.UTC()
	return nil
}

// Reschedule moves a queued item to a later time. Only queued items move;
// scheduled_for never goes backward.
func (i *Item) Reschedule(newTime time.Time, now time.Time) error {
	if i.status != StatusQueued {
		return ErrNotQueued
	}
	newTime = newTime.UTC()
	if newTime.Before(i.scheduledFor) {
		return ErrRescheduleNotMonotonic
	}
	i.scheduledFor = newTime
	i.updatedAt = now.UTC()
	return nil
}

// ForceRetry resets the attempt counter on an item parked in retry so the
// next poll dispatches it immediately.
func (i *Item) ForceRetry(now time.Time) error {
	if i.status != StatusRetry {
		return ErrNotRetryable
	}
	now = now.UTC()
	i.status = StatusQueued
	i.attemptCount = 0
	i.lastError = ""
	if i.scheduledFor.After(now) {
		i.scheduledFor = now
	}
	i.updatedAt = now
	return nil
}

// Release hands a held item back to the queue without burning an attempt —
// used when no enabled adapter is available or the adapter rejected expired
// credentials, so nothing was published. delay pushes scheduled_for forward
// to avoid an immediate re-lease spin.
func (i *Item) Release(now time.Time, delay time.Duration) error {
	switch i.status {
	case StatusLeased:
	case StatusPublishing:
		// Undo the BeginPublishing increment: nothing was published.
		i.attemptCount--
		if i.attemptCount < 0 {
			i.attemptCount = 0
		}
	default:
		return ErrNotLeased
	}
	now = now.UTC()
	i.status = StatusQueued
	i.leaseExpiresAt = nil
	if next := now.Add(delay); next.After(i.scheduledFor) {
		i.scheduledFor = next
	}
	i.updatedAt = now
	return nil
}

// ExpireLease returns a timed-out lease to the queue. The lease timed out,
// not the work, so the attempt counter stays.
func (i *Item) ExpireLease(now time.Time) error {
	now = now.UTC()
	if i.status != StatusLeased && i.status != StatusPublishing {
		return ErrNotLeased
	}
	if i.leaseExpiresAt == nil || i.leaseExpiresAt.After(now) {
		return ErrLeaseStillHeld
	}
	// A lease that expired in `leased` never started the attempt, so the
	// counter is untouched. One that expired mid-publish keeps the attempt
	// counted so a crash loop cannot publish forever.
	i.status = StatusQueued
	i.leaseExpiresAt = nil
	i.updatedAt = now
	return nil
}
