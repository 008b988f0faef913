// path: internal/domain/queue/errors.go
package queue

import "errors"

// Queue item errors
var (
	ErrItemNotFound = errors.New("queue item not found")

	ErrInvalidVariantID   = errors.New("invalid variant ID")
	ErrInvalidPlatform    = errors.New("invalid platform")
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")

	ErrNotLeasable            = errors.New("item is not leasable")
	ErrNotDue                 = errors.New("item is not due")
	ErrNotLeased              = errors.New("item is not leased")
	ErrNotPublishing          = errors.New("item is not publishing")
	ErrNotQueued              = errors.New("item is not queued")
	ErrNotRetryable           = errors.New("item is not awaiting retry")
	ErrTerminalState          = errors.New("item is in a terminal state")
	ErrItemLeased             = errors.New("item is currently leased")
	ErrLeaseStillHeld         = errors.New("lease has not expired")
	ErrRescheduleNotMonotonic = errors.New("scheduled time cannot move backward")
	ErrDuplicatePublish       = errors.New("variant already has a published item")
	ErrStaleState             = errors.New("item state changed concurrently")
)
