// path: internal/domain/queue/item_test.go
package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestItem(t *testing.T) *Item {
	t.Helper()
	item, err := New(uuid.New(), content.PlatformInstagram, t0, PriorityNormal, 3, nil, t0.Add(-time.Hour))
	require.NoError(t, err)
	return item
}

func TestNew_Validation(t *testing.T) {
	_, err := New(uuid.Nil, content.PlatformInstagram, t0, PriorityNormal, 3, nil, t0)
	assert.ErrorIs(t, err, ErrInvalidVariantID)

	_, err = New(uuid.New(), "myspace", t0, PriorityNormal, 3, nil, t0)
	assert.ErrorIs(t, err, ErrInvalidPlatform)

	_, err = New(uuid.New(), content.PlatformInstagram, t0, PriorityNormal, 0, nil, t0)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestNew_PastTimeRoundsUp(t *testing.T) {
	now := t0
	item, err := New(uuid.New(), content.PlatformTikTok, t0.Add(-2*time.Hour), PriorityNormal, 3, nil, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), item.ScheduledFor())
}

func TestHappyPath_QueuedToPublished(t *testing.T) {
	item := newTestItem(t)
	assert.Equal(t, StatusQueued, item.Status())

	require.NoError(t, item.Lease(t0, 5*time.Minute))
	assert.Equal(t, StatusLeased, item.Status())
	require.NotNil(t, item.LeaseExpiresAt())
	assert.True(t, item.LeaseExpiresAt().After(t0))

	require.NoError(t, item.BeginPublishing(t0))
	assert.Equal(t, 1, item.AttemptCount())

	require.NoError(t, item.MarkPublished("post-123", "https://x/p/123", t0.Add(time.Second)))
	assert.Equal(t, StatusPublished, item.Status())
	assert.True(t, item.Status().IsTerminal())
	require.NotNil(t, item.PlatformPostID())
	assert.Equal(t, "post-123", *item.PlatformPostID())
	assert.Nil(t, item.LeaseExpiresAt())

	// Terminal: no further transitions.
	assert.ErrorIs(t, item.Cancel(t0), ErrTerminalState)
	assert.ErrorIs(t, item.MarkFailed("x", t0), ErrTerminalState)
}

func TestLease_NotDueOrWrongState(t *testing.T) {
	item := newTestItem(t)
	assert.ErrorIs(t, item.Lease(t0.Add(-time.Hour), time.Minute), ErrNotDue)

	require.NoError(t, item.Lease(t0, time.Minute))
	assert.ErrorIs(t, item.Lease(t0, time.Minute), ErrNotLeasable)
}

func TestRetryChain_ExhaustsToFailed(t *testing.T) {
	item := newTestItem(t)

	for attempt := 1; attempt <= 3; attempt++ {
		now := item.ScheduledFor()
		require.NoError(t, item.Lease(now, 5*time.Minute))
		require.NoError(t, item.BeginPublishing(now))
		assert.Equal(t, attempt, item.AttemptCount())

		if attempt < 3 {
			require.NoError(t, item.MarkRetry("503 from platform", now.Add(time.Minute), now))
			assert.Equal(t, StatusRetry, item.Status())
			assert.Equal(t, "503 from platform", item.LastError())
		} else {
			// Attempt cap reached: MarkRetry degrades to terminal failed.
			require.NoError(t, item.MarkRetry("503 from platform", now.Add(time.Minute), now))
			assert.Equal(t, StatusFailed, item.Status())
		}
	}
	assert.True(t, item.Status().IsTerminal())
}

func TestMarkRetry_MonotonicScheduledFor(t *testing.T) {
	item := newTestItem(t)
	require.NoError(t, item.Lease(t0, time.Minute))
	require.NoError(t, item.BeginPublishing(t0))

	err := item.MarkRetry("err", item.ScheduledFor().Add(-time.Hour), t0)
	assert.ErrorIs(t, err, ErrRescheduleNotMonotonic)
}

func TestLeaseExpiry_DoesNotBurnAttempt(t *testing.T) {
	item := newTestItem(t)
	require.NoError(t, item.Lease(t0, 5*time.Minute))

	// Worker crashed before dispatching; reaper runs after the TTL.
	expiredAt := t0.Add(5*time.Minute + time.Second)
	require.NoError(t, item.ExpireLease(expiredAt))
	assert.Equal(t, StatusQueued, item.Status())
	assert.Equal(t, 0, item.AttemptCount())
	assert.Nil(t, item.LeaseExpiresAt())

	// Second dispatcher picks it up and publishes on attempt 1.
	require.NoError(t, item.Lease(expiredAt, 5*time.Minute))
	require.NoError(t, item.BeginPublishing(expiredAt))
	require.NoError(t, item.MarkPublished("post-9", "", expiredAt))
	assert.Equal(t, 1, item.AttemptCount())
}

func TestExpireLease_StillHeld(t *testing.T) {
	item := newTestItem(t)
	require.NoError(t, item.Lease(t0, 5*time.Minute))
	assert.ErrorIs(t, item.ExpireLease(t0.Add(time.Minute)), ErrLeaseStillHeld)
}

func TestCancel_StatesAndLeasedRefusal(t *testing.T) {
	item := newTestItem(t)
	require.NoError(t, item.Cancel(t0))
	assert.Equal(t, StatusCancelled, item.Status())

	leased := newTestItem(t)
	require.NoError(t, leased.Lease(t0, time.Minute))
	assert.ErrorIs(t, leased.Cancel(t0), ErrItemLeased)
}

func TestReschedule_OnlyQueuedAndMonotonic(t *testing.T) {
	item := newTestItem(t)

	assert.ErrorIs(t, item.Reschedule(item.ScheduledFor().Add(-time.Minute), t0), ErrRescheduleNotMonotonic)

	later := item.ScheduledFor().Add(2 * time.Hour)
	require.NoError(t, item.Reschedule(later, t0))
	assert.Equal(t, later, item.ScheduledFor())

	require.NoError(t, item.Lease(later, time.Minute))
	assert.ErrorIs(t, item.Reschedule(later.Add(time.Hour), later), ErrNotQueued)
}

func TestForceRetry_ResetsAttempts(t *testing.T) {
	item := newTestItem(t)
	require.NoError(t, item.Lease(t0, time.Minute))
	require.NoError(t, item.BeginPublishing(t0))
	require.NoError(t, item.MarkRetry("flaky", t0.Add(time.Hour), t0))

	now := t0.Add(time.Minute)
	require.NoError(t, item.ForceRetry(now))
	assert.Equal(t, StatusQueued, item.Status())
	assert.Equal(t, 0, item.AttemptCount())
	assert.True(t, item.IsDue(now))

	assert.ErrorIs(t, item.ForceRetry(now), ErrNotRetryable)
}

func TestRelease_FromPublishingRefundsAttempt(t *testing.T) {
	item := newTestItem(t)
	require.NoError(t, item.Lease(t0, time.Minute))
	require.NoError(t, item.BeginPublishing(t0))
	require.NoError(t, item.Release(t0, time.Minute))

	assert.Equal(t, StatusQueued, item.Status())
	assert.Equal(t, 0, item.AttemptCount())
	assert.Equal(t, t0.Add(time.Minute), item.ScheduledFor())
}
