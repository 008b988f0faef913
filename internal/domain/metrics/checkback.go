// path: internal/domain/metrics/checkback.go
package metrics

import (
	"time"

	"github.com/google/uuid"
)

// Standard checkback offsets after publish, in hours.
var StandardOffsets = []int{1, 6, 24, 72, 168}

// JobStatus represents the checkback job lifecycle
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobFired     JobStatus = "fired"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobSkipped   JobStatus = "skipped"
)

// CheckbackJob is a durable metric-pull trigger. Unique on
// (variant_id, offset_hours); fire_at = published_at + offset.
type CheckbackJob struct {
	ID           uuid.UUID
	VariantID    uuid.UUID
	OffsetHours  int
	FireAt       time.Time
	Status       JobStatus
	AttemptCount int
	LastError    string
	FiredAt      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCheckbackJob builds the pending job for one offset.
func NewCheckbackJob(variantID uuid.UUID, publishedAt time.Time, offsetHours int, now time.Time) *CheckbackJob {
	now = now.UTC()
	return &CheckbackJob{
		ID:          uuid.New(),
		VariantID:   variantID,
		OffsetHours: offsetHours,
		FireAt:      publishedAt.UTC().Add(time.Duration(offsetHours) * time.Hour),
		Status:      JobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsDue reports whether the job should fire at now.
func (j *CheckbackJob) IsDue(now time.Time) bool {
	return j.Status == JobPending && !j.FireAt.After(now)
}

// IsLate reports whether now is past fire_at + grace.
func (j *CheckbackJob) IsLate(now time.Time, grace time.Duration) bool {
	return now.After(j.FireAt.Add(grace))
}
