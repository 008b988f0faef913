// path: internal/events/events.go
// Domain events carried on the in-process bus. The queue item's published
// state is persisted before Published is emitted; the checkback jobs for the
// variant are created by the bus subscriber, so a dropped Published event
// leaves that variant without checkback jobs.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

const (
	TypePublished        = "queue.item.published"
	TypeSnapshotRecorded = "metrics.snapshot.recorded"
)

// Published fires when a queue item reaches the published state.
type Published struct {
	QueueItemID    uuid.UUID
	VariantID      uuid.UUID
	ContentID      uuid.UUID
	Platform       content.Platform
	PlatformPostID string
	PublishedAt    time.Time
}

func (e Published) Type() string          { return TypePublished }
func (e Published) OccurredAt() time.Time { return e.PublishedAt }
func (e Published) AggregateID() string   { return e.VariantID.String() }

// SnapshotRecorded fires after a metric snapshot lands; the aggregator
// listens and recomputes the parent rollup.
type SnapshotRecorded struct {
	VariantID  uuid.UUID
	ContentID  uuid.UUID
	SnapshotAt time.Time
}

func (e SnapshotRecorded) Type() string          { return TypeSnapshotRecorded }
func (e SnapshotRecorded) OccurredAt() time.Time { return e.SnapshotAt }
func (e SnapshotRecorded) AggregateID() string   { return e.ContentID.String() }
