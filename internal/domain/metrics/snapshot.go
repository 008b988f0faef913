// path: internal/domain/metrics/snapshot.go
package metrics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TrafficType tags a snapshot row so downstream consumers can split
// organic from paid.
type TrafficType string

const (
	TrafficOrganic TrafficType = "organic"
	TrafficPaid    TrafficType = "paid"
)

// Snapshot is an append-only point-in-time observation of a variant's
// performance on its platform.
type Snapshot struct {
	ID          uuid.UUID
	VariantID   uuid.UUID
	SnapshotAt  time.Time
	Views       int64
	Impressions *int64
	Likes       int64
	Comments    int64
	Shares      int64
	Saves       *int64
	Clicks      *int64
	WatchTimeS  *float64
	TrafficType TrafficType
	Raw         json.RawMessage
	CreatedAt   time.Time
}
