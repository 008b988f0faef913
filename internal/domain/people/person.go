// path: internal/domain/people/person.go
package people

import (
	"time"

	"github.com/google/uuid"
)

// Person is a stable identity spanning platforms. Identities, events, and
// insights hang off it; deletion cascades downward.
type Person struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"workspace_id"`
	FullName     *string    `gorm:"size:255" json:"full_name,omitempty"`
	PrimaryEmail *string    `gorm:"size:255" json:"primary_email,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Identities []Identity `gorm:"foreignKey:PersonID;constraint:OnDelete:CASCADE" json:"identities,omitempty"`
}

func (Person) TableName() string { return "persons" }

// Identity is a per-platform handle. Unique on (channel, handle).
type Identity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID    uuid.UUID `gorm:"type:uuid;index;not null" json:"person_id"`
	Channel     string    `gorm:"size:50;not null;uniqueIndex:idx_identity_channel_handle" json:"channel"`
	Handle      string    `gorm:"size:255;not null;uniqueIndex:idx_identity_channel_handle" json:"handle"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

func (Identity) TableName() string { return "identities" }

// EventType classifies an engagement observation.
type EventType string

const (
	EventCommented EventType = "commented"
	EventLiked     EventType = "liked"
	EventShared    EventType = "shared"
	EventSaved     EventType = "saved"
	EventViewed    EventType = "viewed"
)

// IsValidEventType reports whether t is a known engagement type.
func IsValidEventType(t EventType) bool {
	switch t {
	case EventCommented, EventLiked, EventShared, EventSaved, EventViewed:
		return true
	default:
		return false
	}
}

// DepthWeight orders event types by engagement depth for warmth scoring.
func (t EventType) DepthWeight() float64 {
	switch t {
	case EventCommented:
		return 1.0
	case EventShared:
		return 0.8
	case EventSaved:
		return 0.6
	case EventLiked:
		return 0.3
	case EventViewed:
		return 0.1
	default:
		return 0.1
	}
}

// Event is one engagement observation attributed to a person.
type Event struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PersonID       uuid.UUID         `gorm:"type:uuid;index:idx_event_person_occurred;not null" json:"person_id"`
	Channel        string            `gorm:"size:50;not null" json:"channel"`
	EventType      EventType         `gorm:"size:20;not null" json:"event_type"`
	PlatformID     *string           `gorm:"size:255" json:"platform_id,omitempty"`
	ContentExcerpt *string           `gorm:"type:text" json:"content_excerpt,omitempty"`
	TrafficType    string            `gorm:"size:10;default:organic" json:"traffic_type"`
	OccurredAt     time.Time         `gorm:"index:idx_event_person_occurred;not null" json:"occurred_at"`
	Metadata       map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`
}

func (Event) TableName() string { return "person_events" }
