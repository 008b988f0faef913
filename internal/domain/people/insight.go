// path: internal/domain/people/insight.go
package people

import (
	"time"

	"github.com/google/uuid"
)

// ActivityState buckets a person by recency of engagement.
type ActivityState string

const (
	StateActive  ActivityState = "active"
	StateWarming ActivityState = "warming"
	StateCool    ActivityState = "cool"
	StateDormant ActivityState = "dormant"
)

// ActivityStateAt derives the state from the last event time: active within
// 7 days, warming within 30, cool within 90, else dormant.
func ActivityStateAt(lastEvent, now time.Time) ActivityState {
	days := now.Sub(lastEvent).Hours() / 24
	switch {
	case days <= 7:
		return StateActive
	case days <= 30:
		return StateWarming
	case days <= 90:
		return StateCool
	default:
		return StateDormant
	}
}

// Insight is the derived lens over a person's engagement history.
type Insight struct {
	PersonID           uuid.UUID          `gorm:"type:uuid;primaryKey" json:"person_id"`
	Interests          []string           `gorm:"serializer:json" json:"interests"`
	TonePreferences    map[string]float64 `gorm:"serializer:json" json:"tone_preferences"`
	ChannelPreferences map[string]float64 `gorm:"serializer:json" json:"channel_preferences"`
	ActivityState      ActivityState      `gorm:"size:10;default:active" json:"activity_state"`
	WarmthScore        float64            `json:"warmth_score"`
	LastActiveAt       *time.Time         `json:"last_active_at,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (Insight) TableName() string { return "person_insights" }

// NewInsight bootstraps the lens for a freshly created person. New people
// start active with a neutral warmth until the first recompute.
func NewInsight(personID uuid.UUID, now time.Time) *Insight {
	t := now.UTC()
	return &Insight{
		PersonID:           personID,
		Interests:          []string{},
		TonePreferences:    map[string]float64{},
		ChannelPreferences: map[string]float64{},
		ActivityState:      StateActive,
		WarmthScore:        0.5,
		LastActiveAt:       &t,
		UpdatedAt:          t,
	}
}

// Touch nudges the lens on event ingestion without a full recompute.
func (i *Insight) Touch(now time.Time) {
	t := now.UTC()
	i.LastActiveAt = &t
	i.ActivityState = StateActive
	i.UpdatedAt = t
}
