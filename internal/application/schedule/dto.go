// path: internal/application/schedule/dto.go
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
)

// ArtifactView is the API shape of one inventory row.
type ArtifactView struct {
	ID         uuid.UUID `json:"id"`
	SourceName string    `json:"source_name"`
	DurationS  float64   `json:"duration_s"`
	Form       string    `json:"form"`
	ReadyAt    time.Time `json:"ready_at"`
}

// FormInventory is one side of the classified inventory.
type FormInventory struct {
	Count int            `json:"count"`
	Items []ArtifactView `json:"items"`
}

// InventoryResponse answers GetInventory.
type InventoryResponse struct {
	Short FormInventory `json:"short"`
	Long  FormInventory `json:"long"`
	Total int           `json:"total"`
}

// PlanSlotView is one planned slot in the GetPlan response.
type PlanSlotView struct {
	Day      int              `json:"day"`
	At       time.Time        `json:"at"`
	Form     string           `json:"form"`
	Platform content.Platform `json:"platform,omitempty"`
}

// PlanResponse answers GetPlan.
type PlanResponse struct {
	HorizonStart     time.Time      `json:"horizon_start"`
	HorizonDays      int            `json:"horizon_days"`
	RateShort        float64        `json:"rate_short"`
	RateLong         float64        `json:"rate_long"`
	Slots            []PlanSlotView `json:"slots"`
	CanExtendHorizon bool           `json:"can_extend_horizon"`
}

// AutoScheduleRequest parameterizes one scheduling run.
type AutoScheduleRequest struct {
	ForceReschedule bool               `json:"force_reschedule"`
	Platforms       []content.Platform `json:"platforms,omitempty"`
	PreferredHours  []int              `json:"preferred_hours,omitempty"`
	HorizonMonths   int                `json:"horizon_months,omitempty"`
}

// AutoScheduleResponse reports what the run did.
type AutoScheduleResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// UpdateResponse answers UpdateOnNewContent.
type UpdateResponse struct {
	Rescheduled int `json:"rescheduled"`
}
