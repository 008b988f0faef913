// path: internal/handlers/queue_handler.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/queueops"
	"github.com/IsaiahDupree/mediaposter/internal/common/validation"
	"github.com/IsaiahDupree/mediaposter/internal/domain/content"
	"github.com/IsaiahDupree/mediaposter/internal/domain/queue"
	"github.com/IsaiahDupree/mediaposter/internal/middleware"
	"github.com/IsaiahDupree/mediaposter/pkg/response"
)

type QueueHandler struct {
	service *queueops.Service
}

func NewQueueHandler(service *queueops.Service) *QueueHandler {
	return &QueueHandler{service: service}
}

// itemView flattens a queue item for API responses.
type itemView struct {
	ID           uuid.UUID        `json:"id"`
	VariantID    uuid.UUID        `json:"variant_id"`
	Platform     content.Platform `json:"platform"`
	ScheduledFor time.Time        `json:"scheduled_for"`
	Priority     int              `json:"priority"`
	Status       queue.Status     `json:"status"`
	AttemptCount int              `json:"attempt_count"`
	MaxAttempts  int              `json:"max_attempts"`
	LastError    string           `json:"last_error,omitempty"`
	PublishedAt  *time.Time       `json:"published_at,omitempty"`
	PlatformURL  *string          `json:"platform_url,omitempty"`
}

func toItemView(item *queue.Item) itemView {
	return itemView{
		ID:           item.ID(),
		VariantID:    item.VariantID(),
		Platform:     item.Platform(),
		ScheduledFor: item.ScheduledFor(),
		Priority:     int(item.Priority()),
		Status:       item.Status(),
		AttemptCount: item.AttemptCount(),
		MaxAttempts:  item.MaxAttempts(),
		LastError:    item.LastError(),
		PublishedAt:  item.PublishedAt(),
		PlatformURL:  item.PlatformURL(),
	}
}

// Enqueue handles POST /api/queue
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req queueops.EnqueueRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.service.Enqueue(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, map[string]interface{}{"item_id": id})
}

// ListDue handles GET /api/queue/due?limit=&platform=
func (h *QueueHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var platform *content.Platform
	if p := r.URL.Query().Get("platform"); p != "" {
		cp := content.Platform(p)
		if !content.IsValidPlatform(cp) {
			response.Error(w, http.StatusBadRequest, "unknown platform")
			return
		}
		platform = &cp
	}

	items, err := h.service.ListDue(r.Context(), limit, platform)
	if err != nil {
		response.FromError(w, err)
		return
	}

	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item))
	}
	response.Success(w, views)
}

// Cancel handles POST /api/queue/{id}/cancel
func (h *QueueHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid item id")
		return
	}

	ok, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]bool{"cancelled": ok})
}

// Reschedule handles POST /api/queue/{id}/reschedule
func (h *QueueHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req struct {
		NewTime time.Time `json:"new_time" validate:"required"`
	}
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.service.Reschedule(r.Context(), id, req.NewTime)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]bool{"rescheduled": ok})
}

// Retry handles POST /api/queue/{id}/retry
func (h *QueueHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid item id")
		return
	}

	ok, err := h.service.Retry(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]bool{"retried": ok})
}

// Stats handles GET /api/queue/stats
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "workspace required")
		return
	}

	stats, err := h.service.Stats(r.Context(), workspaceID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, stats)
}
