// path: internal/handlers/metrics_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/IsaiahDupree/mediaposter/internal/application/metricsops"
	"github.com/IsaiahDupree/mediaposter/pkg/response"
)

type MetricsHandler struct {
	service *metricsops.Service
}

func NewMetricsHandler(service *metricsops.Service) *MetricsHandler {
	return &MetricsHandler{service: service}
}

// PollVariant handles POST /api/metrics/variants/{id}/poll
func (h *MetricsHandler) PollVariant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid variant id")
		return
	}

	snapshot, err := h.service.PollVariant(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	if snapshot == nil {
		response.JSON(w, http.StatusAccepted, map[string]string{
			"status": "platform still processing",
		})
		return
	}
	response.Success(w, snapshot)
}

// GetRollup handles GET /api/metrics/content/{id}/rollup
func (h *MetricsHandler) GetRollup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid content id")
		return
	}

	rollup, err := h.service.GetRollup(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, rollup)
}

// PollRecent handles POST /api/metrics/poll-recent?hours=
func (h *MetricsHandler) PollRecent(w http.ResponseWriter, r *http.Request) {
	hours, _ := strconv.Atoi(r.URL.Query().Get("hours"))

	res, err := h.service.PollRecent(r.Context(), hours)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}
