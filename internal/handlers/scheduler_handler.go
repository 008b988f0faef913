// path: internal/handlers/scheduler_handler.go
package handlers

import (
	"net/http"

	"github.com/IsaiahDupree/mediaposter/internal/application/schedule"
	"github.com/IsaiahDupree/mediaposter/internal/common/validation"
	"github.com/IsaiahDupree/mediaposter/internal/middleware"
	"github.com/IsaiahDupree/mediaposter/pkg/response"
)

type SchedulerHandler struct {
	service *schedule.Service
}

func NewSchedulerHandler(service *schedule.Service) *SchedulerHandler {
	return &SchedulerHandler{service: service}
}

// GetInventory handles GET /api/scheduler/inventory
func (h *SchedulerHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "workspace required")
		return
	}

	inv, err := h.service.GetInventory(r.Context(), workspaceID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, inv)
}

// GetPlan handles GET /api/scheduler/plan
func (h *SchedulerHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "workspace required")
		return
	}

	plan, err := h.service.GetPlan(r.Context(), workspaceID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, plan)
}

// AutoSchedule handles POST /api/scheduler/auto
func (h *SchedulerHandler) AutoSchedule(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "workspace required")
		return
	}

	var req schedule.AutoScheduleRequest
	if r.ContentLength > 0 {
		if err := validation.DecodeAndValidate(r, &req); err != nil {
			response.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := h.service.AutoSchedule(r.Context(), workspaceID, &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}

// UpdateOnNewContent handles POST /api/scheduler/update
func (h *SchedulerHandler) UpdateOnNewContent(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "workspace required")
		return
	}

	res, err := h.service.UpdateOnNewContent(r.Context(), workspaceID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, res)
}
