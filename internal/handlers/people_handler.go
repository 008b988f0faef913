// path: internal/handlers/people_handler.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apppeople "github.com/IsaiahDupree/mediaposter/internal/application/people"
	"github.com/IsaiahDupree/mediaposter/internal/common/validation"
	"github.com/IsaiahDupree/mediaposter/internal/middleware"
	"github.com/IsaiahDupree/mediaposter/pkg/response"
)

type PeopleHandler struct {
	service *apppeople.Service
}

func NewPeopleHandler(service *apppeople.Service) *PeopleHandler {
	return &PeopleHandler{service: service}
}

// IngestEvent handles POST /api/people/events
func (h *PeopleHandler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "workspace required")
		return
	}

	var req apppeople.IngestRequest
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	req.WorkspaceID = workspaceID

	res, err := h.service.IngestEvent(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, res)
}

// GetPerson handles GET /api/people/{id}
func (h *PeopleHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid person id")
		return
	}

	person, err := h.service.GetPerson(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, person)
}

// GetInsights handles GET /api/people/{id}/insights
func (h *PeopleHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "invalid person id")
		return
	}

	insight, err := h.service.GetInsights(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, insight)
}

// RecomputeLens handles POST /api/people/lens/recompute with either a
// person_id or all_active.
func (h *PeopleHandler) RecomputeLens(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PersonID  *uuid.UUID `json:"person_id,omitempty"`
		AllActive bool       `json:"all_active,omitempty"`
	}
	if err := validation.DecodeAndValidate(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.AllActive {
		res, err := h.service.RecomputeAllActive(r.Context())
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.Success(w, res)
		return
	}

	if req.PersonID == nil {
		response.Error(w, http.StatusBadRequest, "person_id or all_active required")
		return
	}
	if _, err := h.service.RecomputeLens(r.Context(), *req.PersonID); err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, apppeople.RecomputeResponse{Updated: 1})
}
