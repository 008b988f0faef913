// path: pkg/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/IsaiahDupree/mediaposter/internal/application/common"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success writes a success JSON response
func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// Created writes a 201 with the created resource
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// FromError maps the application error taxonomy onto HTTP statuses. Callers
// above the API surface only ever see InvalidRequest, NotFound, Conflict,
// Unauthorized, or Unavailable.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidRequest):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrConflict):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
