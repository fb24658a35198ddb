// Package respond writes JSON responses and maps workflow failures to
// status codes.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("Error sending response", "error", err)
	}
}

// Message writes {"message": msg} with the given status.
func Message(w http.ResponseWriter, r *http.Request, status int, msg string) {
	JSON(w, r, status, errorResponse{Message: msg})
}

// Error writes err with the status code of its kind. Causes of internal
// errors are logged and replaced with a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Error handling request", "error", err)
	}

	Message(w, r, status, apperr.Message(err, http.StatusText(status)))
}

// StatusOf maps an error kind to an HTTP status code.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PathID parses the {id} route parameter as a positive integer.
func PathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidRequest("invalid order id")
	}

	return id, nil
}
