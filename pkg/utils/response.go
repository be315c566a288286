package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gatepass-backend/internal/apperrors"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[Response] Failed to encode JSON: %v", err)
	}
}

// Error maps the workflow error taxonomy onto HTTP statuses:
// validation 422, conflict 409, not found 404, forbidden 403, number space
// exhaustion 503, anything else 500.
func Error(w http.ResponseWriter, err error) {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "validation failed",
			"messages": ve.Messages,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrConflict):
		JSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		JSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		JSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNumberSpaceExhausted):
		JSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		log.Printf("[Response] Internal error: %v", err)
		JSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}
