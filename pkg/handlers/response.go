// Package handlers implements the HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps service layer errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var vErr *apperrors.ValidationError
	switch {
	case errors.As(err, &vErr):
		if wErr := ErrorResponse(w, http.StatusBadRequest, "validation_failed", strings.Join(vErr.Violations, "; ")); wErr != nil {
			logger.Error("Failed to write error response", zap.Error(wErr))
		}
	case errors.Is(err, apperrors.ErrNotFound):
		if wErr := ErrorResponse(w, http.StatusNotFound, "not_found", "Resource not found"); wErr != nil {
			logger.Error("Failed to write error response", zap.Error(wErr))
		}
	case errors.Is(err, apperrors.ErrUnauthorized):
		if wErr := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Unauthorized"); wErr != nil {
			logger.Error("Failed to write error response", zap.Error(wErr))
		}
	case errors.Is(err, apperrors.ErrForbidden):
		if wErr := ErrorResponse(w, http.StatusForbidden, "forbidden", "Forbidden"); wErr != nil {
			logger.Error("Failed to write error response", zap.Error(wErr))
		}
	default:
		logger.Error("Request failed", zap.Error(err))
		if wErr := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error"); wErr != nil {
			logger.Error("Failed to write error response", zap.Error(wErr))
		}
	}
}
