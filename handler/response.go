package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"dtracker/apperrors"
	"dtracker/logging"
	"dtracker/middleware"
	"dtracker/models"
)

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondWithJSON(w, statusCode, models.ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    statusCode,
	})
}

var errorTitles = map[apperrors.ErrorType]string{
	apperrors.ErrorTypeNotFound:     "Not found",
	apperrors.ErrorTypeValidation:   "Validation error",
	apperrors.ErrorTypeConflict:     "Conflict",
	apperrors.ErrorTypeUnauthorized: "Unauthorized",
	apperrors.ErrorTypeExternal:     "Upstream error",
}

// writeServiceError maps a service error to its response. Internal details
// are logged and never sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Type == apperrors.ErrorTypeInternal {
		logging.LoggerFromContext(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
		return
	}
	if appErr.Type == apperrors.ErrorTypeExternal {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
	}

	status := appErr.HTTPStatus()
	respondWithJSON(w, status, models.ErrorResponse{
		Error:   errorTitles[appErr.Type],
		Message: appErr.Message,
		Code:    status,
		Reason:  appErr.Reason,
	})
}

// decodeJSON parses the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request", "Failed to parse request body")
		return false
	}
	return true
}

// actingUser prefers the authenticated user over the one named in the body.
func actingUser(r *http.Request, fromBody string) string {
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		return id
	}
	return fromBody
}
