package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"dtracker/models"
)

// BreachScanner runs an on-demand SLA scan.
type BreachScanner interface {
	Scan(ctx context.Context) (*models.ScanResult, error)
}

// NotificationLog lists sent breach notifications.
type NotificationLog interface {
	Today(ctx context.Context, department string) ([]models.SLANotification, error)
}

// SLAHandler handles breach scans and the notification log
type SLAHandler struct {
	scanner       BreachScanner
	notifications NotificationLog
}

// NewSLAHandler creates a new SLA handler
func NewSLAHandler(scanner BreachScanner, notifications NotificationLog) *SLAHandler {
	return &SLAHandler{scanner: scanner, notifications: notifications}
}

// CheckSLA handles GET /check-sla
func (h *SLAHandler) CheckSLA(w http.ResponseWriter, r *http.Request) {
	result, err := h.scanner.Scan(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if result.LockHeld {
		respondWithJSON(w, http.StatusAccepted, result)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// TodayNotifications handles GET /notifications/{department}/today
func (h *SLAHandler) TodayNotifications(w http.ResponseWriter, r *http.Request) {
	out, err := h.notifications.Today(r.Context(), mux.Vars(r)["department"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}
