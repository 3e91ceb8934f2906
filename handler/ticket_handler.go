package handler

import (
	"context"
	"net/http"

	"dtracker/models"
)

// TicketService is the ticket behaviour the handlers need.
type TicketService interface {
	Assign(ctx context.Context, req *models.TicketRequest) (*models.AssignResult, error)
	Close(ctx context.Context, req *models.TicketRequest) (*models.CloseResult, error)
	List(ctx context.Context, department string) ([]models.TicketListing, error)
	ListSummaryAuthorization(ctx context.Context) ([]models.TicketListing, error)
}

// TicketHandler handles HTTP requests for department tickets
type TicketHandler struct {
	service TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(svc TicketService) *TicketHandler {
	return &TicketHandler{service: svc}
}

// Assign handles POST /assign (and its /assign_task, /assign_process aliases).
// A ticket held by someone else is reported with alreadyAssigned and 200;
// the client then retries with forceReassign.
func (h *TicketHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req models.TicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actingUser(r, req.UserID)

	result, err := h.service.Assign(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Close handles POST /close-ticket
func (h *TicketHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req models.TicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actingUser(r, req.UserID)

	result, err := h.service.Close(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ListPeople handles GET /people[?department=X]
func (h *TicketHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.List(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, listing)
}

// ListSummaryAuthorization handles GET /people-summary-authorization
func (h *TicketHandler) ListSummaryAuthorization(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.ListSummaryAuthorization(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, listing)
}
