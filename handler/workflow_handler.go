package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"dtracker/models"
)

// WorkflowService is the step executor behaviour the handlers need.
type WorkflowService interface {
	GetStatus(ctx context.Context, department string, req *models.StatusRequest) (*models.DischargeStatus, error)
	Update(ctx context.Context, department string, req *models.UpdateWorkflowRequest) (*models.WorkflowUpdateResult, error)
}

// WorkflowHandler handles the per-department status and update endpoints
type WorkflowHandler struct {
	service WorkflowService
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(svc WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: svc}
}

// GetStatus handles POST /api/get{department}dischargeStatus
func (h *WorkflowHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := h.service.GetStatus(r.Context(), mux.Vars(r)["department"], &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// Update handles POST /api/UPDATE_{department}_WORKFLOW
func (h *WorkflowHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateWorkflowRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actingUser(r, req.UserID)

	result, err := h.service.Update(r.Context(), mux.Vars(r)["department"], &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
