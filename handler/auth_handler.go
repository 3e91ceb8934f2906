package handler

import (
	"context"
	"net/http"

	"dtracker/models"
)

// UserService is the account behaviour the handlers need.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) error
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	UpdateToken(ctx context.Context, req *models.UpdateTokenRequest) error
}

// AuthHandler handles registration, login and device tokens
type AuthHandler struct {
	service UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc UserService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.Register(r.Context(), &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User registered successfully",
	})
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// UpdateToken handles POST /update-token
func (h *AuthHandler) UpdateToken(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.UserID = actingUser(r, req.UserID)
	if err := h.service.UpdateToken(r.Context(), &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
