package models

import "strings"

// TicketRequest is the body of /assign and /close-ticket.
// Upper-case names are the canonical ones; the assign screen sends
// roomNo/department/userid, which encoding/json matches case-insensitively
// except for department.
type TicketRequest struct {
	RoomNo        string `json:"ROOMNO"`
	Dept          string `json:"DEPT"`
	Department    string `json:"department"`
	FTID          string `json:"FTID"`
	UserID        string `json:"USERID"`
	ForceReassign bool   `json:"forceReassign"`
}

// DepartmentName returns DEPT, falling back to the department alias.
func (r *TicketRequest) DepartmentName() string {
	if d := strings.TrimSpace(r.Dept); d != "" {
		return d
	}
	return strings.TrimSpace(r.Department)
}

// AssignResult is the response of a successful assign call.
type AssignResult struct {
	Success               bool   `json:"success"`
	Message               string `json:"message"`
	AlreadyAssigned       bool   `json:"alreadyAssigned,omitempty"`
	AlreadyAssignedToSelf bool   `json:"alreadyAssignedToSelf,omitempty"`
	Reassigned            bool   `json:"reassigned,omitempty"`
	CurrentUser           string `json:"currentUser,omitempty"`
}

// CloseResult is the response of a successful close call.
type CloseResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	Outcome    string `json:"outcome"`
	Department string `json:"department"`
}

// StatusRequest is the body of the department status endpoints.
type StatusRequest struct {
	RoomNo string `json:"ROOMNO"`
	MRNO   string `json:"MRNO"`
	FTID   string `json:"FTID"`
}

// UpdateWorkflowRequest is the body of the department update endpoints.
type UpdateWorkflowRequest struct {
	RoomNo string          `json:"ROOMNO"`
	MRNO   string          `json:"MRNO"`
	FTID   string          `json:"FTID"`
	UserID string          `json:"USERID"`
	Steps  map[string]bool `json:"STEPS"`
}

// RegisterRequest creates a LOGIN row.
type RegisterRequest struct {
	UserName string `json:"USERNAME"`
	Dept     string `json:"DEPT"`
	UserID   string `json:"USERID"`
	Password string `json:"PASSWORD"`
	FCMToken string `json:"FCM_TOKEN"`
}

// LoginRequest authenticates a user.
type LoginRequest struct {
	UserID   string `json:"USERID"`
	Password string `json:"PASSWORD"`
}

// LoginResponse mirrors the fields the mobile app stores after login.
type LoginResponse struct {
	Message    string `json:"message"`
	UserID     string `json:"userid"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Token      string `json:"token"`
}

// UpdateTokenRequest stores a device push token for a user.
type UpdateTokenRequest struct {
	UserID   string `json:"USERID"`
	FCMToken string `json:"FCM_TOKEN"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
}
