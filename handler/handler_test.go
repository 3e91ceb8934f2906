package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtracker/apperrors"
	"dtracker/middleware"
	"dtracker/models"
)

type fakeTickets struct {
	got    *models.TicketRequest
	result *models.AssignResult
	err    error
}

func (f *fakeTickets) Assign(_ context.Context, req *models.TicketRequest) (*models.AssignResult, error) {
	f.got = req
	return f.result, f.err
}

func (f *fakeTickets) Close(_ context.Context, req *models.TicketRequest) (*models.CloseResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.CloseResult{Success: true, Status: 5, Outcome: "within_sla"}, nil
}

func (f *fakeTickets) List(context.Context, string) ([]models.TicketListing, error) {
	return []models.TicketListing{}, f.err
}

func (f *fakeTickets) ListSummaryAuthorization(context.Context) ([]models.TicketListing, error) {
	return []models.TicketListing{}, f.err
}

type fakeWorkflows struct {
	dept string
	req  *models.UpdateWorkflowRequest
}

func (f *fakeWorkflows) GetStatus(_ context.Context, dept string, _ *models.StatusRequest) (*models.DischargeStatus, error) {
	f.dept = dept
	next := "PHARMACY_COMPLETED"
	at := "01-03-2025 14:30:00"
	return &models.DischargeStatus{
		Department: "PHARMACY",
		Steps: []models.NamedStepStatus{
			{Key: "PHARMACY_FILE_INITIATION", StepStatus: models.StepStatus{Status: true, Time: &at}},
			{Key: "PHARMACY_COMPLETED"},
		},
		NextStep: &next,
		State:    1,
	}, nil
}

func (f *fakeWorkflows) Update(_ context.Context, dept string, req *models.UpdateWorkflowRequest) (*models.WorkflowUpdateResult, error) {
	f.dept = dept
	f.req = req
	return &models.WorkflowUpdateResult{Success: true, Department: "PHARMACY", Applied: []string{"PHARMACY_COMPLETED"}, Skipped: []string{}, State: 2}, nil
}

type fakeScanner struct {
	result *models.ScanResult
	err    error
}

func (f *fakeScanner) Scan(context.Context) (*models.ScanResult, error) { return f.result, f.err }

type fakeLog struct{}

func (fakeLog) Today(_ context.Context, dept string) ([]models.SLANotification, error) {
	if dept == "unknown" {
		return nil, apperrors.NewValidationError("unknown department")
	}
	return []models.SLANotification{{ID: 1, DeptName: "BILLING"}}, nil
}

type fakeUsers struct{ err error }

func (f *fakeUsers) Register(context.Context, *models.RegisterRequest) error { return f.err }
func (f *fakeUsers) Login(context.Context, *models.LoginRequest) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{Message: "Login successful", UserID: "asha", Token: "t"}, nil
}
func (f *fakeUsers) UpdateToken(context.Context, *models.UpdateTokenRequest) error { return f.err }

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestTicketHandler_AssignUsesAuthenticatedUser(t *testing.T) {
	svc := &fakeTickets{result: &models.AssignResult{Success: true}}
	h := NewTicketHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/assign",
		strings.NewReader(`{"roomNo":"101","department":"pharmacy","FTID":"FT1","userid":"spoofed"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), "nurse01"))
	rec := httptest.NewRecorder()
	h.Assign(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.got)
	assert.Equal(t, "nurse01", svc.got.UserID)
	assert.Equal(t, "101", svc.got.RoomNo)
	assert.Equal(t, "pharmacy", svc.got.DepartmentName())
}

func TestTicketHandler_AssignFallsBackToBodyUser(t *testing.T) {
	svc := &fakeTickets{result: &models.AssignResult{Success: false, AlreadyAssigned: true, CurrentUser: "u1"}}
	h := NewTicketHandler(svc)

	rec := do(http.HandlerFunc(h.Assign), http.MethodPost, "/assign",
		`{"ROOMNO":"101","DEPT":"BILLING","FTID":"FT1","USERID":"u2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2", svc.got.UserID)

	var res models.AssignResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.AlreadyAssigned)
	assert.Equal(t, "u1", res.CurrentUser)
}

func TestTicketHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		reason  string
		message string
	}{
		{"closed", apperrors.NewClosedError("BILLING"), http.StatusConflict, "closed", "BILLING ticket is already closed"},
		{"not assigned", apperrors.NewConflictError(apperrors.ReasonNotAssigned, "must be assigned"), http.StatusConflict, "not_assigned", "must be assigned"},
		{"not found", apperrors.NewNotFoundError("ticket not found"), http.StatusNotFound, "", "ticket not found"},
		{"validation", apperrors.NewValidationError("missing required fields: FTID"), http.StatusBadRequest, "", "missing required fields: FTID"},
		{"internal", apperrors.NewInternalError("failed", errors.New("dial tcp 10.0.0.5:3306")), http.StatusInternalServerError, "", "An unexpected error occurred"},
		{"plain", errors.New("Table 'x' doesn't exist"), http.StatusInternalServerError, "", "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTicketHandler(&fakeTickets{err: tt.err})
			rec := do(http.HandlerFunc(h.Close), http.MethodPost, "/close-ticket",
				`{"ROOMNO":"101","DEPT":"BILLING","FTID":"FT1","USERID":"u1"}`)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.reason, resp.Reason)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestTicketHandler_BadJSON(t *testing.T) {
	h := NewTicketHandler(&fakeTickets{})
	rec := do(http.HandlerFunc(h.Assign), http.MethodPost, "/assign", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func workflowRouter(h *WorkflowHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/get{department:[A-Za-z_]+}dischargeStatus", h.GetStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/UPDATE_{department:[A-Z_]+}_WORKFLOW", h.Update).Methods(http.MethodPost)
	return r
}

func TestWorkflowHandler_GetStatus(t *testing.T) {
	svc := &fakeWorkflows{}
	rec := do(workflowRouter(NewWorkflowHandler(svc)), http.MethodPost, "/api/getpharmacydischargeStatus",
		`{"ROOMNO":"101","MRNO":"MR1","FTID":"FT1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pharmacy", svc.dept)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "PHARMACY_COMPLETED", body["nextStep"])
	assert.Equal(t, float64(1), body["state"])
	step := body["PHARMACY_FILE_INITIATION"].(map[string]interface{})
	assert.Equal(t, true, step["status"])
	assert.Equal(t, "01-03-2025 14:30:00", step["time"])
	pending := body["PHARMACY_COMPLETED"].(map[string]interface{})
	assert.Nil(t, pending["time"])
}

func TestWorkflowHandler_Update(t *testing.T) {
	svc := &fakeWorkflows{}
	rec := do(workflowRouter(NewWorkflowHandler(svc)), http.MethodPost, "/api/UPDATE_DOCTOR_AUTHORIZATION_WORKFLOW",
		`{"ROOMNO":"101","MRNO":"MR1","FTID":"FT1","USERID":"u1","STEPS":{"AUTHORIZATION_REQUESTED":true}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DOCTOR_AUTHORIZATION", svc.dept)
	assert.Equal(t, map[string]bool{"AUTHORIZATION_REQUESTED": true}, svc.req.Steps)
}

func TestSLAHandler_CheckSLA(t *testing.T) {
	h := NewSLAHandler(&fakeScanner{result: &models.ScanResult{Scanned: 3, AssignBreaches: 1}}, fakeLog{})
	rec := do(http.HandlerFunc(h.CheckSLA), http.MethodGet, "/check-sla", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 1, res.AssignBreaches)

	h = NewSLAHandler(&fakeScanner{result: &models.ScanResult{LockHeld: true}}, fakeLog{})
	rec = do(http.HandlerFunc(h.CheckSLA), http.MethodGet, "/check-sla", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSLAHandler_CheckSLAPushProviderDown(t *testing.T) {
	scanner := &fakeScanner{err: apperrors.NewExternalError("breach push failed for every department", errors.New("fcm: 503"))}
	h := NewSLAHandler(scanner, fakeLog{})

	rec := do(http.HandlerFunc(h.CheckSLA), http.MethodGet, "/check-sla", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "Upstream error", resp.Error)
	assert.Equal(t, "breach push failed for every department", resp.Message)
}

func TestSLAHandler_TodayNotifications(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/notifications/{department}/today", NewSLAHandler(&fakeScanner{}, fakeLog{}).TodayNotifications)

	rec := do(r, http.MethodGet, "/notifications/BILLING/today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []models.SLANotification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)

	rec = do(r, http.MethodGet, "/notifications/unknown/today", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler(t *testing.T) {
	h := NewAuthHandler(&fakeUsers{})
	rec := do(http.HandlerFunc(h.Register), http.MethodPost, "/register", `{"USERID":"asha"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(http.HandlerFunc(h.Login), http.MethodPost, "/login", `{"USERID":"asha","PASSWORD":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, "asha", login.UserID)

	h = NewAuthHandler(&fakeUsers{err: apperrors.NewUnauthorizedError("invalid credentials")})
	rec = do(http.HandlerFunc(h.Login), http.MethodPost, "/login", `{"USERID":"asha","PASSWORD":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	h = NewAuthHandler(&fakeUsers{err: apperrors.NewNotFoundError("user not found")})
	rec = do(http.HandlerFunc(h.UpdateToken), http.MethodPost, "/update-token", `{"USERID":"x","FCM_TOKEN":"t"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(Health(fakePinger{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(Health(fakePinger{err: errors.New("down")}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
