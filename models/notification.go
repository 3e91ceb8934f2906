package models

import (
	"time"

	"dtracker/sla"
)

// Values written to SLA_Notifications for breach rows raised by the detector.
const (
	NotificationTicketType     = "Facility"
	NotificationRaisedDeptName = "Facility_Check"
)

// SLANotification represents an SLA_Notifications row (append-only)
type SLANotification struct {
	ID             int64          `json:"ID"`
	TicketID       int64          `json:"TicketID"`
	TicketType     string         `json:"TicketType"`
	DeptName       string         `json:"DeptName"`
	UserID         *string        `json:"USERID"`
	RoomNo         string         `json:"RoomNo"`
	BreachType     sla.BreachType `json:"BreachType"`
	BreachDateTime time.Time      `json:"BreachDateTime"`
	RaisedDeptName string         `json:"Raised_DeptName"`
}

// BreachCandidate is an open ticket evaluated by the breach detector.
type BreachCandidate struct {
	Ticket
	Breach sla.BreachType
}

// ScanResult summarises one breach detector run.
type ScanResult struct {
	ScanID              string `json:"scanId"`
	Scanned             int    `json:"scanned"`
	AssignBreaches      int    `json:"assignBreaches"`
	CompletionBreaches  int    `json:"completionBreaches"`
	BothBreaches        int    `json:"bothBreaches"`
	DepartmentsNotified int    `json:"departmentsNotified"`
	Skipped             int    `json:"skipped"`
	Failed              int    `json:"failed"`
	LockHeld            bool   `json:"lockHeld,omitempty"`
}

// Notified is the total number of tickets included in sent pushes.
func (r ScanResult) Notified() int {
	return r.AssignBreaches + r.CompletionBreaches + r.BothBreaches
}
