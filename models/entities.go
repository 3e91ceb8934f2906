package models

import (
	"database/sql"
	"time"

	"dtracker/sla"
)

// AssignmentState is the STATUS column of a ticket.
type AssignmentState int

const (
	AssignmentUnassigned AssignmentState = 0
	AssignmentAssigned   AssignmentState = 1
	AssignmentClosed     AssignmentState = 2
)

// TicketStatus is the TKT_STATUS lifecycle column. Closed is terminal.
type TicketStatus int

const (
	TicketOpen       TicketStatus = 0
	TicketInProgress TicketStatus = 1
	TicketClosed     TicketStatus = 2
)

// TicketKey identifies one department's ticket for a discharge episode.
type TicketKey struct {
	RoomNo     string
	Department string
	FTID       string
}

// EpisodeKey identifies a discharge episode row in the step and bed tables.
type EpisodeKey struct {
	RoomNo string
	MRNO   string
	FTID   string
}

// Ticket represents a FACILITY_CHECK_DETAILS row joined with its department policy
type Ticket struct {
	ID                     int64
	RoomNo                 string
	Department             string
	FTID                   string
	MRNO                   string
	UserID                 sql.NullString
	Status                 AssignmentState
	TicketStatus           TicketStatus
	SLAOutcome             sql.NullInt64
	DischargeRecommendedAt time.Time
	AssignedAt             sql.NullTime
	CompletedAt            sql.NullTime
	NotificationStatus     sla.BreachType
	Policy                 sla.Policy
	HODToken               sql.NullString
}

// Episode returns the discharge episode the ticket belongs to.
func (t *Ticket) Episode() EpisodeKey {
	return EpisodeKey{RoomNo: t.RoomNo, MRNO: t.MRNO, FTID: t.FTID}
}

// Closed reports whether the ticket reached its terminal lifecycle state.
func (t *Ticket) Closed() bool {
	return t.TicketStatus == TicketClosed || t.Status == AssignmentClosed
}

// AssignedTime returns ASSIGNED_TIME or nil when the ticket was never assigned.
func (t *Ticket) AssignedTime() *time.Time {
	if !t.AssignedAt.Valid {
		return nil
	}
	at := t.AssignedAt.Time
	return &at
}

// CompletedTime returns COMPLETED_TIME or nil.
func (t *Ticket) CompletedTime() *time.Time {
	if !t.CompletedAt.Valid {
		return nil
	}
	at := t.CompletedAt.Time
	return &at
}

// TicketListing is one dashboard row. JSON names follow the mobile client.
type TicketListing struct {
	FTID             string          `json:"FACILITY_TID"`
	MRNO             string          `json:"MRNO"`
	RoomNo           string          `json:"FACILITY_CKD_ROOMNO"`
	Department       string          `json:"FACILITY_CKD_DEPT"`
	UserID           *string         `json:"USERID"`
	UserName         *string         `json:"USERNAME"`
	DischargeAt      time.Time       `json:"DISC_RECOM_TIME"`
	AssignedAt       *time.Time      `json:"ASSIGNED_TIME"`
	CompletedAt      *time.Time      `json:"COMPLETED_TIME"`
	Status           AssignmentState `json:"STATUS"`
	TicketStatus     TicketStatus    `json:"TKT_STATUS"`
	SLAOutcome       *int64          `json:"SLA_OUTCOME"`
	AssignSLAMin     int             `json:"AssignSLA_Min"`
	CompletionSLAMin int             `json:"CompletionSLA_Min"`
}

// DepartmentPolicy is a Facility_Dept_Master row.
type DepartmentPolicy struct {
	Department string
	Policy     sla.Policy
	HODToken   sql.NullString
}

// User represents a LOGIN row
type User struct {
	UserID       string
	UserName     string
	Department   string
	PasswordHash string
	FCMToken     sql.NullString
}
