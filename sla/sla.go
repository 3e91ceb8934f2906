// Package sla computes discharge ticket deadlines, closure outcomes and breach types.
//
// All deadlines are measured from the discharge-recommended time of the ticket:
//
//	assign deadline     = DISC_RECOM_TIME + AssignSLA_Min
//	completion deadline = DISC_RECOM_TIME + CompletionSLA_Min
//
// A deadline is exceeded only when the reference time is strictly after it.
package sla

import "time"

// Policy holds a department's SLA thresholds in minutes.
type Policy struct {
	AssignMinutes     int
	CompletionMinutes int
}

// DefaultPolicy is seeded for departments that have no Facility_Dept_Master row.
var DefaultPolicy = Policy{AssignMinutes: 30, CompletionMinutes: 120}

// Outcome is the SLA result recorded when a ticket is closed.
type Outcome int

const (
	OutcomeNotAssigned        Outcome = 0
	OutcomeAssignExceeded     Outcome = 2
	OutcomeCompletionExceeded Outcome = 3
	OutcomeBothExceeded       Outcome = 4
	OutcomeWithinSLA          Outcome = 5
)

// String returns a short label for logs and API responses.
func (o Outcome) String() string {
	switch o {
	case OutcomeNotAssigned:
		return "not_assigned"
	case OutcomeAssignExceeded:
		return "assign_exceeded"
	case OutcomeCompletionExceeded:
		return "completion_exceeded"
	case OutcomeBothExceeded:
		return "both_exceeded"
	case OutcomeWithinSLA:
		return "within_sla"
	default:
		return "unknown"
	}
}

// BreachType is the breach state of an open ticket as seen by the breach detector.
type BreachType int

const (
	BreachNone       BreachType = 0
	BreachAssign     BreachType = 1
	BreachCompletion BreachType = 2
	BreachBoth       BreachType = 3
)

// Label is the human-readable text used in push bodies.
func (b BreachType) Label() string {
	switch b {
	case BreachAssign:
		return "Assign SLA Breached"
	case BreachCompletion:
		return "Completion SLA Breached"
	case BreachBoth:
		return "Both SLA Breached"
	default:
		return ""
	}
}

// Deadlines returns the assign and completion deadlines for a ticket.
func Deadlines(disc time.Time, p Policy) (assign, completion time.Time) {
	assign = disc.Add(time.Duration(p.AssignMinutes) * time.Minute)
	completion = disc.Add(time.Duration(p.CompletionMinutes) * time.Minute)
	return assign, completion
}

// ComputeOutcome classifies a ticket being closed at completedAt.
// A ticket that was never assigned always yields OutcomeNotAssigned.
func ComputeOutcome(disc time.Time, assigned *time.Time, completedAt time.Time, p Policy) Outcome {
	if assigned == nil {
		return OutcomeNotAssigned
	}
	assignDeadline, completionDeadline := Deadlines(disc, p)
	assignExceeded := assigned.After(assignDeadline)
	completionExceeded := completedAt.After(completionDeadline)

	switch {
	case assignExceeded && completionExceeded:
		return OutcomeBothExceeded
	case assignExceeded:
		return OutcomeAssignExceeded
	case completionExceeded:
		return OutcomeCompletionExceeded
	default:
		return OutcomeWithinSLA
	}
}

// ComputeBreach classifies an open ticket at now. Missing assigned/completed
// times are replaced by now, so an unassigned ticket breaches its assign SLA
// as soon as the deadline passes.
func ComputeBreach(now, disc time.Time, assigned, completed *time.Time, p Policy) BreachType {
	assignRef := now
	if assigned != nil {
		assignRef = *assigned
	}
	completionRef := now
	if completed != nil {
		completionRef = *completed
	}

	assignDeadline, completionDeadline := Deadlines(disc, p)
	assignBreached := assignRef.After(assignDeadline)
	completionBreached := completionRef.After(completionDeadline)

	switch {
	case assignBreached && completionBreached:
		return BreachBoth
	case completionBreached:
		return BreachCompletion
	case assignBreached:
		return BreachAssign
	default:
		return BreachNone
	}
}
