package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func at(min int) *time.Time {
	ts := t0.Add(time.Duration(min) * time.Minute)
	return &ts
}

func TestComputeOutcome(t *testing.T) {
	policy := Policy{AssignMinutes: 30, CompletionMinutes: 120}

	tests := []struct {
		name      string
		assigned  *time.Time
		completed time.Time
		want      Outcome
	}{
		{"never assigned", nil, *at(200), OutcomeNotAssigned},
		{"assign late, completion on time", at(45), *at(100), OutcomeAssignExceeded},
		{"assign on time, completion late", at(10), *at(150), OutcomeCompletionExceeded},
		{"both late", at(45), *at(150), OutcomeBothExceeded},
		{"within both", at(10), *at(100), OutcomeWithinSLA},
		{"exactly on deadlines is not exceeded", at(30), *at(120), OutcomeWithinSLA},
		{"one second past completion", at(30), t0.Add(120*time.Minute + time.Second), OutcomeCompletionExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeOutcome(t0, tt.assigned, tt.completed, policy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeBreach(t *testing.T) {
	policy := Policy{AssignMinutes: 30, CompletionMinutes: 120}

	tests := []struct {
		name      string
		now       time.Time
		assigned  *time.Time
		completed *time.Time
		want      BreachType
	}{
		{"fresh ticket", *at(5), nil, nil, BreachNone},
		{"unassigned past assign deadline", *at(31), nil, nil, BreachAssign},
		{"assigned in time, still open before completion deadline", *at(100), at(10), nil, BreachNone},
		{"assigned late, open before completion deadline", *at(100), at(45), nil, BreachAssign},
		{"assigned in time, open past completion deadline", *at(121), at(10), nil, BreachCompletion},
		{"unassigned past completion deadline", *at(121), nil, nil, BreachBoth},
		{"completed in time is judged by completion time", *at(500), at(10), at(90), BreachNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBreach(tt.now, t0, tt.assigned, tt.completed, policy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBreachLabel(t *testing.T) {
	assert.Equal(t, "", BreachNone.Label())
	assert.Equal(t, "Assign SLA Breached", BreachAssign.Label())
	assert.Equal(t, "Completion SLA Breached", BreachCompletion.Label())
	assert.Equal(t, "Both SLA Breached", BreachBoth.Label())
}

func TestDeadlines(t *testing.T) {
	assign, completion := Deadlines(t0, Policy{AssignMinutes: 30, CompletionMinutes: 120})
	assert.Equal(t, t0.Add(30*time.Minute), assign)
	assert.Equal(t, t0.Add(2*time.Hour), completion)
}
