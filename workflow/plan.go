package workflow

import (
	"fmt"
	"sort"
	"strings"

	"dtracker/apperrors"
)

// Plan is the forward-only transition computed for a workflow update.
type Plan struct {
	// Apply lists the steps to mark, in declared order.
	Apply []Step
	// Skipped lists requested steps that were already done.
	Skipped []string
	// From and To are the stored state before and after the update.
	From int
	To   int
	// Synced counts the leading Apply steps that were already done at their
	// external source (bed desk, next department) and only need recording.
	Synced int
}

// Completes reports whether the plan marks the department's terminal step.
func (p Plan) Completes() bool {
	return len(p.Apply) > 0 && p.Apply[len(p.Apply)-1].Terminal
}

// AppliedKeys lists the keys of the steps the plan marks.
func (p Plan) AppliedKeys() []string {
	keys := make([]string, len(p.Apply))
	for i, s := range p.Apply {
		keys[i] = s.Key
	}
	return keys
}

// WithSynced records steps that completed outside the workflow ahead of the
// plan. synced must be the steps directly preceding p.From, in order.
// Requested keys among them move from Skipped to Apply.
func (p Plan) WithSynced(synced []Step) Plan {
	if len(synced) == 0 {
		return p
	}
	keys := make(map[string]bool, len(synced))
	for _, s := range synced {
		keys[s.Key] = true
	}
	var skipped []string
	for _, k := range p.Skipped {
		if !keys[k] {
			skipped = append(skipped, k)
		}
	}
	p.Skipped = skipped
	p.Apply = append(append([]Step{}, synced...), p.Apply...)
	p.From -= len(synced)
	p.Synced = len(synced)
	return p
}

// Plan validates a requested step map against the stored state.
//
// state is the number of leading steps already completed. Requested steps
// before state are no-ops; the remaining requested steps must continue the
// sequence at state without gaps. Steps mapped to false are ignored.
func (d *Definition) Plan(state int, requested map[string]bool) (Plan, error) {
	if state < 0 || state > len(d.Steps) {
		return Plan{}, fmt.Errorf("department %s: stored workflow state %d out of range", d.Name, state)
	}

	var indexes []int
	var unknown []string
	for key, marked := range requested {
		_, idx, ok := d.Step(strings.TrimSpace(key))
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if marked {
			indexes = append(indexes, idx)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Plan{}, apperrors.NewValidationError(fmt.Sprintf(
			"unknown %s steps: %s (expected one of %s)",
			d.Name, strings.Join(unknown, ", "), strings.Join(d.StepKeys(), ", ")))
	}
	if len(indexes) == 0 {
		return Plan{}, apperrors.NewValidationError("no steps marked as completed")
	}
	sort.Ints(indexes)

	plan := Plan{From: state, To: state}
	for _, idx := range indexes {
		step := d.Steps[idx]
		switch {
		case idx < plan.To:
			plan.Skipped = append(plan.Skipped, step.Key)
		case idx == plan.To:
			plan.Apply = append(plan.Apply, step)
			plan.To++
		default:
			return Plan{}, apperrors.NewConflictError(apperrors.ReasonOutOfOrder, fmt.Sprintf(
				"%s cannot be completed before %s", step.Key, d.Steps[plan.To].Key))
		}
	}
	return plan, nil
}

// State counts the leading completed steps.
func State(done []bool) int {
	for i, ok := range done {
		if !ok {
			return i
		}
	}
	return len(done)
}

// NextStep returns the first step whose done predicate is false, or nil when
// every step is done.
func (d *Definition) NextStep(done []bool) *string {
	for i, s := range d.Steps {
		if i >= len(done) || !done[i] {
			key := s.Key
			return &key
		}
	}
	return nil
}
