package models

import "encoding/json"

// StepStatus is the done flag and display time of one workflow step.
type StepStatus struct {
	Status bool    `json:"status"`
	Time   *string `json:"time"`
}

// NamedStepStatus pairs a step key with its status.
type NamedStepStatus struct {
	Key string
	StepStatus
}

// DischargeStatus is a department's workflow view of an episode.
type DischargeStatus struct {
	Department string
	Steps      []NamedStepStatus
	NextStep   *string
	State      int
}

// Step returns the status of key.
func (d DischargeStatus) Step(key string) (StepStatus, bool) {
	for _, s := range d.Steps {
		if s.Key == key {
			return s.StepStatus, true
		}
	}
	return StepStatus{}, false
}

// MarshalJSON renders the flat shape the client reads: one object per step
// key next to nextStep, state and department.
func (d DischargeStatus) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Steps)+3)
	for _, s := range d.Steps {
		out[s.Key] = s.StepStatus
	}
	out["nextStep"] = d.NextStep
	out["state"] = d.State
	out["department"] = d.Department
	return json.Marshal(out)
}

// Handoff describes what a terminal step did to the pipeline.
type Handoff struct {
	ClosedDepartment string `json:"closedDepartment"`
	Outcome          int    `json:"outcome"`
	OutcomeLabel     string `json:"outcomeLabel"`
	NextDepartment   string `json:"nextDepartment,omitempty"`
	NextTicketOpened bool   `json:"nextTicketOpened"`
}

// WorkflowUpdateResult is the response of a department update.
type WorkflowUpdateResult struct {
	Success    bool     `json:"success"`
	Department string   `json:"department"`
	Applied    []string `json:"applied"`
	Skipped    []string `json:"skipped"`
	State      int      `json:"state"`
	NextStep   *string  `json:"nextStep"`
	Handoff    *Handoff `json:"handoff,omitempty"`
}
