package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"dtracker/apperrors"
	"dtracker/models"
	"dtracker/repository"
	"dtracker/workflow"
)

// DisplayTimeLayout is how step times are shown to clients (dd-MM-yyyy HH:mm:ss).
const DisplayTimeLayout = "02-01-2006 15:04:05"

// WorkflowService executes department steps and hands episodes off between departments
type WorkflowService struct {
	db       *sql.DB
	registry *workflow.Registry
	stores   stores
	loc      *time.Location
	now      Clock
}

// NewWorkflowService creates a new workflow service. Step times are rendered in loc.
func NewWorkflowService(
	db *sql.DB,
	registry *workflow.Registry,
	ticketRepo *repository.TicketRepository,
	stepRepo *repository.StepRepository,
	bedRepo *repository.BedRepository,
	loc *time.Location,
) *WorkflowService {
	if loc == nil {
		loc = time.UTC
	}
	return &WorkflowService{
		db:       db,
		registry: registry,
		stores:   stores{tickets: ticketRepo, steps: stepRepo, beds: bedRepo},
		loc:      loc,
		now:      systemClock,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *WorkflowService) WithClock(now Clock) *WorkflowService {
	s.now = now
	return s
}

func episodeOf(roomNo, mrno, ftid string) (models.EpisodeKey, error) {
	ep := models.EpisodeKey{
		RoomNo: strings.TrimSpace(roomNo),
		MRNO:   strings.TrimSpace(mrno),
		FTID:   strings.TrimSpace(ftid),
	}
	var missing []string
	if ep.RoomNo == "" {
		missing = append(missing, "ROOMNO")
	}
	if ep.MRNO == "" {
		missing = append(missing, "MRNO")
	}
	if ep.FTID == "" {
		missing = append(missing, "FTID")
	}
	if len(missing) > 0 {
		return ep, apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	return ep, nil
}

// GetStatus reports each step of a department for an episode. Steps without
// a stored row count as not done.
func (s *WorkflowService) GetStatus(ctx context.Context, department string, req *models.StatusRequest) (*models.DischargeStatus, error) {
	def, err := s.registry.Lookup(department)
	if err != nil {
		return nil, err
	}
	ep, err := episodeOf(req.RoomNo, req.MRNO, req.FTID)
	if err != nil {
		return nil, err
	}

	row, err := s.stores.steps.Load(ctx, def, ep, false)
	if err != nil {
		return nil, internal("failed to load workflow status", err)
	}

	out := &models.DischargeStatus{Department: string(def.Name)}
	done := make([]bool, len(def.Steps))
	for i, step := range def.Steps {
		ok, err := isDone(ctx, s.stores, def, step, ep, row)
		if err != nil {
			return nil, internal("failed to load workflow status", err)
		}
		done[i] = ok

		status := models.StepStatus{Status: ok}
		if row != nil {
			if t := row.Times[step.Key]; t.Valid && ok {
				formatted := t.Time.In(s.loc).Format(DisplayTimeLayout)
				status.Time = &formatted
			}
		}
		out.Steps = append(out.Steps, models.NamedStepStatus{Key: step.Key, StepStatus: status})
	}

	out.NextStep = def.NextStep(done)
	if row != nil {
		out.State = row.State
	}
	return out, nil
}

func isDone(ctx context.Context, st stores, def *workflow.Definition, step workflow.Step, ep models.EpisodeKey, row *repository.StepRow) (bool, error) {
	switch step.Source {
	case workflow.SourceBed:
		v, err := st.beds.ReadColumn(ctx, ep, step.BedColumn)
		if err != nil || v == nil {
			return false, err
		}
		return step.IsDone(*v), nil

	case workflow.SourceTicket:
		key := models.TicketKey{RoomNo: ep.RoomNo, Department: string(def.Next), FTID: ep.FTID}
		status, err := st.tickets.StatusOf(ctx, key)
		if err != nil || status == nil {
			return false, err
		}
		return step.IsDone(int(*status)), nil

	default:
		if row == nil {
			return false, nil
		}
		v := row.Values[step.Key]
		return v.Valid && step.IsDone(int(v.Int64)), nil
	}
}

// syncedSteps returns the steps from the stored state onward whose bed or
// next-department source already reports them done, stopping at the first
// step that is not.
func syncedSteps(ctx context.Context, st stores, def *workflow.Definition, ep models.EpisodeKey, row *repository.StepRow) ([]workflow.Step, error) {
	var synced []workflow.Step
	for i := row.State; i >= 0 && i < len(def.Steps); i++ {
		step := def.Steps[i]
		if step.Source == workflow.SourceStep {
			break
		}
		ok, err := isDone(ctx, st, def, step, ep, row)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		synced = append(synced, step)
	}
	return synced, nil
}

// Update marks the requested steps of a department as completed.
//
// Steps must complete in declared order. Steps at the stored state that are
// already done at their bed or next-department source are recorded first.
// Completing the terminal step closes the department's ticket and opens the
// next department's ticket in the same transaction.
func (s *WorkflowService) Update(ctx context.Context, department string, req *models.UpdateWorkflowRequest) (*models.WorkflowUpdateResult, error) {
	def, err := s.registry.Lookup(department)
	if err != nil {
		return nil, err
	}
	ep, err := episodeOf(req.RoomNo, req.MRNO, req.FTID)
	if err != nil {
		return nil, err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, apperrors.NewValidationError("missing required fields: USERID")
	}
	if len(req.Steps) == 0 {
		return nil, apperrors.NewValidationError("STEPS must list at least one step")
	}

	key := models.TicketKey{RoomNo: ep.RoomNo, Department: string(def.Name), FTID: ep.FTID}
	var result *models.WorkflowUpdateResult
	err = repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		st := s.stores.withTx(tx)
		t, err := st.tickets.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if t == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("%s ticket not found", def.Name))
		}
		if t.Closed() {
			return apperrors.NewClosedError(string(def.Name))
		}
		if t.MRNO != ep.MRNO {
			return apperrors.NewConflictError(apperrors.ReasonMismatch, fmt.Sprintf(
				"MRNO %s does not match the %s ticket for room %s", ep.MRNO, def.Name, ep.RoomNo))
		}

		if _, err := st.steps.EnsureRow(ctx, def, ep); err != nil {
			return err
		}
		row, err := st.steps.Load(ctx, def, ep, true)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%s step row missing after insert", def.Name)
		}

		synced, err := syncedSteps(ctx, st, def, ep, row)
		if err != nil {
			return err
		}
		plan, err := def.Plan(row.State+len(synced), req.Steps)
		if err != nil {
			return err
		}
		plan = plan.WithSynced(synced)

		now := s.now()
		if len(plan.Apply) > 0 {
			if err := st.steps.Advance(ctx, def, ep, plan.Apply, userID, now, plan.From, plan.To); err != nil {
				return err
			}
			for _, step := range plan.Apply[plan.Synced:] {
				if step.Source != workflow.SourceBed {
					continue
				}
				if err := st.beds.SetColumn(ctx, ep, step.BedColumn, step.MarkValue); err != nil {
					return err
				}
			}
		}

		result = &models.WorkflowUpdateResult{
			Success:    true,
			Department: string(def.Name),
			Applied:    plan.AppliedKeys(),
			Skipped:    plan.Skipped,
			State:      plan.To,
		}
		if result.Skipped == nil {
			result.Skipped = []string{}
		}
		if plan.To < len(def.Steps) {
			next := def.Steps[plan.To].Key
			result.NextStep = &next
		}

		if !plan.Completes() {
			return nil
		}
		handoff, err := s.handoff(ctx, st, def, t, ep, now)
		if err != nil {
			return err
		}
		result.Handoff = handoff
		return nil
	})
	if err != nil {
		return nil, internal("failed to update workflow", err)
	}

	log.Info().
		Str("component", "workflow").
		Str("department", result.Department).
		Str("room", ep.RoomNo).
		Str("ftid", ep.FTID).
		Strs("applied", result.Applied).
		Int("state", result.State).
		Msg("workflow updated")
	return result, nil
}

func (s *WorkflowService) handoff(
	ctx context.Context,
	st stores,
	def *workflow.Definition,
	t *models.Ticket,
	ep models.EpisodeKey,
	now time.Time,
) (*models.Handoff, error) {
	outcome, err := closeTicket(ctx, st, def, t, now)
	if err != nil {
		return nil, err
	}
	h := &models.Handoff{
		ClosedDepartment: string(def.Name),
		Outcome:          int(outcome),
		OutcomeLabel:     outcome.String(),
	}
	if !def.HasNext() {
		return h, nil
	}

	next, ok := s.registry.Get(def.Next)
	if !ok {
		return nil, fmt.Errorf("department %s hands off to unknown %s", def.Name, def.Next)
	}
	opened, err := openNext(ctx, st, next, ep, now)
	if err != nil {
		return nil, err
	}
	h.NextDepartment = string(next.Name)
	h.NextTicketOpened = opened
	log.Info().
		Str("component", "workflow").
		Str("from", string(def.Name)).
		Str("to", string(next.Name)).
		Str("ftid", ep.FTID).
		Bool("opened", opened).
		Msg("episode handed off")
	return h, nil
}
