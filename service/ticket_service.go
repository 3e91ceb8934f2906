package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"dtracker/apperrors"
	"dtracker/models"
	"dtracker/repository"
	"dtracker/workflow"
)

// TicketService handles assignment, closure and listing of department tickets
type TicketService struct {
	db       *sql.DB
	registry *workflow.Registry
	stores   stores
	now      Clock
}

// NewTicketService creates a new ticket service
func NewTicketService(
	db *sql.DB,
	registry *workflow.Registry,
	ticketRepo *repository.TicketRepository,
	stepRepo *repository.StepRepository,
	bedRepo *repository.BedRepository,
) *TicketService {
	return &TicketService{
		db:       db,
		registry: registry,
		stores:   stores{tickets: ticketRepo, steps: stepRepo, beds: bedRepo},
		now:      systemClock,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *TicketService) WithClock(now Clock) *TicketService {
	s.now = now
	return s
}

func (s *TicketService) resolve(req *models.TicketRequest) (*workflow.Definition, models.TicketKey, error) {
	req.RoomNo = strings.TrimSpace(req.RoomNo)
	req.FTID = strings.TrimSpace(req.FTID)
	req.UserID = strings.TrimSpace(req.UserID)

	var missing []string
	if req.RoomNo == "" {
		missing = append(missing, "ROOMNO")
	}
	if req.DepartmentName() == "" {
		missing = append(missing, "DEPT")
	}
	if req.FTID == "" {
		missing = append(missing, "FTID")
	}
	if req.UserID == "" {
		missing = append(missing, "USERID")
	}
	if len(missing) > 0 {
		return nil, models.TicketKey{}, apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}

	def, err := s.registry.Lookup(req.DepartmentName())
	if err != nil {
		return nil, models.TicketKey{}, err
	}
	return def, models.TicketKey{RoomNo: req.RoomNo, Department: string(def.Name), FTID: req.FTID}, nil
}

// Assign assigns a ticket to the acting user.
//
// An unassigned ticket is taken immediately. A ticket held by someone else is
// only taken over when ForceReassign is set; otherwise the current holder is
// reported back without changing anything.
func (s *TicketService) Assign(ctx context.Context, req *models.TicketRequest) (*models.AssignResult, error) {
	def, key, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	var result *models.AssignResult
	err = repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		st := s.stores.withTx(tx)
		t, err := st.tickets.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if t == nil {
			return apperrors.NewNotFoundError("ticket not found")
		}
		if t.Closed() {
			return apperrors.NewClosedError(string(def.Name))
		}

		now := s.now()
		switch {
		case t.Status == models.AssignmentUnassigned || !t.UserID.Valid:
			ok, err := st.tickets.MarkAssigned(ctx, t.ID, req.UserID, now)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NewClosedError(string(def.Name))
			}
			if def.Name == workflow.Nursing {
				ep := models.EpisodeKey{RoomNo: t.RoomNo, MRNO: t.MRNO, FTID: t.FTID}
				if _, err := st.steps.EnsureRow(ctx, def, ep); err != nil {
					return err
				}
			}
			result = &models.AssignResult{Success: true, Message: "Ticket assigned successfully"}

		case t.UserID.String == req.UserID:
			result = &models.AssignResult{
				Success:               true,
				Message:               "Ticket is already assigned to you",
				AlreadyAssignedToSelf: true,
			}

		case !req.ForceReassign:
			result = &models.AssignResult{
				Success:         false,
				Message:         fmt.Sprintf("Ticket is already assigned to %s", t.UserID.String),
				AlreadyAssigned: true,
				CurrentUser:     t.UserID.String,
			}

		default:
			ok, err := st.tickets.Reassign(ctx, t.ID, req.UserID, now)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.NewClosedError(string(def.Name))
			}
			log.Info().
				Str("component", "tickets").
				Int64("ticket_id", t.ID).
				Str("from", t.UserID.String).
				Str("to", req.UserID).
				Msg("ticket reassigned")
			result = &models.AssignResult{
				Success:    true,
				Message:    "Ticket reassigned successfully",
				Reassigned: true,
			}
		}
		return nil
	})
	if err != nil {
		return nil, internal("failed to assign ticket", err)
	}
	return result, nil
}

// Close closes an assigned ticket and records its SLA outcome.
func (s *TicketService) Close(ctx context.Context, req *models.TicketRequest) (*models.CloseResult, error) {
	def, key, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	var result *models.CloseResult
	err = repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		st := s.stores.withTx(tx)
		t, err := st.tickets.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if t == nil {
			return apperrors.NewNotFoundError("ticket not found")
		}
		if t.Closed() {
			return apperrors.NewClosedError(string(def.Name))
		}
		if !t.AssignedAt.Valid {
			return apperrors.NewConflictError(apperrors.ReasonNotAssigned, "ticket must be assigned before it can be closed")
		}

		outcome, err := closeTicket(ctx, st, def, t, s.now())
		if err != nil {
			return err
		}
		result = &models.CloseResult{
			Success:    true,
			Message:    "Ticket closed successfully",
			Status:     int(outcome),
			Outcome:    outcome.String(),
			Department: string(def.Name),
		}
		return nil
	})
	if err != nil {
		return nil, internal("failed to close ticket", err)
	}

	log.Info().
		Str("component", "tickets").
		Str("department", result.Department).
		Str("room", key.RoomNo).
		Str("ftid", key.FTID).
		Str("outcome", result.Outcome).
		Msg("ticket closed")
	return result, nil
}

// List returns the dashboard listing. An empty department lists every ticket.
func (s *TicketService) List(ctx context.Context, department string) ([]models.TicketListing, error) {
	var departments []string
	if strings.TrimSpace(department) != "" {
		def, err := s.registry.Lookup(department)
		if err != nil {
			return nil, err
		}
		departments = []string{string(def.Name)}
	}
	listing, err := s.stores.tickets.List(ctx, departments)
	if err != nil {
		return nil, internal("failed to list tickets", err)
	}
	return listing, nil
}

// ListSummaryAuthorization lists the discharge summary and doctor authorization tickets.
func (s *TicketService) ListSummaryAuthorization(ctx context.Context) ([]models.TicketListing, error) {
	listing, err := s.stores.tickets.List(ctx, []string{
		string(workflow.DischargeSummary),
		string(workflow.DoctorAuthorization),
	})
	if err != nil {
		return nil, internal("failed to list tickets", err)
	}
	return listing, nil
}
