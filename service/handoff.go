package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dtracker/apperrors"
	"dtracker/models"
	"dtracker/repository"
	"dtracker/sla"
	"dtracker/workflow"
)

// Clock returns the current time. Services store times in UTC.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// stores bundles the repositories touched by ticket transitions.
type stores struct {
	tickets *repository.TicketRepository
	steps   *repository.StepRepository
	beds    *repository.BedRepository
}

func (s stores) withTx(tx *sql.Tx) stores {
	return stores{
		tickets: s.tickets.WithTx(tx),
		steps:   s.steps.WithTx(tx),
		beds:    s.beds.WithTx(tx),
	}
}

// closeTicket computes the SLA outcome, closes the ticket and raises the
// department's bed dashboard flag. It must run inside the caller's transaction.
func closeTicket(ctx context.Context, st stores, def *workflow.Definition, t *models.Ticket, at time.Time) (sla.Outcome, error) {
	outcome := sla.ComputeOutcome(t.DischargeRecommendedAt, t.AssignedTime(), at, t.Policy)
	closed, err := st.tickets.Close(ctx, t.ID, at, outcome)
	if err != nil {
		return 0, err
	}
	if !closed {
		return 0, apperrors.NewClosedError(string(def.Name))
	}
	if err := st.beds.SetColumn(ctx, t.Episode(), def.BedColumn, 1); err != nil {
		return 0, err
	}
	return outcome, nil
}

// openNext opens the next department's ticket and step row for the episode.
func openNext(ctx context.Context, st stores, next *workflow.Definition, ep models.EpisodeKey, at time.Time) (bool, error) {
	key := models.TicketKey{RoomNo: ep.RoomNo, Department: string(next.Name), FTID: ep.FTID}
	opened, err := st.tickets.Open(ctx, key, ep.MRNO, at)
	if err != nil {
		return false, err
	}
	if _, err := st.steps.EnsureRow(ctx, next, ep); err != nil {
		return false, err
	}
	return opened, nil
}

func internal(msg string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewInternalError(msg, fmt.Errorf("%s: %w", msg, err))
}
