package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"dtracker/models"
	"dtracker/sla"
)

const (
	tableTickets  = "FACILITY_CHECK_DETAILS"
	tablePolicies = "Facility_Dept_Master"
	tableUsers    = "LOGIN"
)

// TicketRepository handles database operations for department tickets
type TicketRepository struct {
	db *sql.DB
	q  Querier
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db, q: db}
}

// WithTx returns a repository bound to tx.
func (r *TicketRepository) WithTx(tx *sql.Tx) *TicketRepository {
	return &TicketRepository{db: r.db, q: tx}
}

func ticketColumns() []interface{} {
	return []interface{}{
		goqu.I("F.FACILITY_CHECK_ID"),
		goqu.I("F.FACILITY_CKD_ROOMNO"),
		goqu.I("F.FACILITY_CKD_DEPT"),
		goqu.I("F.FACILITY_TID"),
		goqu.I("F.MRNO"),
		goqu.I("F.USERID"),
		goqu.I("F.STATUS"),
		goqu.I("F.TKT_STATUS"),
		goqu.I("F.SLA_OUTCOME"),
		goqu.I("F.DISC_RECOM_TIME"),
		goqu.I("F.ASSIGNED_TIME"),
		goqu.I("F.COMPLETED_TIME"),
		goqu.I("F.SLA_NOTIFICATION_STATUS"),
		goqu.I("D.AssignSLA_Min"),
		goqu.I("D.CompletionSLA_Min"),
		goqu.I("D.HOD_FCM_Token"),
	}
}

func ticketsWithPolicy() *goqu.SelectDataset {
	return dialect.From(goqu.T(tableTickets).As("F")).
		Join(goqu.T(tablePolicies).As("D"), goqu.On(goqu.I("F.FACILITY_CKD_DEPT").Eq(goqu.I("D.DEPTName")))).
		Select(ticketColumns()...).
		Prepared(true)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(s rowScanner) (*models.Ticket, error) {
	t := &models.Ticket{}
	var notified int
	err := s.Scan(
		&t.ID,
		&t.RoomNo,
		&t.Department,
		&t.FTID,
		&t.MRNO,
		&t.UserID,
		&t.Status,
		&t.TicketStatus,
		&t.SLAOutcome,
		&t.DischargeRecommendedAt,
		&t.AssignedAt,
		&t.CompletedAt,
		&notified,
		&t.Policy.AssignMinutes,
		&t.Policy.CompletionMinutes,
		&t.HODToken,
	)
	if err != nil {
		return nil, err
	}
	t.NotificationStatus = sla.BreachType(notified)
	return t, nil
}

func keyFilter(key models.TicketKey) goqu.Ex {
	return goqu.Ex{
		"F.FACILITY_CKD_ROOMNO": key.RoomNo,
		"F.FACILITY_CKD_DEPT":   key.Department,
		"F.FACILITY_TID":        key.FTID,
	}
}

// GetForUpdate retrieves a ticket and locks its row until the transaction ends.
// Only the ticket row is locked; the joined policy row stays shared.
func (r *TicketRepository) GetForUpdate(ctx context.Context, key models.TicketKey) (*models.Ticket, error) {
	return r.get(ctx, ticketsWithPolicy().Where(keyFilter(key)).ForUpdate(exp.Wait, goqu.T("F")))
}

func (r *TicketRepository) get(ctx context.Context, ds *goqu.SelectDataset) (*models.Ticket, error) {
	row, err := queryRow(ctx, r.q, ds)
	if err != nil {
		return nil, err
	}
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return t, nil
}

// StatusOf returns TKT_STATUS of a ticket without joining its policy, or nil when absent.
func (r *TicketRepository) StatusOf(ctx context.Context, key models.TicketKey) (*models.TicketStatus, error) {
	ds := dialect.From(goqu.T(tableTickets).As("F")).
		Select(goqu.I("F.TKT_STATUS")).
		Where(keyFilter(key)).
		Prepared(true)
	row, err := queryRow(ctx, r.q, ds)
	if err != nil {
		return nil, err
	}
	var status models.TicketStatus
	if err := row.Scan(&status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ticket status: %w", err)
	}
	return &status, nil
}

func notClosed(id int64) exp.ExpressionList {
	return goqu.And(
		goqu.C("FACILITY_CHECK_ID").Eq(id),
		goqu.C("TKT_STATUS").Neq(int(models.TicketClosed)),
	)
}

func (r *TicketRepository) updateOpen(ctx context.Context, id int64, rec goqu.Record) (bool, error) {
	ds := dialect.Update(tableTickets).Set(rec).Where(notClosed(id)).Prepared(true)
	res, err := exec(ctx, r.q, ds)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// MarkAssigned records the first assignment of a ticket.
// Returns false when the ticket is missing or already closed.
func (r *TicketRepository) MarkAssigned(ctx context.Context, id int64, userID string, at time.Time) (bool, error) {
	ok, err := r.updateOpen(ctx, id, goqu.Record{
		"USERID":        userID,
		"ASSIGNED_TIME": at,
		"STATUS":        int(models.AssignmentAssigned),
		"TKT_STATUS":    int(models.TicketInProgress),
	})
	if err != nil {
		return false, fmt.Errorf("failed to assign ticket: %w", err)
	}
	return ok, nil
}

// Reassign moves an assigned ticket to another user.
func (r *TicketRepository) Reassign(ctx context.Context, id int64, userID string, at time.Time) (bool, error) {
	ok, err := r.updateOpen(ctx, id, goqu.Record{
		"USERID":        userID,
		"ASSIGNED_TIME": at,
	})
	if err != nil {
		return false, fmt.Errorf("failed to reassign ticket: %w", err)
	}
	return ok, nil
}

// Close sets the terminal state and the SLA outcome of a ticket.
// Returns false when the ticket was already closed.
func (r *TicketRepository) Close(ctx context.Context, id int64, at time.Time, outcome sla.Outcome) (bool, error) {
	ok, err := r.updateOpen(ctx, id, goqu.Record{
		"STATUS":         int(models.AssignmentClosed),
		"TKT_STATUS":     int(models.TicketClosed),
		"COMPLETED_TIME": at,
		"SLA_OUTCOME":    int(outcome),
	})
	if err != nil {
		return false, fmt.Errorf("failed to close ticket: %w", err)
	}
	return ok, nil
}

// Open creates a department ticket. Opening an existing ticket is a no-op
// and reports false.
func (r *TicketRepository) Open(ctx context.Context, key models.TicketKey, mrno string, at time.Time) (bool, error) {
	ds := dialect.Insert(tableTickets).
		Rows(goqu.Record{
			"FACILITY_CKD_ROOMNO":     key.RoomNo,
			"FACILITY_CKD_DEPT":       key.Department,
			"FACILITY_TID":            key.FTID,
			"MRNO":                    mrno,
			"STATUS":                  int(models.AssignmentUnassigned),
			"TKT_STATUS":              int(models.TicketOpen),
			"DISC_RECOM_TIME":         at,
			"SLA_NOTIFICATION_STATUS": int(sla.BreachNone),
		}).
		OnConflict(goqu.DoNothing()).
		Prepared(true)
	res, err := exec(ctx, r.q, ds)
	if err != nil {
		return false, fmt.Errorf("failed to open ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// List returns the dashboard listing, optionally restricted to departments.
func (r *TicketRepository) List(ctx context.Context, departments []string) ([]models.TicketListing, error) {
	ds := dialect.From(goqu.T(tableTickets).As("F")).
		Join(goqu.T(tablePolicies).As("D"), goqu.On(goqu.I("F.FACILITY_CKD_DEPT").Eq(goqu.I("D.DEPTName")))).
		LeftJoin(goqu.T(tableUsers).As("U"), goqu.On(goqu.I("F.USERID").Eq(goqu.I("U.USERID")))).
		Select(
			goqu.I("F.FACILITY_TID"),
			goqu.I("F.MRNO"),
			goqu.I("F.FACILITY_CKD_ROOMNO"),
			goqu.I("F.FACILITY_CKD_DEPT"),
			goqu.I("F.USERID"),
			goqu.I("U.USERNAME"),
			goqu.I("F.DISC_RECOM_TIME"),
			goqu.I("F.ASSIGNED_TIME"),
			goqu.I("F.COMPLETED_TIME"),
			goqu.I("F.STATUS"),
			goqu.I("F.TKT_STATUS"),
			goqu.I("F.SLA_OUTCOME"),
			goqu.I("D.AssignSLA_Min"),
			goqu.I("D.CompletionSLA_Min"),
		).
		Order(goqu.I("F.DISC_RECOM_TIME").Desc()).
		Prepared(true)
	if len(departments) > 0 {
		ds = ds.Where(goqu.Ex{"F.FACILITY_CKD_DEPT": departments})
	}

	rows, err := query(ctx, r.q, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	listing := []models.TicketListing{}
	for rows.Next() {
		var (
			item                  models.TicketListing
			userID, userName      sql.NullString
			assignedAt, completed sql.NullTime
			outcome               sql.NullInt64
		)
		err := rows.Scan(
			&item.FTID,
			&item.MRNO,
			&item.RoomNo,
			&item.Department,
			&userID,
			&userName,
			&item.DischargeAt,
			&assignedAt,
			&completed,
			&item.Status,
			&item.TicketStatus,
			&outcome,
			&item.AssignSLAMin,
			&item.CompletionSLAMin,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		if userID.Valid {
			item.UserID = &userID.String
		}
		if userName.Valid {
			item.UserName = &userName.String
		}
		if assignedAt.Valid {
			item.AssignedAt = &assignedAt.Time
		}
		if completed.Valid {
			item.CompletedAt = &completed.Time
		}
		if outcome.Valid {
			item.SLAOutcome = &outcome.Int64
		}
		listing = append(listing, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}
	return listing, nil
}

// ListBreachCandidates returns open tickets that are unassigned or assigned.
func (r *TicketRepository) ListBreachCandidates(ctx context.Context) ([]models.Ticket, error) {
	ds := ticketsWithPolicy().
		Where(
			goqu.I("F.STATUS").In(int(models.AssignmentUnassigned), int(models.AssignmentAssigned)),
			goqu.I("F.TKT_STATUS").Neq(int(models.TicketClosed)),
		).
		Order(goqu.I("F.FACILITY_CKD_DEPT").Asc(), goqu.I("F.FACILITY_CHECK_ID").Asc())

	rows, err := query(ctx, r.q, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to query breach candidates: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan breach candidate: %w", err)
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating breach candidates: %w", err)
	}
	return tickets, nil
}

// SetNotificationStatus stores the last breach type notified for a ticket.
func (r *TicketRepository) SetNotificationStatus(ctx context.Context, id int64, breach sla.BreachType) error {
	ds := dialect.Update(tableTickets).
		Set(goqu.Record{"SLA_NOTIFICATION_STATUS": int(breach)}).
		Where(goqu.C("FACILITY_CHECK_ID").Eq(id)).
		Prepared(true)
	if _, err := exec(ctx, r.q, ds); err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}
