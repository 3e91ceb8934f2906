package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"dtracker/models"
	"dtracker/sla"
)

const tableNotifications = "SLA_Notifications"

// NotificationRepository handles database operations for SLA notifications
type NotificationRepository struct {
	db *sql.DB
	q  Querier
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db, q: db}
}

// WithTx returns a repository bound to tx.
func (r *NotificationRepository) WithTx(tx *sql.Tx) *NotificationRepository {
	return &NotificationRepository{db: r.db, q: tx}
}

// Create appends an SLA notification record
func (r *NotificationRepository) Create(ctx context.Context, n *models.SLANotification) error {
	var userID sql.NullString
	if n.UserID != nil {
		userID = nullString(*n.UserID)
	}
	ds := dialect.Insert(tableNotifications).
		Rows(goqu.Record{
			"TicketID":        n.TicketID,
			"TicketType":      n.TicketType,
			"DeptName":        n.DeptName,
			"USERID":          userID,
			"RoomNo":          n.RoomNo,
			"BreachType":      int(n.BreachType),
			"BreachDateTime":  n.BreachDateTime,
			"Raised_DeptName": n.RaisedDeptName,
		}).
		Prepared(true)

	res, err := exec(ctx, r.q, ds)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification ID: %w", err)
	}
	n.ID = id
	return nil
}

// ListBetween returns a department's notifications with from <= BreachDateTime < to, newest first.
func (r *NotificationRepository) ListBetween(ctx context.Context, department string, from, to time.Time) ([]models.SLANotification, error) {
	ds := dialect.From(tableNotifications).
		Select("ID", "TicketID", "TicketType", "DeptName", "USERID", "RoomNo", "BreachType", "BreachDateTime", "Raised_DeptName").
		Where(
			goqu.C("DeptName").Eq(department),
			goqu.C("BreachDateTime").Gte(from),
			goqu.C("BreachDateTime").Lt(to),
		).
		Order(goqu.C("BreachDateTime").Desc()).
		Prepared(true)

	rows, err := query(ctx, r.q, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.SLANotification{}
	for rows.Next() {
		var (
			n      models.SLANotification
			userID sql.NullString
			breach int
		)
		err := rows.Scan(
			&n.ID,
			&n.TicketID,
			&n.TicketType,
			&n.DeptName,
			&userID,
			&n.RoomNo,
			&breach,
			&n.BreachDateTime,
			&n.RaisedDeptName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if userID.Valid {
			n.UserID = &userID.String
		}
		n.BreachType = sla.BreachType(breach)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return notifications, nil
}
