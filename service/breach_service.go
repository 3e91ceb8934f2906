package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"dtracker/apperrors"
	"dtracker/models"
	"dtracker/notification"
	"dtracker/repository"
	"dtracker/sla"
)

const maxPushBodyLength = 300

// ScanLocker serialises breach scans across service instances.
type ScanLocker interface {
	TryLock(ctx context.Context) (release func(), acquired bool, err error)
}

// BreachService detects SLA breaches on open tickets and notifies the head of
// each affected department. A breach type is pushed at most once per ticket.
type BreachService struct {
	db            *sql.DB
	tickets       *repository.TicketRepository
	notifications *repository.NotificationRepository
	pusher        notification.Pusher
	locker        ScanLocker
	mu            sync.Mutex
	now           Clock
}

// NewBreachService creates a new breach service. locker may be nil.
func NewBreachService(
	db *sql.DB,
	ticketRepo *repository.TicketRepository,
	notificationRepo *repository.NotificationRepository,
	pusher notification.Pusher,
	locker ScanLocker,
) *BreachService {
	return &BreachService{
		db:            db,
		tickets:       ticketRepo,
		notifications: notificationRepo,
		pusher:        pusher,
		locker:        locker,
		now:           systemClock,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *BreachService) WithClock(now Clock) *BreachService {
	s.now = now
	return s
}

// Scan runs one breach detection pass. When another scan holds the lock the
// call returns immediately with LockHeld set. When every department push
// fails the scan returns an External error; nothing is recorded and the next
// scan retries.
//
// Flow:
// 1. Load open tickets with their department policy
// 2. Compute each ticket's breach type, dropping none and already-notified types
// 3. Group by department and send one push per department head
// 4. Persist the notified type and an SLA_Notifications row per ticket
func (s *BreachService) Scan(ctx context.Context) (*models.ScanResult, error) {
	result := &models.ScanResult{ScanID: uuid.NewString()}
	logger := log.With().Str("component", "sla").Str("scan_id", result.ScanID).Logger()

	if !s.mu.TryLock() {
		result.LockHeld = true
		return result, nil
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			return nil, internal("failed to acquire scan lock", err)
		}
		if !ok {
			logger.Debug().Msg("scan skipped: lock held by another instance")
			result.LockHeld = true
			return result, nil
		}
		defer release()
	}

	candidates, err := s.tickets.ListBreachCandidates(ctx)
	if err != nil {
		return nil, internal("failed to load breach candidates", err)
	}
	result.Scanned = len(candidates)

	now := s.now()
	byDept := make(map[string][]models.BreachCandidate)
	for _, t := range candidates {
		breach := sla.ComputeBreach(now, t.DischargeRecommendedAt, t.AssignedTime(), t.CompletedTime(), t.Policy)
		if breach == sla.BreachNone || breach == t.NotificationStatus {
			continue
		}
		byDept[t.Department] = append(byDept[t.Department], models.BreachCandidate{Ticket: t, Breach: breach})
	}

	departments := make([]string, 0, len(byDept))
	for dept := range byDept {
		departments = append(departments, dept)
	}
	sort.Strings(departments)

	var pushErr error
	for _, dept := range departments {
		group := byDept[dept]
		token := group[0].HODToken
		if !token.Valid || strings.TrimSpace(token.String) == "" {
			logger.Warn().Str("department", dept).Int("tickets", len(group)).Msg("no HOD token; breaches not sent")
			result.Skipped += len(group)
			continue
		}

		if err := s.pusher.Send(ctx, BuildBreachPush(dept, token.String, group)); err != nil {
			logger.Error().Err(err).Str("department", dept).Msg("breach push failed; will retry next scan")
			result.Failed += len(group)
			pushErr = err
			continue
		}

		if err := s.record(ctx, group, now); err != nil {
			logger.Error().Err(err).Str("department", dept).Msg("failed to record breach notifications")
			result.Failed += len(group)
			continue
		}

		result.DepartmentsNotified++
		for _, c := range group {
			switch c.Breach {
			case sla.BreachAssign:
				result.AssignBreaches++
			case sla.BreachCompletion:
				result.CompletionBreaches++
			case sla.BreachBoth:
				result.BothBreaches++
			}
		}
	}

	logScan(logger, result)
	if pushErr != nil && result.DepartmentsNotified == 0 {
		return nil, apperrors.NewExternalError("breach push failed for every department", pushErr)
	}
	return result, nil
}

func (s *BreachService) record(ctx context.Context, group []models.BreachCandidate, now time.Time) error {
	return repository.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		tickets := s.tickets.WithTx(tx)
		notifications := s.notifications.WithTx(tx)
		for _, c := range group {
			if err := tickets.SetNotificationStatus(ctx, c.ID, c.Breach); err != nil {
				return err
			}
			n := &models.SLANotification{
				TicketID:       c.ID,
				TicketType:     models.NotificationTicketType,
				DeptName:       c.Department,
				RoomNo:         c.RoomNo,
				BreachType:     c.Breach,
				BreachDateTime: now,
				RaisedDeptName: models.NotificationRaisedDeptName,
			}
			if c.UserID.Valid {
				userID := c.UserID.String
				n.UserID = &userID
			}
			if err := notifications.Create(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// BuildBreachPush renders the department push: one line per ticket, body cut at 300 characters.
func BuildBreachPush(department, token string, group []models.BreachCandidate) notification.Push {
	lines := make([]string, len(group))
	for i, c := range group {
		lines[i] = fmt.Sprintf("Ticket:%d Room:%s %s", c.ID, c.RoomNo, c.Breach.Label())
	}
	body := strings.Join(lines, "\n")
	if len(body) > maxPushBodyLength {
		cut := maxPushBodyLength
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	return notification.Push{
		Token: token,
		Title: "Facility Check SLA Breach - " + department,
		Body:  body,
		Data: map[string]string{
			"department": department,
			"count":      fmt.Sprint(len(group)),
		},
	}
}

func logScan(logger zerolog.Logger, r *models.ScanResult) {
	ev := logger.Info()
	if r.Notified() == 0 && r.Failed == 0 {
		ev = logger.Debug()
	}
	ev.Int("scanned", r.Scanned).
		Int("assign", r.AssignBreaches).
		Int("completion", r.CompletionBreaches).
		Int("both", r.BothBreaches).
		Int("departments", r.DepartmentsNotified).
		Int("skipped", r.Skipped).
		Int("failed", r.Failed).
		Msg("sla scan finished")
}
