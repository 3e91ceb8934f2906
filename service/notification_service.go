package service

import (
	"context"
	"time"

	"dtracker/models"
	"dtracker/repository"
	"dtracker/workflow"
)

// NotificationService reads the SLA notification log
type NotificationService struct {
	repo     *repository.NotificationRepository
	registry *workflow.Registry
	loc      *time.Location
	now      Clock
}

// NewNotificationService creates a new notification service. "Today" is
// the calendar day in loc.
func NewNotificationService(repo *repository.NotificationRepository, registry *workflow.Registry, loc *time.Location) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{repo: repo, registry: registry, loc: loc, now: systemClock}
}

// WithClock replaces the time source. Used by tests.
func (s *NotificationService) WithClock(now Clock) *NotificationService {
	s.now = now
	return s
}

// DayBounds returns the UTC instants at which the day containing t starts and ends in loc.
func DayBounds(t time.Time, loc *time.Location) (from, to time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// Today lists a department's notifications raised today, newest first.
func (s *NotificationService) Today(ctx context.Context, department string) ([]models.SLANotification, error) {
	def, err := s.registry.Lookup(department)
	if err != nil {
		return nil, err
	}
	from, to := DayBounds(s.now(), s.loc)
	out, err := s.repo.ListBetween(ctx, string(def.Name), from, to)
	if err != nil {
		return nil, internal("failed to list notifications", err)
	}
	return out, nil
}
