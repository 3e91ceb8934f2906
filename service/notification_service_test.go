package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtracker/apperrors"
	"dtracker/repository"
	"dtracker/workflow"
)

func TestDayBounds(t *testing.T) {
	// 20:00 UTC on 1 March is 01:30 on 2 March in IST.
	from, to := DayBounds(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC), ist)
	assert.True(t, from.Equal(time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)), from.String())
	assert.True(t, to.Equal(time.Date(2025, 3, 2, 18, 30, 0, 0, time.UTC)), to.String())
}

func TestNotificationService_Today(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), workflow.MustDefault(), ist).
		WithClock(fixedClock(time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)))

	mock.ExpectQuery(regexp.QuoteMeta("FROM `SLA_Notifications`")).
		WithArgs("BILLING", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"ID", "TicketID", "TicketType", "DeptName", "USERID", "RoomNo",
			"BreachType", "BreachDateTime", "Raised_DeptName"}).
			AddRow(1, 9, "Facility", "BILLING", nil, "101", 1, t0, "Facility_Check"))

	out, err := svc.Today(context.Background(), "billing")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(9), out[0].TicketID)
	assert.Nil(t, out[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationService_TodayUnknownDepartment(t *testing.T) {
	db, mock := setupMockDB(t)
	svc := NewNotificationService(repository.NewNotificationRepository(db), workflow.MustDefault(), ist)

	_, err := svc.Today(context.Background(), "radiology")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}
