package schema

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtracker/workflow"
)

const selectColumns = "SELECT COLUMN_NAME FROM information_schema.COLUMNS"

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func columnRows(t Table, skip string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"COLUMN_NAME"})
	for _, c := range t.Columns {
		if c.Name != skip {
			rows.AddRow(c.Name)
		}
	}
	return rows
}

func findTable(t *testing.T, tables []Table, name string) Table {
	t.Helper()
	for _, tbl := range tables {
		if tbl.Name == name {
			return tbl
		}
	}
	t.Fatalf("table %s not found", name)
	return Table{}
}

func columnNames(t Table) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func TestTables(t *testing.T) {
	tables := Tables(workflow.MustDefault())
	require.Len(t, tables, 5+len(workflow.Pipeline))

	pharmacy := findTable(t, tables, "DT_P3_PHARMACY")
	assert.Subset(t, columnNames(pharmacy), []string{
		"ROOMNO", "MRNO", "FTID", "WORKFLOW_STATE",
		"PHARMACY_COMPLETED", "PHARMACY_COMPLETED_TIME", "PHARMACY_COMPLETED_BY",
		"FILE_DISPATCHED", "FILE_DISPATCHED_TIME", "FILE_DISPATCHED_BY",
	})

	beds := findTable(t, tables, TableBeds)
	assert.Equal(t, []string{
		"ROOMNO", "MRNO", "FTID", "STATUS",
		"NURSING", "DISCHARGE_SUMMARY", "DOCTOR_AUTHORIZATION", "PHARMACY", "BILLING", "INSURANCE",
	}, columnNames(beds))

	tickets := findTable(t, tables, TableTickets)
	assert.Contains(t, tickets.createSQL(), "UNIQUE KEY `uq_ticket` (`FACILITY_CKD_ROOMNO`, `FACILITY_CKD_DEPT`, `FACILITY_TID`)")
	assert.Contains(t, tickets.createSQL(), "`SLA_OUTCOME` TINYINT NULL")
}

func TestInitializeDatabase_CreatesMissingTables(t *testing.T) {
	db, mock := setupMockDB(t)
	reg := workflow.MustDefault()

	for _, tbl := range Tables(reg) {
		mock.ExpectQuery(regexp.QuoteMeta(selectColumns)).
			WithArgs(tbl.Name).
			WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}))
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS `" + tbl.Name + "`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	report, err := InitializeDatabase(context.Background(), db, reg)
	require.NoError(t, err)
	assert.Len(t, report.CreatedTables, 5+len(workflow.Pipeline))
	assert.Empty(t, report.AddedColumns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTable_AddsMissingColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	users := findTable(t, Tables(workflow.MustDefault()), TableUsers)

	mock.ExpectQuery(regexp.QuoteMeta(selectColumns)).
		WithArgs(TableUsers).
		WillReturnRows(sqlmock.NewRows([]string{"COLUMN_NAME"}).
			AddRow("USERID").AddRow("username").AddRow("DEPT").AddRow("PASSWORD"))
	mock.ExpectExec(regexp.QuoteMeta("ALTER TABLE `LOGIN` ADD COLUMN `FCM_TOKEN` VARCHAR(512) NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, added, err := ensureTable(context.Background(), db, users)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{"LOGIN.FCM_TOKEN"}, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateRequiredColumns(t *testing.T) {
	reg := workflow.MustDefault()

	t.Run("complete", func(t *testing.T) {
		db, mock := setupMockDB(t)
		for _, tbl := range Tables(reg) {
			mock.ExpectQuery(regexp.QuoteMeta(selectColumns)).WithArgs(tbl.Name).WillReturnRows(columnRows(tbl, ""))
		}
		assert.NoError(t, ValidateRequiredColumns(context.Background(), db, reg))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing column and table", func(t *testing.T) {
		db, mock := setupMockDB(t)
		for _, tbl := range Tables(reg) {
			rows := columnRows(tbl, "")
			switch tbl.Name {
			case TableTickets:
				rows = columnRows(tbl, "SLA_OUTCOME")
			case "DT_P5_INSURANCE":
				rows = sqlmock.NewRows([]string{"COLUMN_NAME"})
			}
			mock.ExpectQuery(regexp.QuoteMeta(selectColumns)).WithArgs(tbl.Name).WillReturnRows(rows)
		}
		err := ValidateRequiredColumns(context.Background(), db, reg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FACILITY_CHECK_DETAILS.SLA_OUTCOME")
		assert.Contains(t, err.Error(), "DT_P5_INSURANCE")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
