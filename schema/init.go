// Package schema: safe database initialization. Creates only missing tables
// and columns; never drops or rewrites existing ones.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"dtracker/workflow"
)

// Report lists what InitializeDatabase changed.
type Report struct {
	CreatedTables []string `json:"createdTables"`
	AddedColumns  []string `json:"addedColumns"`
}

// InitializeDatabase ensures every table in Tables(reg) exists with all of its columns.
func InitializeDatabase(ctx context.Context, db *sql.DB, reg *workflow.Registry) (*Report, error) {
	report := &Report{CreatedTables: []string{}, AddedColumns: []string{}}
	for _, t := range Tables(reg) {
		created, added, err := ensureTable(ctx, db, t)
		if err != nil {
			return report, err
		}
		if created {
			report.CreatedTables = append(report.CreatedTables, t.Name)
		}
		report.AddedColumns = append(report.AddedColumns, added...)
	}
	log.Info().
		Str("component", "schema").
		Strs("created_tables", report.CreatedTables).
		Strs("added_columns", report.AddedColumns).
		Msg("schema check passed")
	return report, nil
}

func ensureTable(ctx context.Context, db *sql.DB, t Table) (created bool, added []string, err error) {
	existing, err := existingColumns(ctx, db, t.Name)
	if err != nil {
		return false, nil, err
	}
	if len(existing) == 0 {
		if _, err := db.ExecContext(ctx, t.createSQL()); err != nil {
			return false, nil, fmt.Errorf("failed to create table %s: %w", t.Name, err)
		}
		log.Info().Str("component", "schema").Str("table", t.Name).Msg("created table")
		return true, nil, nil
	}

	for _, c := range t.Columns {
		if existing[strings.ToUpper(c.Name)] {
			continue
		}
		// MySQL has no ADD COLUMN IF NOT EXISTS; the column was checked above.
		stmt := fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s", t.Name, c.Name, c.Definition)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return false, added, fmt.Errorf("failed to add column %s.%s: %w", t.Name, c.Name, err)
		}
		log.Info().Str("component", "schema").Str("table", t.Name).Str("column", c.Name).Msg("added missing column")
		added = append(added, t.Name+"."+c.Name)
	}
	return false, added, nil
}

// existingColumns returns the upper-cased column names of table; empty when the table is missing.
func existingColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT COLUMN_NAME FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		out[strings.ToUpper(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return out, nil
}
