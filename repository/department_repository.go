package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"dtracker/models"
)

// DepartmentRepository handles database operations for department SLA policies
type DepartmentRepository struct {
	db *sql.DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// SeedPolicies inserts policies for departments that have none.
// Existing rows keep their thresholds and HOD token. Returns the number inserted.
func (r *DepartmentRepository) SeedPolicies(ctx context.Context, policies []models.DepartmentPolicy) (int, error) {
	if len(policies) == 0 {
		return 0, nil
	}
	rows := make([]interface{}, 0, len(policies))
	for _, p := range policies {
		rows = append(rows, goqu.Record{
			"DEPTName":          p.Department,
			"AssignSLA_Min":     p.Policy.AssignMinutes,
			"CompletionSLA_Min": p.Policy.CompletionMinutes,
			"HOD_FCM_Token":     p.HODToken,
		})
	}
	ds := dialect.Insert(tablePolicies).Rows(rows...).OnConflict(goqu.DoNothing()).Prepared(true)
	res, err := exec(ctx, r.db, ds)
	if err != nil {
		return 0, fmt.Errorf("failed to seed department policies: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

// ListPolicies returns every department policy ordered by name.
func (r *DepartmentRepository) ListPolicies(ctx context.Context) ([]models.DepartmentPolicy, error) {
	ds := dialect.From(tablePolicies).
		Select("DEPTName", "AssignSLA_Min", "CompletionSLA_Min", "HOD_FCM_Token").
		Order(goqu.C("DEPTName").Asc()).
		Prepared(true)
	rows, err := query(ctx, r.db, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to list department policies: %w", err)
	}
	defer rows.Close()

	var out []models.DepartmentPolicy
	for rows.Next() {
		var p models.DepartmentPolicy
		if err := rows.Scan(&p.Department, &p.Policy.AssignMinutes, &p.Policy.CompletionMinutes, &p.HODToken); err != nil {
			return nil, fmt.Errorf("failed to scan department policy: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating department policies: %w", err)
	}
	return out, nil
}
