package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"dtracker/models"
	"dtracker/workflow"
)

const columnWorkflowState = "WORKFLOW_STATE"

// StepRow is the stored step record of one department for one episode.
type StepRow struct {
	State  int
	Values map[string]sql.NullInt64
	Times  map[string]sql.NullTime
}

// StepRepository reads and writes the per-department step tables. Table and
// column names come from the workflow registry.
type StepRepository struct {
	db *sql.DB
	q  Querier
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sql.DB) *StepRepository {
	return &StepRepository{db: db, q: db}
}

// WithTx returns a repository bound to tx.
func (r *StepRepository) WithTx(tx *sql.Tx) *StepRepository {
	return &StepRepository{db: r.db, q: tx}
}

func episodeFilter(ep models.EpisodeKey) goqu.Ex {
	return goqu.Ex{
		"ROOMNO": ep.RoomNo,
		"MRNO":   ep.MRNO,
		"FTID":   ep.FTID,
	}
}

// EnsureRow creates the department's step row if it does not exist yet.
// Returns true when a row was inserted.
func (r *StepRepository) EnsureRow(ctx context.Context, def *workflow.Definition, ep models.EpisodeKey) (bool, error) {
	ds := dialect.Insert(def.Table).
		Rows(goqu.Record{
			"ROOMNO":            ep.RoomNo,
			"MRNO":              ep.MRNO,
			"FTID":              ep.FTID,
			columnWorkflowState: 0,
		}).
		OnConflict(goqu.DoNothing()).
		Prepared(true)
	res, err := exec(ctx, r.q, ds)
	if err != nil {
		return false, fmt.Errorf("failed to create %s step row: %w", def.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Load reads the step row, or returns nil when it does not exist.
// With forUpdate the row stays locked until the transaction ends.
func (r *StepRepository) Load(ctx context.Context, def *workflow.Definition, ep models.EpisodeKey, forUpdate bool) (*StepRow, error) {
	cols := []interface{}{goqu.C(columnWorkflowState)}
	for _, s := range def.Steps {
		cols = append(cols, goqu.C(s.Column), goqu.C(s.TimeColumn))
	}
	ds := dialect.From(def.Table).Select(cols...).Where(episodeFilter(ep)).Prepared(true)
	if forUpdate {
		ds = ds.ForUpdate(exp.Wait)
	}

	row, err := queryRow(ctx, r.q, ds)
	if err != nil {
		return nil, err
	}

	values := make([]sql.NullInt64, len(def.Steps))
	times := make([]sql.NullTime, len(def.Steps))
	var state int
	dest := []interface{}{&state}
	for i := range def.Steps {
		dest = append(dest, &values[i], &times[i])
	}
	if err := row.Scan(dest...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s step row: %w", def.Name, err)
	}

	out := &StepRow{
		State:  state,
		Values: make(map[string]sql.NullInt64, len(def.Steps)),
		Times:  make(map[string]sql.NullTime, len(def.Steps)),
	}
	for i, s := range def.Steps {
		out.Values[s.Key] = values[i]
		out.Times[s.Key] = times[i]
	}
	return out, nil
}

// Advance records the given steps and moves WORKFLOW_STATE from `from` to `to`
// in one statement. It fails if the stored state is no longer `from`.
func (r *StepRepository) Advance(
	ctx context.Context,
	def *workflow.Definition,
	ep models.EpisodeKey,
	steps []workflow.Step,
	userID string,
	at time.Time,
	from, to int,
) error {
	rec := goqu.Record{columnWorkflowState: to}
	for _, s := range steps {
		rec[s.Column] = s.MarkValue
		rec[s.TimeColumn] = at
		rec[s.UserColumn] = nullString(userID)
	}
	where := episodeFilter(ep)
	where[columnWorkflowState] = from

	ds := dialect.Update(def.Table).Set(rec).Where(where).Prepared(true)
	res, err := exec(ctx, r.q, ds)
	if err != nil {
		return fmt.Errorf("failed to update %s steps: %w", def.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s step row changed concurrently (expected state %d)", def.Name, from)
	}
	return nil
}
