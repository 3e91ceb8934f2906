package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/go-sql-driver/mysql"

	"dtracker/models"
)

const tableBeds = "BED_DETAILS"

// BedRepository maintains the BED_DETAILS dashboard flags
type BedRepository struct {
	db *sql.DB
	q  Querier
}

// NewBedRepository creates a new bed repository
func NewBedRepository(db *sql.DB) *BedRepository {
	return &BedRepository{db: db, q: db}
}

// WithTx returns a repository bound to tx.
func (r *BedRepository) WithTx(tx *sql.Tx) *BedRepository {
	return &BedRepository{db: r.db, q: tx}
}

// SetColumn writes value into column for the episode, creating the bed row if needed.
// The DSN sets clientFoundRows, so an UPDATE that matches an unchanged row still
// reports one affected row.
func (r *BedRepository) SetColumn(ctx context.Context, ep models.EpisodeKey, column string, value int) error {
	updated, err := r.updateColumn(ctx, ep, column, value)
	if err != nil || updated {
		return err
	}

	ins := dialect.Insert(tableBeds).
		Rows(goqu.Record{
			"ROOMNO": ep.RoomNo,
			"MRNO":   ep.MRNO,
			"FTID":   ep.FTID,
			column:   value,
		}).
		Prepared(true)
	if _, err := exec(ctx, r.q, ins); err != nil {
		var myErr *mysql.MySQLError
		if !errors.As(err, &myErr) || myErr.Number != mysqlErrDuplicateEntry {
			return fmt.Errorf("failed to set bed %s: %w", column, err)
		}
		// Lost the insert race; the row exists now.
		if _, err := r.updateColumn(ctx, ep, column, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *BedRepository) updateColumn(ctx context.Context, ep models.EpisodeKey, column string, value int) (bool, error) {
	ds := dialect.Update(tableBeds).
		Set(goqu.Record{column: value}).
		Where(episodeFilter(ep)).
		Prepared(true)
	res, err := exec(ctx, r.q, ds)
	if err != nil {
		return false, fmt.Errorf("failed to set bed %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set bed %s: %w", column, err)
	}
	return n > 0, nil
}

// ReadColumn returns column for the episode, or nil when the bed row or value is missing.
func (r *BedRepository) ReadColumn(ctx context.Context, ep models.EpisodeKey, column string) (*int, error) {
	ds := dialect.From(tableBeds).
		Select(goqu.C(column)).
		Where(episodeFilter(ep)).
		Prepared(true)
	row, err := queryRow(ctx, r.q, ds)
	if err != nil {
		return nil, err
	}
	var v sql.NullInt64
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bed %s: %w", column, err)
	}
	if !v.Valid {
		return nil, nil
	}
	out := int(v.Int64)
	return &out, nil
}
