package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/go-sql-driver/mysql"

	"dtracker/apperrors"
	"dtracker/models"
)

const mysqlErrDuplicateEntry = 1062

// UserRepository handles database operations for users
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a LOGIN row. A taken USERID yields a duplicate conflict.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User) error {
	ds := dialect.Insert(tableUsers).
		Rows(goqu.Record{
			"USERID":    u.UserID,
			"USERNAME":  u.UserName,
			"DEPT":      u.Department,
			"PASSWORD":  u.PasswordHash,
			"FCM_TOKEN": u.FCMToken,
		}).
		Prepared(true)
	if _, err := exec(ctx, r.db, ds); err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
			return apperrors.NewConflictError(apperrors.ReasonDuplicate, "user already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by USERID. Returns nil when absent.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	ds := dialect.From(tableUsers).
		Select("USERID", "USERNAME", "DEPT", "PASSWORD", "FCM_TOKEN").
		Where(goqu.C("USERID").Eq(userID)).
		Limit(1).
		Prepared(true)
	row, err := queryRow(ctx, r.db, ds)
	if err != nil {
		return nil, err
	}

	u := &models.User{}
	err = row.Scan(&u.UserID, &u.UserName, &u.Department, &u.PasswordHash, &u.FCMToken)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return u, nil
}

// UpdateToken stores a device push token. Returns false when the user does not exist.
func (r *UserRepository) UpdateToken(ctx context.Context, userID, token string) (bool, error) {
	ds := dialect.Update(tableUsers).
		Set(goqu.Record{"FCM_TOKEN": nullString(token)}).
		Where(goqu.C("USERID").Eq(userID)).
		Prepared(true)
	res, err := exec(ctx, r.db, ds)
	if err != nil {
		return false, fmt.Errorf("failed to update token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
