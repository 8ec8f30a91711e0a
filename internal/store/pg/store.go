package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gearguard.io/internal/gear"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// unique constraint -> field reported in gear.ConflictError
var uniqueFields = map[string]string{
	"users_email_key":                  gear.FieldEmail,
	"equipment_serial_number_key":      gear.FieldSerialNumber,
	"team_members_user_id_team_id_key": gear.FieldMembership,
}

// Store implements gear.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ gear.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapErr translates constraint violations into gear sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return gear.ErrNotFound
	}
	pgErr, ok := maybePgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		if field, ok := uniqueFields[pgErr.ConstraintName]; ok {
			return &gear.ConflictError{Field: field}
		}
		return fmt.Errorf("%w: %s", gear.ErrConflict, pgErr.ConstraintName)
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", gear.ErrInvalidReference, pgErr.ConstraintName)
	}
	return err
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return gear.ErrNotFound
	}
	return nil
}
