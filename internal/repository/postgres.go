package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"land-review/internal/apperr"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store on PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by db
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InTx runs fn in a READ COMMITTED transaction. Row and advisory locks taken
// by fn are held until commit or rollback.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback only if not committed
	defer func() {
		if err := sqlTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("Failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(newPostgresTx(sqlTx)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return mapError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type postgresTx struct {
	*AssignmentRepository
	*ChecklistRepository
	*DocumentRepository
	*AuditRepository
	db DBTX
}

func newPostgresTx(db DBTX) *postgresTx {
	return &postgresTx{
		AssignmentRepository: NewAssignmentRepository(db),
		ChecklistRepository:  NewChecklistRepository(db),
		DocumentRepository:   NewDocumentRepository(db),
		AuditRepository:      NewAuditRepository(db),
		db:                   db,
	}
}

// Lock takes a transaction scoped advisory lock on key
func (t *postgresTx) Lock(ctx context.Context, key string) error {
	if _, err := t.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("failed to lock %s: %w", key, err)
	}
	return nil
}

// PostgreSQL error codes the workflow reacts to
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
	pqFKViolation     = "23503"
)

// mapError turns constraint violations into typed workflow errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		e := apperr.Conflict("conflicting %s: %s", pqErr.Table, pqErr.Constraint)
		e.Err = err
		return e
	case pqCheckViolation, pqFKViolation:
		e := apperr.InvalidInput("constraint %s violated", pqErr.Constraint)
		e.Err = err
		return e
	}
	return err
}

// forUpdateClause appends a row lock to a select when requested
func forUpdateClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("Failed to close rows", "error", err)
	}
}
