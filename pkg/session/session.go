package session

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// queryer is implemented by both *sql.Conn and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session is a pinned connection of one repository. It is used by one
// transaction at a time; statements run in program order.
type Session struct {
	id      string
	repo    string
	dialect *dialect.Dialect
	conn    *sql.Conn
	tx      *sql.Tx
	logger  *slog.Logger

	created  time.Time
	returned time.Time
}

func newSession(ctx context.Context, db *sql.DB, repo string, d *dialect.Dialect, logger *slog.Logger) (*Session, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection for repository %s: %w", repo, err)
	}
	s := &Session{
		id:      uuid.NewString(),
		repo:    repo,
		dialect: d,
		conn:    conn,
		logger:  logger,
		created: time.Now(),
	}
	logger.Debug("session opened", slog.String("session", s.id), slog.String("repository", repo))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Repository returns the repository name.
func (s *Session) Repository() string { return s.repo }

// Dialect returns the repository dialect.
func (s *Session) Dialect() *dialect.Dialect { return s.dialect }

// InTransaction reports whether a database transaction is open on the session.
func (s *Session) InTransaction() bool { return s.tx != nil }

func (s *Session) q() queryer {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// begin opens the database transaction. It is detached from ctx
// cancellation: the transaction ends with Commit or Rollback only.
func (s *Session) begin(ctx context.Context) error {
	tx, err := s.conn.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Exec runs a statement written with "?" placeholders.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q().ExecContext(ctx, s.dialect.Rebind(query), args...)
}

// Query runs a query written with "?" placeholders.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q().QueryContext(ctx, s.dialect.Rebind(query), args...)
}

// QueryRow runs a query expected to return at most one row.
func (s *Session) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q().QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// ExecUpdate renders u and runs it, returning the number of rows affected.
func (s *Session) ExecUpdate(ctx context.Context, u *schema.Update, args ...any) (int64, error) {
	stmt, err := u.Statement()
	if err != nil {
		return 0, err
	}
	res, err := s.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute update: %w", err)
	}
	return res.RowsAffected()
}

// Bind converts value for col.
func (s *Session) Bind(col *schema.Column, value any) (any, error) {
	return col.Bind(value)
}

// Commit commits the database transaction.
func (s *Session) Commit(context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %s: %w", s.id, err)
	}
	return nil
}

// Rollback rolls back the database transaction.
func (s *Session) Rollback(context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back session %s: %w", s.id, err)
	}
	return nil
}

// destroy discards the physical connection so database/sql never reuses it.
func (s *Session) destroy() {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	_ = s.conn.Raw(func(any) error { return driver.ErrBadConn })
	_ = s.conn.Close()
	s.logger.Debug("session destroyed", slog.String("session", s.id), slog.String("repository", s.repo))
}
