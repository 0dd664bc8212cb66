package cluster

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

const gooseVersionTable = "leapstore_goose_db_version"

// gooseDialects maps dialect names onto goose dialect names.
var gooseDialects = map[string]string{
	"postgres": "postgres",
	"mysql":    "mysql",
	"sqlite":   "sqlite3",
}

// SQLLock is a Lock stored as a row in leapstore_cluster_locks. A row whose
// expires_at has passed is considered abandoned and may be taken over.
type SQLLock struct {
	db      *sql.DB
	dialect *dialect.Dialect
	name    string
	owner   string
	ttl     time.Duration
	logger  *slog.Logger

	now func() time.Time
}

// NewSQLLock creates a lock named name in db.
func NewSQLLock(db *sql.DB, d *dialect.Dialect, name string, ttl time.Duration, logger *slog.Logger) *SQLLock {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLLock{
		db:      db,
		dialect: d,
		name:    name,
		owner:   uuid.NewString(),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Name implements Lock.
func (l *SQLLock) Name() string { return l.name }

// Owner returns the identifier written into the lock row.
func (l *SQLLock) Owner() string { return l.owner }

// Migrate creates the lock table.
func (l *SQLLock) Migrate(ctx context.Context) error {
	gd, ok := gooseDialects[l.dialect.Name]
	if !ok {
		return fmt.Errorf("sql cluster lock is not supported on %s", l.dialect.Name)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetTableName(gooseVersionTable)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gd); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, l.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// TryLock implements Lock.
func (l *SQLLock) TryLock(ctx context.Context) (bool, error) {
	now := l.now()

	res, err := l.db.ExecContext(ctx,
		l.dialect.Rebind("DELETE FROM leapstore_cluster_locks WHERE name = ? AND expires_at < ?"),
		l.name, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to expire lock: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		l.logger.Warn("took over expired cluster lock", slog.String("lock", l.name))
	}

	_, err = l.db.ExecContext(ctx,
		l.dialect.Rebind("INSERT INTO leapstore_cluster_locks (name, owner, expires_at) VALUES (?, ?, ?)"),
		l.name, l.owner, now.Add(l.ttl).UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert lock: %w", err)
	}
	return true, nil
}

// TTL implements Renewer.
func (l *SQLLock) TTL() time.Duration { return l.ttl }

// Extend implements Renewer.
func (l *SQLLock) Extend(ctx context.Context) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		l.dialect.Rebind("UPDATE leapstore_cluster_locks SET expires_at = ? WHERE name = ? AND owner = ?"),
		l.now().Add(l.ttl).UnixMilli(), l.name, l.owner)
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	return n == 1, nil
}

// Unlock implements Lock.
func (l *SQLLock) Unlock(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx,
		l.dialect.Rebind("DELETE FROM leapstore_cluster_locks WHERE name = ? AND owner = ?"),
		l.name, l.owner)
	if err != nil {
		return fmt.Errorf("failed to delete lock: %w", err)
	}
	return nil
}

type sqlStateError interface {
	SQLState() string
}

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// isUniqueViolation reports whether err is a duplicate key error from any
// supported driver.
func isUniqueViolation(err error) bool {
	var se sqlStateError
	if errors.As(err, &se) && se.SQLState() == pgUniqueViolation {
		return true
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
