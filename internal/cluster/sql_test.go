package cluster

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/dialects/duckdb"
	"github.com/leapstack-labs/leapstore/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapstore/pkg/dialects/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "locks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLLock_SQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	logger := testutil.NewTestLogger(t)

	a := NewSQLLock(db, sqlite.SQLite, "boot", time.Minute, logger)
	b := NewSQLLock(db, sqlite.SQLite, "boot", time.Minute, logger)
	require.NoError(t, a.Migrate(ctx))
	require.NoError(t, b.Migrate(ctx), "migrations are idempotent")

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// a non-owner cannot release
	require.NoError(t, b.Unlock(ctx))
	var owner string
	require.NoError(t, db.QueryRow("SELECT owner FROM leapstore_cluster_locks WHERE name = ?", "boot").Scan(&owner))
	assert.Equal(t, a.Owner(), owner)

	require.NoError(t, a.Unlock(ctx))
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLLock_TakesOverExpired(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	a := NewSQLLock(db, sqlite.SQLite, "boot", time.Minute, nil)
	b := NewSQLLock(db, sqlite.SQLite, "boot", time.Minute, nil)
	require.NoError(t, a.Migrate(ctx))

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	b.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// the previous holder's unlock no longer touches the row
	require.NoError(t, a.Unlock(ctx))
	var owner string
	require.NoError(t, db.QueryRow("SELECT owner FROM leapstore_cluster_locks WHERE name = ?", "boot").Scan(&owner))
	assert.Equal(t, b.Owner(), owner)
}

func TestSQLLock_Extend(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	a := NewSQLLock(db, sqlite.SQLite, "boot", time.Minute, nil)
	b := NewSQLLock(db, sqlite.SQLite, "boot", time.Minute, nil)
	require.NoError(t, a.Migrate(ctx))
	assert.Equal(t, time.Minute, a.TTL())

	ok, err := a.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	later := time.Now().Add(50 * time.Second)
	a.now = func() time.Time { return later }
	ok, err = a.Extend(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// The extension keeps the row alive past its original expiry.
	b.now = func() time.Time { return time.Now().Add(90 * time.Second) }
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.Extend(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "non-owner cannot extend")

	require.NoError(t, a.Unlock(ctx))
	ok, err = a.Extend(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "released lock cannot be extended")
}

func TestSQLLock_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	lock := NewSQLLock(db, postgres.Postgres, "boot", time.Minute, nil)
	now := time.UnixMilli(1_700_000_000_000)
	lock.now = func() time.Time { return now }

	mock.ExpectExec("DELETE FROM leapstore_cluster_locks WHERE name = $1 AND expires_at < $2").
		WithArgs("boot", now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO leapstore_cluster_locks (name, owner, expires_at) VALUES ($1, $2, $3)").
		WithArgs("boot", lock.Owner(), now.Add(time.Minute).UnixMilli()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectExec("DELETE FROM leapstore_cluster_locks WHERE name = $1 AND owner = $2").
		WithArgs("boot", lock.Owner()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := lock.TryLock(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, lock.Unlock(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLLock_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM leapstore_cluster_locks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO leapstore_cluster_locks").WillReturnError(errors.New("disk full"))

	_, err = NewSQLLock(db, sqlite.SQLite, "boot", time.Minute, nil).TryLock(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert lock")
}

func TestSQLLock_UnsupportedDialect(t *testing.T) {
	err := NewSQLLock(nil, duckdb.DuckDB, "boot", time.Minute, nil).Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported on duckdb")
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres sqlstate", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"mysql number", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"sqlite message", errors.New("constraint failed: UNIQUE constraint failed: leapstore_cluster_locks.name (1555)"), true},
		{"wrapped", errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"}), true},
		{"unrelated", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
