package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapstore/pkg/dialects/sqlite"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/txn"
)

type fixture struct {
	db     *sql.DB
	mock   sqlmock.Sqlmock
	pool   *Pool
	binder *Binder
	txns   *txn.Manager
}

func newFixture(t *testing.T, d *dialect.Dialect, cfg Config) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	pool := NewPool(logger)
	require.NoError(t, pool.Register("default", db, d, cfg))
	t.Cleanup(func() {
		_ = pool.Close()
		_ = db.Close()
	})
	return &fixture{
		db:     db,
		mock:   mock,
		pool:   pool,
		binder: NewBinder(pool, logger),
		txns:   txn.NewManager(logger),
	}
}

func (f *fixture) begin(t *testing.T) (context.Context, *txn.Transaction) {
	t.Helper()
	ctx, tx, err := f.txns.Begin(context.Background())
	require.NoError(t, err)
	return ctx, tx
}

func (f *fixture) stats(t *testing.T) Stats {
	t.Helper()
	s, ok := f.pool.Stats("default")
	require.True(t, ok)
	return s
}

func smallPool(capacity int) Config {
	return Config{Capacity: capacity, MaxWait: 50 * time.Millisecond}
}

func TestAcquireSession_NoActiveTransaction(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(1))

	_, err := f.binder.AcquireSession(context.Background(), "default")
	assert.ErrorIs(t, err, core.ErrNoActiveTransaction)

	ctx, tx := f.begin(t)
	require.NoError(t, tx.Rollback(ctx))
	_, err = f.binder.AcquireSession(ctx, "default")
	assert.ErrorIs(t, err, core.ErrNoActiveTransaction, "finished transaction")
}

func TestAcquireSession_Doomed(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(1))
	ctx, tx := f.begin(t)
	tx.SetRollbackOnly()

	_, err := f.binder.AcquireSession(ctx, "default")
	assert.ErrorIs(t, err, core.ErrTransactionDoomed)
	assert.Equal(t, uint64(0), f.stats(t).Borrowed)
}

func TestAcquireSession_SameSessionWithinTransaction(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(2))

	f.mock.ExpectBegin()
	f.mock.ExpectExec("UPDATE hierarchy SET name = ? WHERE id = ?").
		WithArgs("x", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	ctx, tx := f.begin(t)
	s1, err := f.binder.AcquireSession(ctx, "default")
	require.NoError(t, err)
	s2, err := f.binder.AcquireSession(ctx, "default")
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, f.stats(t).Active)

	_, err = s1.Exec(ctx, "UPDATE hierarchy SET name = ? WHERE id = ?", "x", 1)
	require.NoError(t, err)

	require.NoError(t, tx.Commit(ctx))
	st := f.stats(t)
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, 1, st.Idle, "committed session returns to the pool")
	assert.Equal(t, uint64(0), st.Destroyed)

	_, ok := tx.Resource(bindingKey{binder: f.binder, repo: "default"})
	assert.False(t, ok, "binding is cleared on completion")

	// A later transaction re-borrows and gets a fresh database transaction.
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	ctx2, tx2 := f.begin(t)
	s3, err := f.binder.AcquireSession(ctx2, "default")
	require.NoError(t, err)
	assert.True(t, s3.InTransaction())

	require.NoError(t, tx2.Rollback(ctx2))
	st = f.stats(t)
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, 0, st.Idle, "rolled back session is never reused")
	assert.Equal(t, uint64(1), st.Destroyed)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAcquireSession_SharedTransactionAcrossGoroutines(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(4))
	f.mock.ExpectBegin()

	ctx, _ := f.begin(t)
	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.binder.AcquireSession(ctx, "default")
			assert.NoError(t, err)
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
	assert.Equal(t, uint64(1), f.stats(t).Borrowed)
}

func TestAcquireSession_PoolExhausted(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(1))
	f.mock.ExpectBegin()

	ctx1, _ := f.begin(t)
	_, err := f.binder.AcquireSession(ctx1, "default")
	require.NoError(t, err)

	ctx2, _ := f.begin(t)
	start := time.Now()
	_, err = f.binder.AcquireSession(ctx2, "default")
	elapsed := time.Since(start)

	var pe *core.PoolExhaustedError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "default", pe.Repository)
	assert.Equal(t, 1, pe.Capacity)
	assert.Equal(t, 50*time.Millisecond, pe.Timeout)
	assert.ErrorIs(t, err, core.ErrPoolExhausted)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Equal(t, uint64(1), f.stats(t).BorrowTimeouts)
}

func TestBorrow_HonorsCallerContext(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, Config{Capacity: 1, MaxWait: 5 * time.Second})

	s, err := f.pool.Borrow(context.Background(), "default")
	require.NoError(t, err)
	defer f.pool.Return(s)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.pool.Borrow(ctx, "default")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, core.ErrPoolExhausted)
	assert.Equal(t, uint64(0), f.stats(t).BorrowTimeouts)
}

func TestBorrow_DriverPoolSmallerThanCapacity(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, Config{Capacity: 2, MaxWait: 50 * time.Millisecond})
	f.db.SetMaxOpenConns(1)

	s, err := f.pool.Borrow(context.Background(), "default")
	require.NoError(t, err)
	defer f.pool.Return(s)

	done := make(chan error, 1)
	go func() {
		_, err := f.pool.Borrow(context.Background(), "default")
		done <- err
	}()

	select {
	case err := <-done:
		var pe *core.PoolExhaustedError
		require.True(t, errors.As(err, &pe), "got %v", err)
		assert.Equal(t, 2, pe.Capacity)
		assert.Equal(t, 50*time.Millisecond, pe.Timeout)
	case <-time.After(2 * time.Second):
		t.Fatal("borrow waited past MaxWait for a driver connection")
	}

	st := f.stats(t)
	assert.Equal(t, uint64(1), st.BorrowTimeouts)
	assert.Equal(t, 1, st.Active, "capacity of the failed borrow is released")
}

func TestCommitFailure_InvalidatesSession(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(1))
	boom := errors.New("boom")
	f.mock.ExpectBegin()
	f.mock.ExpectCommit().WillReturnError(boom)

	ctx, tx := f.begin(t)
	_, err := f.binder.AcquireSession(ctx, "default")
	require.NoError(t, err)

	err = tx.Commit(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, txn.StatusRolledBack, tx.Status())

	st := f.stats(t)
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, 0, st.Idle)
	assert.Equal(t, uint64(1), st.Destroyed)
}

func TestBeginFailure_ReleasesCapacity(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(1))
	f.mock.ExpectBegin().WillReturnError(errors.New("no tx for you"))

	ctx, _ := f.begin(t)
	_, err := f.binder.AcquireSession(ctx, "default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")

	st := f.stats(t)
	assert.Equal(t, 0, st.Active)
	assert.Equal(t, uint64(1), st.Destroyed)
}

func TestPool_Close(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(2))

	s, err := f.pool.Borrow(context.Background(), "default")
	require.NoError(t, err)

	require.NoError(t, f.pool.Close())
	require.NoError(t, f.pool.Close(), "close is idempotent")

	_, err = f.pool.Borrow(context.Background(), "default")
	assert.ErrorIs(t, err, core.ErrPoolClosed)

	ctx, _ := f.begin(t)
	_, err = f.binder.AcquireSession(ctx, "default")
	assert.ErrorIs(t, err, core.ErrPoolClosed)

	// Sessions returned after close are destroyed.
	f.pool.Return(s)
	st := f.stats(t)
	assert.Equal(t, 0, st.Idle)
	assert.Equal(t, uint64(1), st.Destroyed)

	assert.ErrorIs(t, f.pool.Register("other", f.db, sqlite.SQLite, smallPool(1)), core.ErrPoolClosed)
}

func TestPool_Register(t *testing.T) {
	f := newFixture(t, sqlite.SQLite, smallPool(1))

	tests := []struct {
		name   string
		repo   string
		cfg    Config
		errMsg string
	}{
		{"duplicate", "default", smallPool(1), "already registered"},
		{"zero capacity", "a", Config{}, "capacity must be at least 1"},
		{"min idle above capacity", "b", Config{Capacity: 1, MinIdle: 2}, "exceeds capacity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.pool.Register(tt.repo, f.db, sqlite.SQLite, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := f.pool.Borrow(context.Background(), "missing")
	assert.ErrorContains(t, err, `unknown repository "missing"`)

	_, ok := f.pool.Stats("missing")
	assert.False(t, ok)
	require.Len(t, f.pool.AllStats(), 1)
	assert.Equal(t, "default", f.pool.AllStats()[0].Repository)
}

func TestPool_Erosion(t *testing.T) {
	tests := []struct {
		name          string
		rate          float64
		wantDestroyed int
	}{
		{"down to min idle", 100, 2},
		{"rate limited", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, sqlite.SQLite, Config{
				Capacity:    3,
				MinIdle:     1,
				MaxWait:     time.Second,
				IdleTimeout: time.Minute,
				ErosionRate: tt.rate,
			})

			var borrowed []*Session
			for range 3 {
				s, err := f.pool.Borrow(context.Background(), "default")
				require.NoError(t, err)
				borrowed = append(borrowed, s)
			}
			for _, s := range borrowed {
				f.pool.Return(s)
			}
			require.Equal(t, 3, f.stats(t).Idle)

			rp := f.pool.repos["default"]
			assert.Equal(t, 0, rp.erode(time.Now()), "nothing idle long enough")

			assert.Equal(t, tt.wantDestroyed, rp.erode(time.Now().Add(2*time.Minute)))
			st := f.stats(t)
			assert.Equal(t, 3-tt.wantDestroyed, st.Idle)
			assert.Equal(t, uint64(tt.wantDestroyed), st.Destroyed)
		})
	}
}

func TestSession_ExecUpdateRebinds(t *testing.T) {
	f := newFixture(t, postgres.Postgres, smallPool(1))

	db := schema.NewDatabase(postgres.Postgres)
	tbl, err := db.AddTable("hierarchy")
	require.NoError(t, err)
	id, err := tbl.AddColumn("id", core.TypeID, "id", schema.WithPrimary())
	require.NoError(t, err)
	name, err := tbl.AddColumn("name", core.TypeString, "name")
	require.NoError(t, err)

	u := schema.NewUpdate(tbl)
	u.SetUpdatedColumns([]*schema.Column{id, name})
	u.SetWhere(id.QuotedName() + " = ?")

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`UPDATE "hierarchy" SET "id" = $1, "name" = $2 WHERE "id" = $3`).
		WithArgs("new", "title", "old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	err = f.txns.Run(context.Background(), func(ctx context.Context) error {
		s, err := f.binder.AcquireSession(ctx, "default")
		if err != nil {
			return err
		}
		n, err := s.ExecUpdate(ctx, u, "new", "title", "old")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1), n)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, f.mock.ExpectationsWereMet())

	_, err = (&Session{dialect: postgres.Postgres}).ExecUpdate(context.Background(), schema.NewUpdate(tbl))
	var be *core.BuildError
	assert.True(t, errors.As(err, &be), "unrenderable update fails before touching the connection")
}
