package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/txn"
)

// Binder hands out the session bound to the caller's transaction.
type Binder struct {
	pool   *Pool
	logger *slog.Logger
}

// bindingKey scopes a bound session to one binder and repository.
type bindingKey struct {
	binder *Binder
	repo   string
}

// NewBinder creates a binder over pool.
func NewBinder(pool *Pool, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Binder{pool: pool, logger: logger}
}

// Pool returns the underlying pool.
func (b *Binder) Pool() *Pool { return b.pool }

// AcquireSession returns the session of repo bound to the transaction in ctx,
// borrowing and enlisting one on first use. There is no session outside a
// transaction.
func (b *Binder) AcquireSession(ctx context.Context, repo string) (*Session, error) {
	tx, ok := txn.FromContext(ctx)
	if !ok || !tx.IsActive() {
		return nil, core.ErrNoActiveTransaction
	}
	if tx.IsRollbackOnly() {
		return nil, core.ErrTransactionDoomed
	}

	key := bindingKey{binder: b, repo: repo}
	v, err := tx.LoadOrBind(key, func() (any, error) {
		return b.bind(ctx, tx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (b *Binder) bind(ctx context.Context, tx *txn.Transaction, key bindingKey) (*Session, error) {
	s, err := b.pool.Borrow(ctx, key.repo)
	if err != nil {
		return nil, err
	}
	if err := s.begin(ctx); err != nil {
		b.pool.Invalidate(s)
		return nil, fmt.Errorf("repository %s: %w", key.repo, err)
	}
	if err := tx.Enlist(s); err != nil {
		b.pool.Invalidate(s)
		return nil, err
	}
	err = tx.RegisterSynchronization(func(status txn.Status) {
		tx.UnbindResource(key)
		if status == txn.StatusCommitted {
			b.pool.Return(s)
			return
		}
		b.pool.Invalidate(s)
	})
	if err != nil {
		b.pool.Invalidate(s)
		return nil, err
	}

	b.logger.Debug("session bound",
		slog.String("session", s.ID()),
		slog.String("repository", key.repo),
		slog.String("txn", tx.ID()))
	return s, nil
}
