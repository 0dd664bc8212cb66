package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Manager starts transactions.
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a transaction manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{logger: logger}
}

// Begin starts a transaction and returns a context carrying it.
// Transactions do not nest: Begin fails if ctx already carries an active one.
func (m *Manager) Begin(ctx context.Context) (context.Context, *Transaction, error) {
	if existing, ok := FromContext(ctx); ok && existing.IsActive() {
		return ctx, nil, ErrNestedTransaction
	}
	tx := newTransaction(m.logger)
	m.logger.Debug("transaction started", "txn", tx.ID())
	return NewContext(ctx, tx), tx, nil
}

// Run executes fn in a new transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	txCtx, tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if rerr := tx.Rollback(ctx); rerr != nil {
				m.logger.Error("rollback after panic failed", "txn", tx.ID(), "error", rerr)
			}
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rerr := tx.Rollback(ctx); rerr != nil && !errors.Is(rerr, ErrNotActive) {
			return errors.Join(err, rerr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
