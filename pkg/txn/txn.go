// Package txn provides the ambient transaction that pooled sessions enlist in.
//
// A Transaction is carried in a context.Context. Participants enlisted in it
// are committed or rolled back together, and synchronizations registered on
// it run exactly once with the final outcome. Resources bound to a
// transaction are scoped to it and visible to every goroutine sharing the
// context.
package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Sentinel errors for transaction misuse.
var (
	ErrNotActive         = errors.New("leapstore: transaction is not active")
	ErrNestedTransaction = errors.New("leapstore: transaction already active in context")
)

// Status is the lifecycle state of a transaction.
type Status int

const (
	StatusActive Status = iota
	StatusCommitting
	StatusRollingBack
	StatusCommitted
	StatusRolledBack
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCommitting:
		return "committing"
	case StatusRollingBack:
		return "rolling back"
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// Participant is a resource whose work completes with the transaction.
type Participant interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Synchronization is called once with the final status of the transaction.
type Synchronization func(Status)

// Transaction is one unit of work.
type Transaction struct {
	id     string
	logger *slog.Logger

	mu           sync.Mutex
	status       Status
	rollbackOnly bool
	participants []Participant
	syncs        []Synchronization

	resMu     sync.Mutex
	resources map[any]any
	pending   map[any]*pendingBind
}

// pendingBind is a create in flight for one resource key.
type pendingBind struct {
	done  chan struct{}
	value any
	err   error
}

func newTransaction(logger *slog.Logger) *Transaction {
	return &Transaction{
		id:        uuid.NewString(),
		logger:    logger,
		status:    StatusActive,
		resources: make(map[any]any),
		pending:   make(map[any]*pendingBind),
	}
}

// ID returns the transaction identifier.
func (t *Transaction) ID() string { return t.id }

// Status returns the current status.
func (t *Transaction) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsActive reports whether work may still be enlisted.
func (t *Transaction) IsActive() bool {
	return t.Status() == StatusActive
}

// SetRollbackOnly dooms the transaction: it can only roll back.
func (t *Transaction) SetRollbackOnly() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollbackOnly = true
}

// IsRollbackOnly reports whether SetRollbackOnly was called.
func (t *Transaction) IsRollbackOnly() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackOnly
}

// Enlist adds a participant.
func (t *Transaction) Enlist(p Participant) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusActive {
		return ErrNotActive
	}
	t.participants = append(t.participants, p)
	return nil
}

// RegisterSynchronization adds a completion callback.
func (t *Transaction) RegisterSynchronization(fn Synchronization) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusActive {
		return ErrNotActive
	}
	t.syncs = append(t.syncs, fn)
	return nil
}

// Resource returns the value bound under key.
func (t *Transaction) Resource(key any) (any, bool) {
	t.resMu.Lock()
	defer t.resMu.Unlock()
	v, ok := t.resources[key]
	return v, ok
}

// BindResource binds value under key for the rest of the transaction.
func (t *Transaction) BindResource(key, value any) {
	t.resMu.Lock()
	defer t.resMu.Unlock()
	t.resources[key] = value
}

// UnbindResource removes the value bound under key.
func (t *Transaction) UnbindResource(key any) {
	t.resMu.Lock()
	defer t.resMu.Unlock()
	delete(t.resources, key)
}

// LoadOrBind returns the value bound under key, or calls create and binds its
// result. Concurrent callers for the same key wait for the first create and
// share its outcome, so at most one value is ever created per key. The lock is
// not held while create runs; callers for other keys proceed.
func (t *Transaction) LoadOrBind(key any, create func() (any, error)) (any, error) {
	t.resMu.Lock()
	if v, ok := t.resources[key]; ok {
		t.resMu.Unlock()
		return v, nil
	}
	if pb, ok := t.pending[key]; ok {
		t.resMu.Unlock()
		<-pb.done
		return pb.value, pb.err
	}
	pb := &pendingBind{done: make(chan struct{})}
	t.pending[key] = pb
	t.resMu.Unlock()

	pb.value, pb.err = create()

	t.resMu.Lock()
	delete(t.pending, key)
	if pb.err == nil {
		t.resources[key] = pb.value
	} else {
		pb.value = nil
	}
	t.resMu.Unlock()
	close(pb.done)
	return pb.value, pb.err
}

// Commit commits every participant in enlistment order. If one fails, the
// remaining participants are rolled back and the transaction ends rolled back.
// Committing a rollback-only transaction rolls it back and reports
// core.ErrTransactionDoomed.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	if t.status != StatusActive {
		t.mu.Unlock()
		return ErrNotActive
	}
	if t.rollbackOnly {
		t.mu.Unlock()
		if err := t.Rollback(ctx); err != nil {
			return errors.Join(core.ErrTransactionDoomed, err)
		}
		return core.ErrTransactionDoomed
	}
	t.status = StatusCommitting
	participants := t.participants
	t.mu.Unlock()

	for i, p := range participants {
		if err := p.Commit(ctx); err != nil {
			t.logger.Warn("commit failed, rolling back remaining participants",
				"txn", t.id, "participant", i, "error", err)
			errs := []error{fmt.Errorf("failed to commit transaction %s: %w", t.id, err)}
			for _, rest := range participants[i+1:] {
				if rerr := rest.Rollback(ctx); rerr != nil {
					errs = append(errs, rerr)
				}
			}
			t.complete(StatusRolledBack)
			return errors.Join(errs...)
		}
	}
	t.complete(StatusCommitted)
	t.logger.Debug("transaction committed", "txn", t.id, "participants", len(participants))
	return nil
}

// Rollback rolls back every participant. All participants are attempted;
// their errors are joined.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	if t.status != StatusActive {
		t.mu.Unlock()
		return ErrNotActive
	}
	t.status = StatusRollingBack
	participants := t.participants
	t.mu.Unlock()

	var errs []error
	for _, p := range participants {
		if err := p.Rollback(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.complete(StatusRolledBack)
	t.logger.Debug("transaction rolled back", "txn", t.id, "participants", len(participants))
	if len(errs) > 0 {
		return fmt.Errorf("failed to roll back transaction %s: %w", t.id, errors.Join(errs...))
	}
	return nil
}

// complete sets the final status and runs each synchronization once.
func (t *Transaction) complete(status Status) {
	t.mu.Lock()
	t.status = status
	syncs := t.syncs
	t.syncs = nil
	t.participants = nil
	t.mu.Unlock()

	for _, fn := range syncs {
		fn(status)
	}
}

type contextKey struct{}

// NewContext returns a context carrying tx.
func NewContext(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, contextKey{}, tx)
}

// FromContext returns the transaction carried by ctx, if any.
func FromContext(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(contextKey{}).(*Transaction)
	return tx, ok && tx != nil
}
