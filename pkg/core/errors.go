package core

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors surfaced by the session binder and pool.
var (
	// ErrNoActiveTransaction is returned when a session is requested outside a transaction.
	ErrNoActiveTransaction = errors.New("leapstore: no active transaction")

	// ErrTransactionDoomed is returned when the active transaction is marked rollback-only.
	ErrTransactionDoomed = errors.New("leapstore: transaction is marked rollback-only")

	// ErrPoolClosed is returned by every borrow after the pool has been closed.
	ErrPoolClosed = errors.New("leapstore: session pool is closed")

	// ErrPoolExhausted matches any *PoolExhaustedError via errors.Is.
	ErrPoolExhausted = errors.New("leapstore: session pool exhausted")

	// ErrClusterStartTimeout matches any *ClusterStartTimeoutError via errors.Is.
	ErrClusterStartTimeout = errors.New("leapstore: cluster start timeout")
)

// SchemaError reports an invalid catalog definition, such as two logical
// table names that normalize to the same physical name.
type SchemaError struct {
	Table string
	Msg   string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return "leapstore: schema: " + e.Msg
	}
	return fmt.Sprintf("leapstore: schema: table %q: %s", e.Table, e.Msg)
}

// TypeMismatchError reports a value whose shape does not fit its column,
// e.g. a scalar bound to an array column.
type TypeMismatchError struct {
	Column string
	Type   ColumnType
	Value  any
}

func (e *TypeMismatchError) Error() string {
	if e.Type.IsArray() {
		return fmt.Sprintf("leapstore: column %q of type %s requires an array value, got %T", e.Column, e.Type, e.Value)
	}
	return fmt.Sprintf("leapstore: column %q of type %s requires a scalar value, got %T", e.Column, e.Type, e.Value)
}

// BuildError reports a statement that cannot be rendered.
type BuildError struct {
	Statement string
	Msg       string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("leapstore: cannot build %s statement: %s", e.Statement, e.Msg)
}

// PoolExhaustedError is returned when no session became available within the borrow timeout.
type PoolExhaustedError struct {
	Repository string
	Capacity   int
	Timeout    time.Duration
}

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("leapstore: session pool for repository %q exhausted: all %d sessions in use after waiting %s (raise pool.capacity or pool.max_wait)",
		e.Repository, e.Capacity, e.Timeout)
}

// Is reports whether the target error matches ErrPoolExhausted.
func (e *PoolExhaustedError) Is(err error) bool {
	return err == ErrPoolExhausted
}

// ClusterStartTimeoutError is returned when the cluster-wide startup lock
// could not be obtained within the configured window.
type ClusterStartTimeoutError struct {
	Lock   string
	Window time.Duration
}

func (e *ClusterStartTimeoutError) Error() string {
	return fmt.Sprintf("leapstore: could not acquire cluster lock %q within %s", e.Lock, e.Window)
}

// Is reports whether the target error matches ErrClusterStartTimeout.
func (e *ClusterStartTimeoutError) Is(err error) bool {
	return err == ErrClusterStartTimeout
}
