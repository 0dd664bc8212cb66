// Package cluster provides the "run exactly once across nodes" primitive used
// while repositories are created at boot.
//
// A Lock is a named, expiring mutual exclusion shared by every node. RunExclusive
// polls it for a bounded window and runs a function while holding it.
// Implementations: NoopLock for single-node deployments, SQLLock backed by a
// table in one of the repositories, RedisLock backed by SET NX.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Lock is a cluster-wide lock.
type Lock interface {
	// Name identifies the lock across nodes.
	Name() string
	// TryLock attempts to take the lock without waiting.
	TryLock(ctx context.Context) (bool, error)
	// Unlock releases the lock if this holder owns it.
	Unlock(ctx context.Context) error
}

// Renewer is implemented by locks that expire. RunExclusive extends the
// lock every third of its TTL while the guarded function runs.
type Renewer interface {
	TTL() time.Duration
	// Extend pushes the expiry one TTL ahead. It reports false when this
	// holder no longer owns the lock.
	Extend(ctx context.Context) (bool, error)
}

// ErrLockLost is the cancellation cause seen by the guarded function when
// its lock expired and was taken over.
var ErrLockLost = errors.New("cluster lock lost")

// NoopLock always succeeds.
type NoopLock struct {
	LockName string
}

// Name implements Lock.
func (l NoopLock) Name() string { return l.LockName }

// TryLock implements Lock.
func (NoopLock) TryLock(context.Context) (bool, error) { return true, nil }

// Unlock implements Lock.
func (NoopLock) Unlock(context.Context) error { return nil }

// RunExclusive runs fn while holding lock. The lock is polled every poll
// interval; if it cannot be taken within window the result is a
// *core.ClusterStartTimeoutError and fn never runs. A lock implementing
// Renewer is kept alive until fn returns; if it is lost, fn's context is
// canceled with ErrLockLost.
func RunExclusive(ctx context.Context, lock Lock, window, poll time.Duration, logger *slog.Logger, fn func(ctx context.Context) error) (err error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}

	waitCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	start := time.Now()
	for {
		ok, lerr := lock.TryLock(ctx)
		if lerr != nil {
			return fmt.Errorf("failed to acquire cluster lock %s: %w", lock.Name(), lerr)
		}
		if ok {
			break
		}
		logger.Debug("cluster lock busy, waiting", slog.String("lock", lock.Name()))

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &core.ClusterStartTimeoutError{Lock: lock.Name(), Window: window}
		case <-ticker.C:
		}
	}
	logger.Info("cluster lock acquired",
		slog.String("lock", lock.Name()),
		slog.Duration("waited", time.Since(start)))

	defer func() {
		if uerr := lock.Unlock(context.WithoutCancel(ctx)); uerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to release cluster lock %s: %w", lock.Name(), uerr))
			return
		}
		logger.Debug("cluster lock released", slog.String("lock", lock.Name()))
	}()

	r, ok := lock.(Renewer)
	if !ok || r.TTL() <= 0 {
		return fn(ctx)
	}
	fnCtx, cancelFn := context.WithCancelCause(ctx)
	defer cancelFn(nil)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		keepAlive(fnCtx, lock.Name(), r, done, logger, cancelFn)
	}()

	err = fn(fnCtx)
	close(done)
	<-stopped
	if err != nil && errors.Is(context.Cause(fnCtx), ErrLockLost) {
		err = errors.Join(err, ErrLockLost)
	}
	return err
}

// keepAlive extends r until done is closed or the lock is lost. Extend
// errors are retried on the next tick.
func keepAlive(ctx context.Context, name string, r Renewer, done <-chan struct{}, logger *slog.Logger, lost context.CancelCauseFunc) {
	interval := r.TTL() / 3
	if interval <= 0 {
		interval = r.TTL()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		ok, err := r.Extend(ctx)
		if err != nil {
			logger.Warn("failed to extend cluster lock", slog.String("lock", name), slog.Any("error", err))
			continue
		}
		if !ok {
			logger.Error("cluster lock lost while held", slog.String("lock", name))
			lost(ErrLockLost)
			return
		}
		logger.Debug("cluster lock extended", slog.String("lock", name))
	}
}
