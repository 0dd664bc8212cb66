// Package repository owns the lifecycle of the repositories sessions are drawn
// from: connecting adapters, building catalogs, the boot type check, the
// ordered start handlers and the session pool, all under the cluster lock.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapstore/internal/catalog"
	"github.com/leapstack-labs/leapstore/internal/cluster"
	"github.com/leapstack-labs/leapstore/internal/config"
	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
	"github.com/leapstack-labs/leapstore/pkg/session"
	"github.com/leapstack-labs/leapstore/pkg/txn"
)

// Repository is one connected repository and its catalog.
type Repository struct {
	Config  config.RepositoryConfig
	Adapter adapter.Adapter
	Catalog *catalog.Catalog
}

// Name returns the repository name.
func (r *Repository) Name() string { return r.Config.Name }

// Dialect returns the repository's dialect.
func (r *Repository) Dialect() *dialect.Dialect { return r.Adapter.Dialect() }

// Database returns the catalog currently in effect.
func (r *Repository) Database() *schema.Database { return r.Catalog.Current() }

type state int

const (
	stateNew state = iota
	stateStarting
	stateRunning
	stateStopped
)

// Manager boots and shuts down every configured repository.
type Manager struct {
	cfg      *config.Config
	logger   *slog.Logger
	handlers *Handlers
	lock     cluster.Lock

	txns   *txn.Manager
	pool   *session.Pool
	binder *session.Binder

	mu         sync.RWMutex
	state      state
	repos      []*Repository
	byName     map[string]*Repository
	mismatches map[string][]schema.Mismatch
	started    []namedHandler
	redis      *redis.Client

	cancelWatch context.CancelFunc
	watchWG     sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithHandlers sets the handler list run at start and shutdown.
func WithHandlers(h *Handlers) Option {
	return func(m *Manager) { m.handlers = h }
}

// WithLock replaces the cluster lock built from configuration.
func WithLock(l cluster.Lock) Option {
	return func(m *Manager) { m.lock = l }
}

// NewManager creates a manager for cfg. cfg must be validated.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool := session.NewPool(logger)
	m := &Manager{
		cfg:        cfg,
		logger:     logger,
		handlers:   &Handlers{},
		txns:       txn.NewManager(logger),
		pool:       pool,
		binder:     session.NewBinder(pool, logger),
		byName:     make(map[string]*Repository),
		mismatches: make(map[string][]schema.Mismatch),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handlers returns the handler list.
func (m *Manager) Handlers() *Handlers { return m.handlers }

// Transactions returns the transaction manager.
func (m *Manager) Transactions() *txn.Manager { return m.txns }

// Pool returns the session pool.
func (m *Manager) Pool() *session.Pool { return m.pool }

// Binder returns the session binder.
func (m *Manager) Binder() *session.Binder { return m.binder }

// Repository returns a started repository by name.
func (m *Manager) Repository(name string) (*Repository, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byName[name]
	return r, ok
}

// Repositories returns every repository in configuration order.
func (m *Manager) Repositories() []*Repository {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Repository(nil), m.repos...)
}

// Mismatches returns the boot type check findings keyed by repository.
func (m *Manager) Mismatches() map[string][]schema.Mismatch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]schema.Mismatch, len(m.mismatches))
	for k, v := range m.mismatches {
		out[k] = v
	}
	return out
}

// Start connects every repository, then builds catalogs, runs the type check,
// optional table creation and the start handlers while holding the cluster
// lock, and finally opens the session pools. If the lock cannot be taken in
// time the error is a *core.ClusterStartTimeoutError.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != stateNew {
		m.mu.Unlock()
		return errors.New("repository manager already started")
	}
	m.state = stateStarting
	m.mu.Unlock()

	if err := m.start(ctx); err != nil {
		m.mu.Lock()
		m.state = stateStopped
		m.mu.Unlock()
		return errors.Join(err, m.shutdownHandlers(context.WithoutCancel(ctx)), m.closeResources())
	}

	m.mu.Lock()
	m.state = stateRunning
	m.mu.Unlock()
	m.logger.Info("repositories started", slog.Int("count", len(m.repos)))
	return nil
}

func (m *Manager) start(ctx context.Context) error {
	if err := m.connectAll(ctx); err != nil {
		return err
	}

	lock, err := m.clusterLock(ctx)
	if err != nil {
		return err
	}
	err = cluster.RunExclusive(ctx, lock, m.cfg.Cluster.Window, m.cfg.Cluster.PollInterval, m.logger, m.initialize)
	if err != nil {
		return err
	}

	for _, r := range m.repos {
		if err := m.pool.Register(r.Name(), r.Adapter.SQLDB(), r.Dialect(), r.Config.Pool.SessionConfig()); err != nil {
			return err
		}
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancelWatch = cancel
	for _, r := range m.repos {
		if !r.Config.Watch || r.Catalog.Path() == "" {
			continue
		}
		m.watchWG.Add(1)
		go func(r *Repository) {
			defer m.watchWG.Done()
			if err := r.Catalog.Watch(watchCtx); err != nil {
				m.logger.Warn("catalog watch stopped", slog.String("repository", r.Name()), slog.Any("error", err))
			}
		}(r)
	}
	return nil
}

// connectAll opens every repository adapter in parallel.
func (m *Manager) connectAll(ctx context.Context) error {
	repos := make([]*Repository, len(m.cfg.Repositories))
	g, gctx := errgroup.WithContext(ctx)
	for i := range m.cfg.Repositories {
		rc := m.cfg.Repositories[i]
		g.Go(func() error {
			a, err := adapter.Open(gctx, rc.AdapterConfig(), m.logger.With(slog.String("repository", rc.Name)))
			if err != nil {
				return fmt.Errorf("repository %s: %w", rc.Name, err)
			}
			repos[i] = &Repository{Config: rc, Adapter: a}
			return nil
		})
	}
	err := g.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range repos {
		if r == nil {
			continue
		}
		m.repos = append(m.repos, r)
		m.byName[r.Name()] = r
	}
	return err
}

func (m *Manager) clusterLock(ctx context.Context) (cluster.Lock, error) {
	if m.lock != nil {
		return m.lock, nil
	}
	cc := m.cfg.Cluster
	switch cc.Lock {
	case "", "none":
		return cluster.NoopLock{LockName: cc.Name}, nil
	case "sql":
		r, ok := m.byName[cc.Repository]
		if !ok {
			return nil, fmt.Errorf("cluster lock repository %s is not configured", cc.Repository)
		}
		l := cluster.NewSQLLock(r.Adapter.SQLDB(), r.Dialect(), cc.Name, cc.TTL, m.logger)
		if err := l.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("cluster lock: %w", err)
		}
		return l, nil
	case "redis":
		client, err := cluster.OpenRedis(ctx, cluster.RedisOptions{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("cluster lock: %w", err)
		}
		m.mu.Lock()
		m.redis = client
		m.mu.Unlock()
		return cluster.NewRedisLock(client, cc.Name, cc.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cluster lock %q", cc.Lock)
	}
}

// initialize runs under the cluster lock.
func (m *Manager) initialize(ctx context.Context) error {
	for _, r := range m.repos {
		if err := m.prepare(ctx, r, r.Config.CreateTables); err != nil {
			return err
		}
	}

	for _, nh := range m.handlers.snapshot() {
		m.logger.Debug("running start handler", slog.String("handler", nh.name))
		if err := nh.handler.OnStart(ctx, m); err != nil {
			return fmt.Errorf("start handler %s: %w", nh.name, err)
		}
		m.mu.Lock()
		m.started = append(m.started, nh)
		m.mu.Unlock()
	}
	return nil
}

// prepare builds the catalog of r, optionally creates its tables and runs the
// type check.
func (m *Manager) prepare(ctx context.Context, r *Repository, createTables bool) error {
	logger := m.logger.With(slog.String("repository", r.Name()))
	if r.Config.Catalog != "" {
		c, err := catalog.Open(r.Config.Catalog, r.Dialect(), logger)
		if err != nil {
			return fmt.Errorf("repository %s: %w", r.Name(), err)
		}
		r.Catalog = c
	} else {
		r.Catalog = catalog.FromDatabase(schema.NewDatabase(r.Dialect()))
	}
	db := r.Database()

	if createTables {
		for _, t := range db.Tables() {
			if err := r.Adapter.Exec(ctx, t.CreateSQL()); err != nil {
				return fmt.Errorf("repository %s: failed to create table %s: %w", r.Name(), t.PhysicalName(), err)
			}
		}
		logger.Info("tables created", slog.Int("tables", len(db.Tables())))
	}

	mismatches, err := schema.CheckTypes(ctx, db, r.Adapter, logger)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.mismatches[r.Name()] = mismatches
	m.mu.Unlock()

	r.Catalog.OnReload(func(db *schema.Database) {
		mm, err := schema.CheckTypes(context.Background(), db, r.Adapter, logger)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.mismatches[r.Name()] = mm
		m.mu.Unlock()
	})
	return nil
}

// Inspect connects every repository, builds its catalog and runs the type
// check without taking the cluster lock, creating tables or opening pools.
// The adapters are closed before it returns.
func (m *Manager) Inspect(ctx context.Context) (map[string][]schema.Mismatch, error) {
	m.mu.Lock()
	if m.state != stateNew {
		m.mu.Unlock()
		return nil, errors.New("repository manager already started")
	}
	m.state = stateStopped
	m.mu.Unlock()

	err := m.connectAll(ctx)
	if err == nil {
		for _, r := range m.repos {
			if err = m.prepare(ctx, r, false); err != nil {
				break
			}
		}
	}
	if cerr := m.closeResources(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return nil, err
	}
	return m.Mismatches(), nil
}

// Shutdown runs the shutdown handlers in reverse start order, closes the
// session pool and every repository. All errors are reported.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.state != stateRunning {
		m.mu.Unlock()
		return nil
	}
	m.state = stateStopped
	m.mu.Unlock()

	err := errors.Join(m.shutdownHandlers(ctx), m.closeResources())
	if err != nil {
		m.logger.Warn("repository shutdown finished with errors", slog.Any("error", err))
	} else {
		m.logger.Info("repositories stopped")
	}
	return err
}

// shutdownHandlers runs OnShutdown of every started handler, last started first.
func (m *Manager) shutdownHandlers(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		nh := started[i]
		if err := nh.handler.OnShutdown(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("shutdown handler %s: %w", nh.name, err))
		}
	}
	return errors.Join(errs...)
}

// closeResources stops watchers and closes the pool, the adapters and the
// redis client.
func (m *Manager) closeResources() error {
	if m.cancelWatch != nil {
		m.cancelWatch()
	}
	m.watchWG.Wait()

	var errs []error
	if err := m.pool.Close(); err != nil {
		errs = append(errs, err)
	}

	m.mu.RLock()
	repos := append([]*Repository(nil), m.repos...)
	client := m.redis
	m.mu.RUnlock()

	for _, r := range repos {
		if err := r.Adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("repository %s: failed to close: %w", r.Name(), err))
		}
	}
	if client != nil {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Names returns the configured repository names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.cfg.Repositories))
	for _, r := range m.cfg.Repositories {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}
