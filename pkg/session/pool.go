package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// Config sizes the pool of one repository.
type Config struct {
	// Capacity bounds the sessions in use at once.
	Capacity int
	// MinIdle idle sessions are never eroded.
	MinIdle int
	// MaxWait bounds how long Borrow waits for capacity.
	MaxWait time.Duration
	// IdleTimeout is how long a session may sit idle before erosion.
	IdleTimeout time.Duration
	// ErosionInterval is the reaper period; zero disables erosion.
	ErosionInterval time.Duration
	// ErosionRate caps destroyed sessions per second.
	ErosionRate float64
}

// DefaultConfig returns the pool defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:        20,
		MinIdle:         2,
		MaxWait:         5 * time.Second,
		IdleTimeout:     5 * time.Minute,
		ErosionInterval: 30 * time.Second,
		ErosionRate:     10,
	}
}

// Stats is a snapshot of one repository pool.
type Stats struct {
	Repository     string `json:"repository"`
	Capacity       int    `json:"capacity"`
	Active         int    `json:"active"`
	Idle           int    `json:"idle"`
	Borrowed       uint64 `json:"borrowed_total"`
	BorrowTimeouts uint64 `json:"borrow_timeouts_total"`
	Destroyed      uint64 `json:"destroyed_total"`
}

// repoPool is the pool of a single repository.
type repoPool struct {
	name    string
	db      *sql.DB
	dialect *dialect.Dialect
	cfg     Config
	sem     *semaphore.Weighted
	limiter *rate.Limiter

	mu     sync.Mutex
	idle   []*Session // LIFO: most recently returned last
	active int
	closed bool

	borrowed  atomic.Uint64
	timeouts  atomic.Uint64
	destroyed atomic.Uint64
}

// Pool holds the session pools of every repository.
type Pool struct {
	logger *slog.Logger

	mu     sync.RWMutex
	repos  map[string]*repoPool
	closed bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPool creates an empty pool.
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pool{
		logger: logger,
		repos:  make(map[string]*repoPool),
		stop:   make(chan struct{}),
	}
}

// Register adds a repository. Sessions are drawn from db.
func (p *Pool) Register(name string, db *sql.DB, d *dialect.Dialect, cfg Config) error {
	if cfg.Capacity < 1 {
		return fmt.Errorf("repository %s: pool capacity must be at least 1, got %d", name, cfg.Capacity)
	}
	if cfg.MinIdle > cfg.Capacity {
		return fmt.Errorf("repository %s: pool min_idle %d exceeds capacity %d", name, cfg.MinIdle, cfg.Capacity)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return core.ErrPoolClosed
	}
	if _, ok := p.repos[name]; ok {
		return fmt.Errorf("repository %s already registered", name)
	}

	burst := int(cfg.ErosionRate)
	if burst < 1 {
		burst = 1
	}
	rp := &repoPool{
		name:    name,
		db:      db,
		dialect: d,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.Capacity)),
		limiter: rate.NewLimiter(rate.Limit(cfg.ErosionRate), burst),
	}
	p.repos[name] = rp

	if cfg.ErosionInterval > 0 && cfg.ErosionRate > 0 {
		p.wg.Add(1)
		go p.erosionLoop(rp)
	}
	p.logger.Info("session pool registered",
		slog.String("repository", name),
		slog.Int("capacity", cfg.Capacity),
		slog.Duration("max_wait", cfg.MaxWait))
	return nil
}

func (p *Pool) repo(name string) (*repoPool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, core.ErrPoolClosed
	}
	rp, ok := p.repos[name]
	if !ok {
		return nil, fmt.Errorf("unknown repository %q", name)
	}
	return rp, nil
}

// Borrow takes a session of repo, waiting up to MaxWait for capacity.
// The wait also ends when ctx is done.
func (p *Pool) Borrow(ctx context.Context, repo string) (*Session, error) {
	rp, err := p.repo(repo)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx
	if rp.cfg.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, rp.cfg.MaxWait)
		defer cancel()
	}
	if err := rp.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, p.exhausted(rp)
	}

	rp.mu.Lock()
	if rp.closed {
		rp.mu.Unlock()
		rp.sem.Release(1)
		return nil, core.ErrPoolClosed
	}
	var s *Session
	if n := len(rp.idle); n > 0 {
		s = rp.idle[n-1]
		rp.idle = rp.idle[:n-1]
	}
	rp.active++
	rp.mu.Unlock()

	if s == nil {
		// The driver pool may be smaller than the session pool, so opening
		// the connection waits under the same MaxWait bound.
		s, err = newSession(waitCtx, rp.db, rp.name, rp.dialect, p.logger)
		if err != nil {
			rp.mu.Lock()
			rp.active--
			rp.mu.Unlock()
			rp.sem.Release(1)
			if ctx.Err() == nil && waitCtx.Err() != nil {
				return nil, p.exhausted(rp)
			}
			return nil, err
		}
	}
	rp.borrowed.Add(1)
	return s, nil
}

func (p *Pool) exhausted(rp *repoPool) error {
	rp.timeouts.Add(1)
	p.logger.Warn("session pool exhausted",
		slog.String("repository", rp.name),
		slog.Int("capacity", rp.cfg.Capacity),
		slog.Duration("waited", rp.cfg.MaxWait))
	return &core.PoolExhaustedError{Repository: rp.name, Capacity: rp.cfg.Capacity, Timeout: rp.cfg.MaxWait}
}

// Return gives a session back for reuse. A session with an open database
// transaction is destroyed instead.
func (p *Pool) Return(s *Session) {
	if s.InTransaction() {
		p.Invalidate(s)
		return
	}
	rp, ok := p.lookup(s.repo)
	if !ok {
		s.destroy()
		return
	}

	rp.mu.Lock()
	rp.active--
	if rp.closed {
		rp.mu.Unlock()
		rp.destroyed.Add(1)
		s.destroy()
		rp.sem.Release(1)
		return
	}
	s.returned = time.Now()
	rp.idle = append(rp.idle, s)
	rp.mu.Unlock()
	rp.sem.Release(1)
}

// Invalidate destroys a borrowed session; it is never reused.
func (p *Pool) Invalidate(s *Session) {
	rp, ok := p.lookup(s.repo)
	s.destroy()
	if !ok {
		return
	}
	rp.mu.Lock()
	rp.active--
	rp.mu.Unlock()
	rp.destroyed.Add(1)
	rp.sem.Release(1)
}

// lookup finds a repository pool even after Close.
func (p *Pool) lookup(name string) (*repoPool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rp, ok := p.repos[name]
	return rp, ok
}

// Stats returns a snapshot for one repository.
func (p *Pool) Stats(repo string) (Stats, bool) {
	rp, ok := p.lookup(repo)
	if !ok {
		return Stats{}, false
	}
	return rp.stats(), true
}

// AllStats returns snapshots for every repository, sorted by name.
func (p *Pool) AllStats() []Stats {
	p.mu.RLock()
	repos := make([]*repoPool, 0, len(p.repos))
	for _, rp := range p.repos {
		repos = append(repos, rp)
	}
	p.mu.RUnlock()

	out := make([]Stats, len(repos))
	for i, rp := range repos {
		out[i] = rp.stats()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Repository < out[j].Repository })
	return out
}

func (rp *repoPool) stats() Stats {
	rp.mu.Lock()
	active, idle := rp.active, len(rp.idle)
	rp.mu.Unlock()
	return Stats{
		Repository:     rp.name,
		Capacity:       rp.cfg.Capacity,
		Active:         active,
		Idle:           idle,
		Borrowed:       rp.borrowed.Load(),
		BorrowTimeouts: rp.timeouts.Load(),
		Destroyed:      rp.destroyed.Load(),
	}
}

// Close stops erosion and destroys idle sessions. Borrowed sessions are
// destroyed when they come back. Later borrows fail with core.ErrPoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	repos := make([]*repoPool, 0, len(p.repos))
	for _, rp := range p.repos {
		repos = append(repos, rp)
	}
	p.mu.Unlock()

	p.wg.Wait()

	for _, rp := range repos {
		rp.mu.Lock()
		rp.closed = true
		idle := rp.idle
		rp.idle = nil
		rp.mu.Unlock()
		for _, s := range idle {
			s.destroy()
			rp.destroyed.Add(1)
		}
		p.logger.Debug("session pool closed", slog.String("repository", rp.name), slog.Int("destroyed", len(idle)))
	}
	return nil
}

func (p *Pool) erosionLoop(rp *repoPool) {
	defer p.wg.Done()
	ticker := time.NewTicker(rp.cfg.ErosionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case now := <-ticker.C:
			if n := rp.erode(now); n > 0 {
				p.logger.Debug("eroded idle sessions", slog.String("repository", rp.name), slog.Int("count", n))
			}
		}
	}
}

// erode destroys idle sessions above MinIdle that have been idle longer than
// IdleTimeout, oldest first, as far as the rate limiter allows.
func (rp *repoPool) erode(now time.Time) int {
	rp.mu.Lock()
	var victims []*Session
	keep := rp.idle[:0:0]
	excess := len(rp.idle) - rp.cfg.MinIdle
	for _, s := range rp.idle {
		if excess > 0 && now.Sub(s.returned) >= rp.cfg.IdleTimeout && rp.limiter.AllowN(now, 1) {
			victims = append(victims, s)
			excess--
			continue
		}
		keep = append(keep, s)
	}
	rp.idle = keep
	rp.mu.Unlock()

	for _, s := range victims {
		s.destroy()
		rp.destroyed.Add(1)
	}
	return len(victims)
}
