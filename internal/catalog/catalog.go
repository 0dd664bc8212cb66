package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// Catalog is the current *schema.Database of one repository. A reload builds
// a new Database and swaps it in whole; a failed reload keeps the previous one.
type Catalog struct {
	path    string
	dialect *dialect.Dialect
	logger  *slog.Logger
	current atomic.Pointer[schema.Database]

	mu        sync.Mutex
	listeners []func(*schema.Database)
}

// Open loads the descriptor at path and builds the catalog.
func Open(path string, d *dialect.Dialect, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Catalog{path: path, dialect: d, logger: logger}
	db, err := c.build()
	if err != nil {
		return nil, err
	}
	c.current.Store(db)
	return c, nil
}

// FromDatabase wraps an already built catalog; it cannot be reloaded.
func FromDatabase(db *schema.Database) *Catalog {
	c := &Catalog{dialect: db.Dialect(), logger: slog.New(slog.DiscardHandler)}
	c.current.Store(db)
	return c
}

// Path returns the descriptor path, empty for FromDatabase catalogs.
func (c *Catalog) Path() string { return c.path }

// Current returns the catalog in effect.
func (c *Catalog) Current() *schema.Database {
	return c.current.Load()
}

// OnReload registers fn to run after each successful reload.
func (c *Catalog) OnReload(fn func(*schema.Database)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Catalog) build() (*schema.Database, error) {
	desc, err := Load(c.path)
	if err != nil {
		return nil, err
	}
	db, err := desc.Build(c.dialect)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", c.path, err)
	}
	return db, nil
}

// Reload rebuilds the catalog from disk.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return fmt.Errorf("catalog has no descriptor file")
	}
	db, err := c.build()
	if err != nil {
		c.logger.Warn("catalog reload failed, keeping previous catalog",
			slog.String("path", c.path), slog.Any("error", err))
		return err
	}
	c.current.Store(db)
	c.logger.Info("catalog reloaded", slog.String("path", c.path), slog.Int("tables", len(db.Tables())))

	c.mu.Lock()
	listeners := append([]func(*schema.Database){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(db)
	}
	return nil
}

// Watch reloads the catalog whenever its descriptor changes, until ctx is
// done. The directory is watched rather than the file so that editors which
// replace the file on save are followed.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		return fmt.Errorf("catalog has no descriptor file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(c.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch catalog dir: %w", err)
	}
	c.logger.Debug("watching catalog", slog.String("path", target))

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				_ = c.Reload()
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("catalog watcher error", slog.Any("error", err))
		}
	}
}
