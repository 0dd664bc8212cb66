package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
)

// Validate checks the configuration. Every problem is reported, not only the first.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Repositories))
	for i := range c.Repositories {
		r := &c.Repositories[i]
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("repositories[%d]: name is required", i))
		} else if seen[r.Name] {
			errs = append(errs, fmt.Errorf("repositories[%d]: duplicate repository name %q", i, r.Name))
		}
		seen[r.Name] = true

		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("repository %s: %w", r.Name, err))
		}
	}

	switch c.Cluster.Lock {
	case "", "none", "redis":
	case "sql":
		if !seen[c.Cluster.Repository] {
			errs = append(errs, fmt.Errorf("cluster.repository %q is not a configured repository", c.Cluster.Repository))
		}
	default:
		errs = append(errs, fmt.Errorf("cluster.lock must be one of none, sql, redis; got %q", c.Cluster.Lock))
	}
	if c.Cluster.Lock != "" && c.Cluster.Lock != "none" && c.Cluster.Window <= 0 {
		errs = append(errs, fmt.Errorf("cluster.window must be positive"))
	}

	return errors.Join(errs...)
}

// Validate checks a single repository.
// It uses the adapter registry to determine which adapter types are available.
func (r *RepositoryConfig) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(r.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      r.Type,
			Available: adapter.ListAdapters(),
		}
	}
	if r.Pool.Capacity < 1 {
		return fmt.Errorf("pool.capacity must be at least 1, got %d", r.Pool.Capacity)
	}
	if r.Pool.MinIdle < 0 || r.Pool.MinIdle > r.Pool.Capacity {
		return fmt.Errorf("pool.min_idle %d must be between 0 and capacity %d", r.Pool.MinIdle, r.Pool.Capacity)
	}
	if r.MaxOpenConns > 0 && r.MaxOpenConns < r.Pool.Capacity {
		return fmt.Errorf("max_open_conns %d must not be below pool.capacity %d", r.MaxOpenConns, r.Pool.Capacity)
	}
	return nil
}
