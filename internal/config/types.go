// Package config provides the configuration types for leapstore.
// This package is decoupled from CLI concerns: internal/cli/config layers
// flags and environment on top of it, tests build Config values directly.
package config

import (
	"time"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/session"
)

// Config is the complete leapstore configuration.
type Config struct {
	LogLevel     string             `koanf:"log_level"`
	Verbose      bool               `koanf:"verbose"`
	Output       string             `koanf:"output"`
	Admin        AdminConfig        `koanf:"admin"`
	Cluster      ClusterConfig      `koanf:"cluster"`
	Repositories []RepositoryConfig `koanf:"repositories"`
}

// AdminConfig configures the read-only admin HTTP server.
type AdminConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// ClusterConfig configures the startup lock shared by all nodes.
type ClusterConfig struct {
	Lock         string        `koanf:"lock"` // none, sql, redis
	Name         string        `koanf:"name"`
	Window       time.Duration `koanf:"window"`
	PollInterval time.Duration `koanf:"poll_interval"`
	TTL          time.Duration `koanf:"ttl"`
	// Repository hosts the lock table when Lock is "sql".
	Repository string      `koanf:"repository"`
	Redis      RedisConfig `koanf:"redis"`
}

// RedisConfig locates the Redis server used by the redis cluster lock.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// RepositoryConfig describes one repository: its database, its catalog
// descriptor and its session pool.
type RepositoryConfig struct {
	Name string `koanf:"name"`
	Type string `koanf:"type"` // postgres, mysql, sqlite, duckdb

	// File-based databases (DuckDB, SQLite)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Schema is the database schema the tables live in.
	Schema       string `koanf:"schema"`
	MaxOpenConns int    `koanf:"max_open_conns"`

	// Catalog is the path of the YAML table descriptor.
	Catalog      string `koanf:"catalog"`
	Watch        bool   `koanf:"watch"`
	CreateTables bool   `koanf:"create_tables"`

	Pool PoolConfig `koanf:"pool"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// PoolConfig sizes a repository's session pool.
type PoolConfig struct {
	Capacity        int           `koanf:"capacity"`
	MinIdle         int           `koanf:"min_idle"`
	MaxWait         time.Duration `koanf:"max_wait"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ErosionInterval time.Duration `koanf:"erosion_interval"`
	ErosionRate     float64       `koanf:"erosion_rate"`
}

// AdapterConfig converts r into the adapter connection settings.
func (r *RepositoryConfig) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:         r.Type,
		Path:         r.Path,
		Host:         r.Host,
		Port:         r.Port,
		Database:     r.Database,
		Username:     r.User,
		Password:     r.Password,
		Schema:       r.Schema,
		MaxOpenConns: r.MaxOpenConns,
		Options:      r.Options,
		Params:       r.Params,
	}
}

// SessionConfig converts p into session pool settings.
func (p PoolConfig) SessionConfig() session.Config {
	return session.Config{
		Capacity:        p.Capacity,
		MinIdle:         p.MinIdle,
		MaxWait:         p.MaxWait,
		IdleTimeout:     p.IdleTimeout,
		ErosionInterval: p.ErosionInterval,
		ErosionRate:     p.ErosionRate,
	}
}
