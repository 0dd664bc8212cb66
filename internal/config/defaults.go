package config

import (
	"time"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/session"
)

// Default configuration values.
const (
	DefaultLogLevel     = "info"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultAdminAddr    = ":9464"
	DefaultClusterLock  = "none"
	DefaultClusterName  = "leapstore-boot"
	DefaultClusterWait  = 30 * time.Second
	DefaultClusterPoll  = 500 * time.Millisecond
	DefaultClusterTTL   = 2 * time.Minute
	DefaultRedisAddr    = "localhost:6379"
	DefaultRepository   = "default"
	DefaultPostgresPort = 5432
	DefaultMySQLPort    = 3306
)

// Defaults returns the flat key/value defaults loaded before any file.
func Defaults() map[string]any {
	return map[string]any{
		"log_level":             DefaultLogLevel,
		"verbose":               false,
		"output":                DefaultOutput,
		"admin.enabled":         true,
		"admin.addr":            DefaultAdminAddr,
		"cluster.lock":          DefaultClusterLock,
		"cluster.name":          DefaultClusterName,
		"cluster.window":        DefaultClusterWait.String(),
		"cluster.poll_interval": DefaultClusterPoll.String(),
		"cluster.ttl":           DefaultClusterTTL.String(),
		"cluster.repository":    DefaultRepository,
		"cluster.redis.addr":    DefaultRedisAddr,
	}
}

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; if not found, returns "main" as fallback.
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(dbType); ok && d.DefaultSchema != "" {
		return d.DefaultSchema
	}
	return "main"
}

// ApplyRepositoryDefaults fills unset repository fields. Zero pool fields take
// the session defaults, except MinIdle where zero is meaningful.
func ApplyRepositoryDefaults(r *RepositoryConfig) {
	if r == nil {
		return
	}
	switch r.Type {
	case "postgres":
		if r.Port == 0 {
			r.Port = DefaultPostgresPort
		}
	case "mysql":
		if r.Port == 0 {
			r.Port = DefaultMySQLPort
		}
		// MySQL has no schemas inside a database.
		if r.Schema == "" {
			r.Schema = r.Database
		}
	}
	if r.Schema == "" {
		r.Schema = DefaultSchemaForType(r.Type)
	}

	def := session.DefaultConfig()
	p := &r.Pool
	if p.Capacity == 0 {
		p.Capacity = def.Capacity
	}
	if p.MaxWait == 0 {
		p.MaxWait = def.MaxWait
	}
	if p.IdleTimeout == 0 {
		p.IdleTimeout = def.IdleTimeout
	}
	if p.ErosionInterval == 0 {
		p.ErosionInterval = def.ErosionInterval
	}
	if p.ErosionRate == 0 {
		p.ErosionRate = def.ErosionRate
	}
}

// ApplyDefaults fills unset fields of every repository.
func (c *Config) ApplyDefaults() {
	for i := range c.Repositories {
		ApplyRepositoryDefaults(&c.Repositories[i])
	}
}
