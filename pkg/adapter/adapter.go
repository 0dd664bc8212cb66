// Package adapter provides the database adapter contract for leapstore
// repositories and the shared database/sql plumbing behind it.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves from init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// Short names for the core adapter types.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata
)

// Adapter defines the interface that all database adapters must implement.
// It connects a repository to its engine, exposes the driver pool sessions
// are drawn from and reports physical table shapes for the boot type check.
type Adapter interface {
	core.Adapter

	// Exec executes a statement that doesn't return rows, such as CREATE TABLE.
	Exec(ctx context.Context, sql string) error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	// Dialect returns the SQL dialect the repository's catalog renders through.
	Dialect() *dialect.Dialect
}
