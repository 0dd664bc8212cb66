// Package core defines the shared language of the leapstore system.
//
// This package contains:
//   - Abstract column types (ColumnType) and engine type codes (SQLType)
//   - The error taxonomy surfaced by the catalog, builders, pool and binder
//   - Static dialect configuration (DialectConfig, IdentifierConfig)
//   - The adapter contract and connection configuration
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
