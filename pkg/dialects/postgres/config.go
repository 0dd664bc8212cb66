// Package postgres provides the PostgreSQL SQL dialect definition.
package postgres

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the PostgreSQL dialect configuration.
// This is pure data - the type tables live in dialect.go.
var Config = &core.DialectConfig{
	Name:          "postgres",
	DefaultSchema: "public",
	Placeholder:   core.PlaceholderDollar,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormLowercase, // Postgres normalizes unquoted to lowercase
	},
	Arrays: core.ArrayNative,
}
