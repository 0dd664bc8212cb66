// Package sqlite provides the SQLite SQL dialect definition.
package sqlite

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the SQLite dialect configuration.
var Config = &core.DialectConfig{
	Name:          "sqlite",
	DefaultSchema: "main",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Escape:        `""`,
		Normalization: core.NormCaseInsensitive,
	},
	Arrays: core.ArrayJSON,
}
