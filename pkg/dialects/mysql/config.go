// Package mysql provides the MySQL SQL dialect definition.
package mysql

import "github.com/leapstack-labs/leapstore/pkg/core"

// Config is the MySQL dialect configuration.
var Config = &core.DialectConfig{
	Name:          "mysql",
	DefaultSchema: "",
	Placeholder:   core.PlaceholderQuestion,
	Identifiers: core.IdentifierConfig{
		Quote:         "`",
		QuoteEnd:      "`",
		Escape:        "``",
		Normalization: core.NormLowercase, // portable with lower_case_table_names
	},
	Arrays: core.ArrayJSON,
}
