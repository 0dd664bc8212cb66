package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data with no behavior.
//
// The type mapping, conversion and cast tables live in
// pkg/dialect.Dialect, which embeds this config.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "duckdb", "postgres")
	Name string

	// Identifiers defines quoting and normalization rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// Arrays defines how array columns are stored and bound
	Arrays ArrayStorage

	// UpdateFromRepeatSelf is true when UPDATE ... FROM must list the target table again
	UpdateFromRepeatSelf bool
}

// NormalizationStrategy defines how unquoted identifiers are normalized.
type NormalizationStrategy int

const (
	// NormLowercase normalizes unquoted identifiers to lowercase (default SQL behavior).
	NormLowercase NormalizationStrategy = iota
	// NormUppercase normalizes unquoted identifiers to uppercase (Oracle, H2).
	NormUppercase
	// NormCaseSensitive preserves identifier case exactly.
	NormCaseSensitive
	// NormCaseInsensitive normalizes to lowercase for comparison (DuckDB, SQLite).
	NormCaseInsensitive
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted and normalized.
type IdentifierConfig struct {
	Quote         string                // Quote character: ", `, [
	QuoteEnd      string                // End quote character (usually same as Quote, ] for [)
	Escape        string                // Escape sequence: "", ``, ]]
	Normalization NormalizationStrategy // How to normalize unquoted identifiers
}

// ArrayStorage defines how a dialect persists array columns.
type ArrayStorage int

const (
	// ArrayNative uses the engine's own array type (PostgreSQL).
	ArrayNative ArrayStorage = iota
	// ArrayJSON stores arrays as JSON text (MySQL, SQLite, DuckDB).
	ArrayJSON
)

func (a ArrayStorage) String() string {
	switch a {
	case ArrayNative:
		return "native"
	case ArrayJSON:
		return "json"
	default:
		return "unknown"
	}
}
