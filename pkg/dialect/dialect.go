// Package dialect provides the per-engine SQL strategy used by the schema catalog.
//
// A Dialect is a fixed capability table: abstract type resolution, identifier
// quoting and casing, placeholders, the id-to-string cast, the list of
// acceptable physical type substitutions and the UPDATE ... FROM shape.
// Concrete dialects are built with the Builder and registered from
// pkg/dialects/*/ packages; there is no per-engine subclassing.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// TypeInfo is the concrete engine type an abstract column type resolves to.
// For array types ArrayBase/ArrayBaseName describe the element type.
type TypeInfo struct {
	Type          core.SQLType
	Name          string
	ArrayBase     core.SQLType
	ArrayBaseName string
}

// Conversion declares that a column expected to be of type Expected may
// physically be of type Actual.
type Conversion struct {
	Expected core.SQLType
	Actual   core.SQLType
	// ActualName, when set, must match the reported type name (case-insensitive).
	ActualName string
	// MinSize, when positive, is the minimum reported column size.
	MinSize int
}

func (c Conversion) matches(expected, actual core.SQLType, actualName string, actualSize int) bool {
	if c.Expected != expected || c.Actual != actual {
		return false
	}
	if c.ActualName != "" && !strings.EqualFold(c.ActualName, actualName) {
		return false
	}
	if c.MinSize > 0 && actualSize < c.MinSize {
		return false
	}
	return true
}

// UpdateFromStyle selects how UPDATE statements reference additional tables.
type UpdateFromStyle int

const (
	// UpdateFromClause renders "UPDATE t SET ... FROM a, b WHERE ...".
	UpdateFromClause UpdateFromStyle = iota
	// UpdateFromRepeatSelf renders "UPDATE t SET ... FROM t, a, b WHERE ...".
	UpdateFromRepeatSelf
	// UpdateMultiTable renders "UPDATE t, a, b SET ... WHERE ..." (MySQL).
	UpdateMultiTable
)

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters
	Arrays        core.ArrayStorage     // How array columns are stored
	UpdateFrom    UpdateFromStyle       // How UPDATE references extra tables

	types         map[core.ColumnType]TypeInfo
	typeNames     map[string]core.SQLType
	freeVariables map[core.ColumnType]string
	conversions   []Conversion
	castIDFormat  string
	reservedWords map[string]struct{}
	arrayBinder   func(value any) any
	arrayScanner  func(dest any) any
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	return &core.DialectConfig{
		Name:                 d.Name,
		Identifiers:          d.Identifiers,
		DefaultSchema:        d.DefaultSchema,
		Placeholder:          d.Placeholder,
		Arrays:               d.Arrays,
		UpdateFromRepeatSelf: d.UpdateFrom == UpdateFromRepeatSelf,
	}
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// Resolve maps an abstract column type to its engine type.
// The result depends only on t, so repeated calls return identical values.
func (d *Dialect) Resolve(t core.ColumnType) (TypeInfo, bool) {
	info, ok := d.types[t]
	return info, ok
}

// SQLTypeOf maps a type name reported by the engine (e.g. "character varying",
// "varchar(36)") to an engine type code. Unknown names map to core.SQLOther.
func (d *Dialect) SQLTypeOf(name string) core.SQLType {
	key := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(key, '('); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	if strings.HasSuffix(key, "[]") || key == "array" {
		return core.SQLArray
	}
	if t, ok := d.typeNames[key]; ok {
		return t
	}
	return core.SQLOther
}

// IsAllowedConversion reports whether a column expected to be of type
// expected can be physically stored as actual.
func (d *Dialect) IsAllowedConversion(expected, actual core.SQLType, actualName string, actualSize int) bool {
	for _, c := range d.conversions {
		if c.matches(expected, actual, actualName, actualSize) {
			return true
		}
	}
	return false
}

// UpdateFromRepeatSelf reports whether UPDATE ... FROM must list the target table again.
func (d *Dialect) UpdateFromRepeatSelf() bool {
	return d.UpdateFrom == UpdateFromRepeatSelf
}

// CastIDToVarchar wraps an identifier expression so it compares as a string.
func (d *Dialect) CastIDToVarchar(expr string) string {
	return fmt.Sprintf(d.castIDFormat, expr)
}

// FreeVariable returns the placeholder text used for a value of type t.
// Placeholders are always written with "?"; Rebind converts them for the engine.
func (d *Dialect) FreeVariable(t core.ColumnType) string {
	if fv, ok := d.freeVariables[t]; ok {
		return fv
	}
	return "?"
}

// NormalizeName normalizes an identifier according to dialect rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		// Casers hold state, so each call gets its own.
		return cases.Upper(language.Und).String(name)
	case core.NormLowercase, core.NormCaseInsensitive:
		return cases.Lower(language.Und).String(name)
	default: // NormCaseSensitive
		return name
	}
}

// PhysicalName derives the physical table or column name for a logical name:
// dialect casing first, then ':' becomes '_'.
func (d *Dialect) PhysicalName(logical string) string {
	return strings.ReplaceAll(d.NormalizeName(logical), ":", "_")
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// TypeDDL returns the column type text used in CREATE TABLE for t.
func (d *Dialect) TypeDDL(t core.ColumnType) string {
	info, ok := d.types[t]
	if !ok {
		return ""
	}
	return info.Name
}
