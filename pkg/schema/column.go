package schema

import (
	"fmt"
	"reflect"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// Column is a catalog column. It is fixed once registered.
type Column struct {
	table        *Table
	key          string
	physicalName string
	quotedName   string
	typ          core.ColumnType
	info         dialect.TypeInfo
	freeVariable string

	identity     bool
	primary      bool
	nullable     bool
	hasDefault   bool
	defaultValue any
	ref          *Reference
}

// Reference names the table and column key a column points at.
type Reference struct {
	Table  string
	Column string
}

// ColumnOption configures a column at registration.
type ColumnOption func(*Column)

// WithIdentity marks the column as engine-generated; inserts and updates skip it.
func WithIdentity() ColumnOption {
	return func(c *Column) { c.identity = true }
}

// WithPrimary marks the column as part of the primary key. Primary columns are
// NOT NULL whatever other options say.
func WithPrimary() ColumnOption {
	return func(c *Column) {
		c.primary = true
		c.nullable = false
	}
}

// WithNullable sets whether the column accepts NULL. Columns are nullable by default.
func WithNullable(nullable bool) ColumnOption {
	return func(c *Column) { c.nullable = nullable }
}

// WithDefault sets the DDL default value.
func WithDefault(v any) ColumnOption {
	return func(c *Column) {
		c.hasDefault = true
		c.defaultValue = v
	}
}

// WithReference records that the column references another table's column.
func WithReference(table, column string) ColumnOption {
	return func(c *Column) { c.ref = &Reference{Table: table, Column: column} }
}

func newColumn(t *Table, physical string, ct core.ColumnType, key string, opts ...ColumnOption) (*Column, error) {
	d := t.dialect()
	info, ok := d.Resolve(ct)
	if !ok {
		return nil, &core.SchemaError{
			Table: t.name,
			Msg:   fmt.Sprintf("column %q: type %s is not supported by dialect %s", physical, ct, d.Name),
		}
	}
	c := &Column{
		table:        t,
		key:          key,
		physicalName: physical,
		quotedName:   d.QuoteIdentifier(physical),
		typ:          ct,
		info:         info,
		freeVariable: d.FreeVariable(ct),
		nullable:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.primary {
		c.nullable = false
	}
	return c, nil
}

// Table returns the owning table.
func (c *Column) Table() *Table { return c.table }

// Key returns the logical key.
func (c *Column) Key() string { return c.key }

// PhysicalName returns the column name as stored in the engine.
func (c *Column) PhysicalName() string { return c.physicalName }

// QuotedName returns the quoted physical name.
func (c *Column) QuotedName() string { return c.quotedName }

// FullQuotedName returns the column qualified by its table, e.g. "t"."c".
func (c *Column) FullQuotedName() string {
	return c.table.QuotedName() + "." + c.quotedName
}

// Type returns the abstract column type.
func (c *Column) Type() core.ColumnType { return c.typ }

// BaseType returns the element type for arrays, the type itself otherwise.
func (c *Column) BaseType() core.ColumnType { return c.typ.BaseType() }

// Info returns the resolved engine type.
func (c *Column) Info() dialect.TypeInfo { return c.info }

// IsIdentity reports whether the engine generates the value.
func (c *Column) IsIdentity() bool { return c.identity }

// IsPrimary reports whether the column is part of the primary key.
func (c *Column) IsPrimary() bool { return c.primary }

// IsNullable reports whether the column accepts NULL.
func (c *Column) IsNullable() bool { return c.nullable }

// Default returns the DDL default value, if any.
func (c *Column) Default() (any, bool) { return c.defaultValue, c.hasDefault }

// Reference returns the referenced table and column, if any.
func (c *Column) Reference() (Reference, bool) {
	if c.ref == nil {
		return Reference{}, false
	}
	return *c.ref, true
}

// FreeVariable returns the placeholder text for this column's values.
func (c *Column) FreeVariable() string { return c.freeVariable }

// AcceptsSQLType reports whether an engine column of the given type code,
// reported type name and size can hold this column's values.
func (c *Column) AcceptsSQLType(actual core.SQLType, actualName string, actualSize int) bool {
	if actual == c.info.Type {
		return true
	}
	return c.table.dialect().IsAllowedConversion(c.info.Type, actual, actualName, actualSize)
}

// Bind converts a Go value into the driver value for this column.
// Array columns require a slice; scalar columns reject one ([]byte is scalar).
func (c *Column) Bind(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	isArray := isArrayValue(value)
	if c.typ.IsArray() {
		if !isArray {
			return nil, &core.TypeMismatchError{Column: c.physicalName, Type: c.typ, Value: value}
		}
		return c.table.dialect().BindArray(value)
	}
	if isArray {
		return nil, &core.TypeMismatchError{Column: c.physicalName, Type: c.typ, Value: value}
	}
	return value, nil
}

// Scanner returns the scan destination for this column's value: dest itself
// for scalars, an array decoder for array columns.
func (c *Column) Scanner(dest any) any {
	if c.typ.IsArray() {
		return c.table.dialect().ScanArray(dest)
	}
	return dest
}

func (c *Column) String() string {
	return fmt.Sprintf("%s.%s(%s)", c.table.name, c.physicalName, c.typ)
}

func isArrayValue(v any) bool {
	if _, ok := v.([]byte); ok {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	default:
		return false
	}
}
