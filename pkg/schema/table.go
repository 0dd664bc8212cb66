package schema

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// Table is a catalog table. Columns keep registration order.
type Table struct {
	db           *Database
	name         string
	physicalName string
	quotedName   string

	// alias tables point at the table they rename
	real  *Table
	alias string

	order        []*Column
	columns      map[string]*Column
	physicalCols map[string]struct{}
}

// Name returns the logical table name.
func (t *Table) Name() string { return t.name }

// PhysicalName returns the table name as stored in the engine.
func (t *Table) PhysicalName() string { return t.physicalName }

// QuotedName returns the quoted name used to qualify columns: the alias for
// an alias table, the quoted physical name otherwise.
func (t *Table) QuotedName() string { return t.quotedName }

// Database returns the owning catalog.
func (t *Table) Database() *Database { return t.db }

func (t *Table) dialect() *dialect.Dialect { return t.db.dialect }

// IsAlias reports whether t is an alias of another table.
func (t *Table) IsAlias() bool { return t.real != nil }

// RealTable returns the aliased table, or t itself.
func (t *Table) RealTable() *Table {
	if t.real != nil {
		return t.real
	}
	return t
}

// Reference returns the text naming t in a FROM or JOIN list,
// e.g. `"hierarchy" "h1"` for an alias.
func (t *Table) Reference() string {
	if t.real != nil {
		return t.real.quotedName + " " + t.quotedName
	}
	return t.quotedName
}

// AddColumn registers a column. The physical name goes through the dialect's
// casing rule; key is the logical key used to look the column up.
func (t *Table) AddColumn(physicalName string, ct core.ColumnType, key string, opts ...ColumnOption) (*Column, error) {
	if t.real != nil {
		return nil, &core.SchemaError{Table: t.name, Msg: "cannot add columns to an alias"}
	}
	if _, ok := t.columns[key]; ok {
		return nil, &core.SchemaError{Table: t.name, Msg: fmt.Sprintf("duplicate column key %q", key)}
	}
	physical := t.dialect().PhysicalName(physicalName)
	if _, ok := t.physicalCols[physical]; ok {
		return nil, &core.SchemaError{Table: t.name, Msg: fmt.Sprintf("duplicate column %q", physical)}
	}
	col, err := newColumn(t, physical, ct, key, opts...)
	if err != nil {
		return nil, err
	}
	t.order = append(t.order, col)
	t.columns[key] = col
	t.physicalCols[physical] = struct{}{}
	return col, nil
}

// Column returns the column registered under key.
func (t *Table) Column(key string) (*Column, bool) {
	c, ok := t.columns[key]
	return c, ok
}

// Columns returns the columns in registration order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.order))
	copy(out, t.order)
	return out
}

// PrimaryColumns returns the columns flagged as primary key, in order.
func (t *Table) PrimaryColumns() []*Column {
	var out []*Column
	for _, c := range t.order {
		if c.primary {
			out = append(out, c)
		}
	}
	return out
}

// Alias returns a view of t under another name, for self joins.
// Its columns qualify with the alias.
func (t *Table) Alias(alias string) *Table {
	real := t.RealTable()
	a := &Table{
		db:           real.db,
		name:         real.name,
		physicalName: real.physicalName,
		quotedName:   real.dialect().QuoteIdentifier(alias),
		real:         real,
		alias:        alias,
		columns:      make(map[string]*Column, len(real.columns)),
	}
	for _, c := range real.order {
		cc := *c
		cc.table = a
		a.order = append(a.order, &cc)
		a.columns[cc.key] = &cc
	}
	return a
}

// CreateSQL renders CREATE TABLE IF NOT EXISTS for first-time setup.
func (t *Table) CreateSQL() string {
	real := t.RealTable()

	defs := make([]string, 0, len(real.order)+1)
	for _, c := range real.order {
		var sb strings.Builder
		sb.WriteString(c.quotedName)
		sb.WriteByte(' ')
		sb.WriteString(c.info.Name)
		if !c.nullable {
			sb.WriteString(" NOT NULL")
		}
		if c.hasDefault {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(literal(c.defaultValue))
		}
		defs = append(defs, sb.String())
	}

	if pk := real.PrimaryColumns(); len(pk) > 0 {
		names := make([]string, len(pk))
		for i, c := range pk {
			names[i] = c.quotedName
		}
		defs = append(defs, "PRIMARY KEY ("+strings.Join(names, ", ")+")")
	}

	return "CREATE TABLE IF NOT EXISTS " + real.quotedName + " (" + strings.Join(defs, ", ") + ")"
}

// literal renders a default value as SQL text.
func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}
