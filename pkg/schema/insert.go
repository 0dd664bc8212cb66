package schema

import (
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Insert builds a single-row INSERT statement.
type Insert struct {
	table           *Table
	columns         []*Column
	includeIdentity bool
}

// NewInsert starts an INSERT into t.
func NewInsert(t *Table) *Insert {
	return &Insert{table: t.RealTable()}
}

// IncludeIdentity makes later AddColumn calls keep identity columns,
// for engines or imports that supply explicit ids.
func (i *Insert) IncludeIdentity() *Insert {
	i.includeIdentity = true
	return i
}

// AddColumn adds a column to the insert list. Identity columns are skipped
// unless IncludeIdentity was called.
func (i *Insert) AddColumn(cols ...*Column) *Insert {
	for _, c := range cols {
		if i.includeIdentity || !c.IsIdentity() {
			i.columns = append(i.columns, c)
		}
	}
	return i
}

// Columns returns the inserted columns in parameter order.
func (i *Insert) Columns() []*Column {
	return i.columns
}

// Statement renders the INSERT.
func (i *Insert) Statement() (string, error) {
	if len(i.columns) == 0 {
		return "", &core.BuildError{Statement: "INSERT", Msg: "no columns for table " + i.table.Name()}
	}
	names := make([]string, len(i.columns))
	values := make([]string, len(i.columns))
	for k, c := range i.columns {
		names[k] = c.QuotedName()
		values[k] = c.FreeVariable()
	}
	return "INSERT INTO " + i.table.QuotedName() +
		" (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")", nil
}
