package schema

import (
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// Update builds an UPDATE statement against one table.
type Update struct {
	table   *Table
	set     string
	columns []*Column
	from    []*Table
	where   string
}

// NewUpdate starts an UPDATE of t.
func NewUpdate(t *Table) *Update {
	return &Update{table: t}
}

// SetUpdatedColumns sets the SET list from columns, in input order. Identity
// columns are skipped. Columns whose key is listed in deltas are incremented
// by the bound value instead of replaced.
func (u *Update) SetUpdatedColumns(cols []*Column, deltas ...string) {
	isDelta := make(map[string]bool, len(deltas))
	for _, k := range deltas {
		isDelta[k] = true
	}
	parts := make([]string, 0, len(cols))
	u.columns = u.columns[:0]
	for _, c := range cols {
		if c.IsIdentity() {
			continue
		}
		q := c.QuotedName()
		if isDelta[c.Key()] {
			parts = append(parts, q+" = "+q+" + "+c.FreeVariable())
		} else {
			parts = append(parts, q+" = "+c.FreeVariable())
		}
		u.columns = append(u.columns, c)
	}
	u.set = strings.Join(parts, ", ")
}

// SetNewValues sets the SET list verbatim. Columns reports nothing afterwards.
func (u *Update) SetNewValues(set string) {
	u.set = set
	u.columns = nil
}

// SetFrom sets additional correlated tables.
func (u *Update) SetFrom(tables ...*Table) {
	u.from = tables
}

// SetWhere sets the WHERE clause, without the keyword.
func (u *Update) SetWhere(where string) {
	u.where = where
}

// Columns returns the columns bound by the SET list, in parameter order.
func (u *Update) Columns() []*Column {
	return u.columns
}

// Statement renders the UPDATE. It fails when the SET list or the WHERE
// clause is empty: a full-table UPDATE is never emitted.
func (u *Update) Statement() (string, error) {
	if strings.TrimSpace(u.where) == "" {
		return "", &core.BuildError{Statement: "UPDATE", Msg: "missing WHERE clause for table " + u.table.Name()}
	}
	if u.set == "" {
		return "", &core.BuildError{Statement: "UPDATE", Msg: "no columns to update in table " + u.table.Name()}
	}

	d := u.table.dialect()
	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(u.table.Reference())

	if len(u.from) > 0 && d.UpdateFrom == dialect.UpdateMultiTable {
		for _, t := range u.from {
			sb.WriteString(", ")
			sb.WriteString(t.Reference())
		}
	}

	sb.WriteString(" SET ")
	sb.WriteString(u.set)

	if len(u.from) > 0 && d.UpdateFrom != dialect.UpdateMultiTable {
		refs := make([]string, 0, len(u.from)+1)
		if d.UpdateFromRepeatSelf() {
			refs = append(refs, u.table.Reference())
		}
		for _, t := range u.from {
			refs = append(refs, t.Reference())
		}
		sb.WriteString(" FROM ")
		sb.WriteString(strings.Join(refs, ", "))
	}

	sb.WriteString(" WHERE ")
	sb.WriteString(u.where)
	return sb.String(), nil
}
