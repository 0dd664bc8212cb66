package schema

import (
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Delete builds a DELETE statement. Like Update it refuses to render without WHERE.
type Delete struct {
	table *Table
	where string
}

// NewDelete starts a DELETE from t.
func NewDelete(t *Table) *Delete {
	return &Delete{table: t.RealTable()}
}

// SetWhere sets the WHERE clause, without the keyword.
func (d *Delete) SetWhere(where string) *Delete {
	d.where = where
	return d
}

// Statement renders the DELETE.
func (d *Delete) Statement() (string, error) {
	if strings.TrimSpace(d.where) == "" {
		return "", &core.BuildError{Statement: "DELETE", Msg: "missing WHERE clause for table " + d.table.Name()}
	}
	return "DELETE FROM " + d.table.QuotedName() + " WHERE " + d.where, nil
}
