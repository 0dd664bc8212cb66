package schema

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Select builds a SELECT statement.
type Select struct {
	table   *Table
	what    string
	from    string
	joins   []*Join
	where   string
	params  []any
	orderBy string
	limit   int
}

// NewSelect starts a SELECT from t. The FROM list defaults to t.
func NewSelect(t *Table) *Select {
	return &Select{table: t, from: t.Reference()}
}

// SetWhat sets the select list.
func (s *Select) SetWhat(what string) *Select {
	s.what = what
	return s
}

// SetColumns sets the select list to the fully qualified columns.
func (s *Select) SetColumns(cols ...*Column) *Select {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.FullQuotedName()
	}
	s.what = strings.Join(names, ", ")
	return s
}

// SetFrom replaces the FROM list.
func (s *Select) SetFrom(from string) *Select {
	s.from = from
	return s
}

// AddJoin appends joins. They are sorted when the statement is rendered.
func (s *Select) AddJoin(joins ...*Join) *Select {
	s.joins = append(s.joins, joins...)
	return s
}

// SetWhere sets the WHERE clause and its parameters.
func (s *Select) SetWhere(where string, params ...any) *Select {
	s.where = where
	s.params = params
	return s
}

// SetOrderBy sets the ORDER BY list.
func (s *Select) SetOrderBy(orderBy string) *Select {
	s.orderBy = orderBy
	return s
}

// SetLimit sets a row limit; zero means none.
func (s *Select) SetLimit(n int) *Select {
	s.limit = n
	return s
}

// Statement renders the SELECT and returns its parameters in placeholder
// order: join table parameters, join WHERE parameters, then the WHERE parameters.
func (s *Select) Statement() (string, []any, error) {
	if s.what == "" {
		return "", nil, &core.BuildError{Statement: "SELECT", Msg: "empty select list"}
	}

	joins := make([]*Join, len(s.joins))
	copy(joins, s.joins)
	SortJoins(joins)

	var sb strings.Builder
	var params []any
	sb.WriteString("SELECT ")
	sb.WriteString(s.what)
	sb.WriteString(" FROM ")
	sb.WriteString(s.from)
	for _, j := range joins {
		sb.WriteString(j.SQL())
		if j.TableParam != nil {
			params = append(params, j.TableParam)
		}
	}

	clauses, joinParams := joinWhere(joins)
	params = append(params, joinParams...)
	if s.where != "" {
		clauses = append(clauses, s.where)
		params = append(params, s.params...)
	}
	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(andAll(clauses))
	}
	if s.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(s.orderBy)
	}
	if s.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(s.limit))
	}
	return sb.String(), params, nil
}
