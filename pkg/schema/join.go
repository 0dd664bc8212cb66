package schema

import (
	"sort"
	"strings"
)

// JoinKind is the kind of a join.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	// JoinImplicit lists the table in FROM and moves the condition to WHERE.
	JoinImplicit
)

func (k JoinKind) String() string {
	switch k {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinImplicit:
		return "implicit"
	default:
		return "unknown"
	}
}

// Join describes one join in a Select. The condition comes either from a
// column pair or from two explicit expressions.
type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	// TableParam is bound when Table is a parameterized table expression.
	TableParam any

	LeftCol, RightCol *Column
	Left, Right       string

	whereClauses []string
	whereParams  []any
}

// NewJoin creates a join on a column pair. The table reference comes from
// right's table, so alias tables render as `"real" "alias"`.
func NewJoin(kind JoinKind, left, right *Column) *Join {
	t := right.Table()
	j := &Join{Kind: kind, LeftCol: left, RightCol: right}
	if t.IsAlias() {
		j.Table = t.RealTable().QuotedName()
		j.Alias = t.QuotedName()
	} else {
		j.Table = t.QuotedName()
	}
	return j
}

// NewExprJoin creates a join whose condition is "left = right".
func NewExprJoin(kind JoinKind, table, alias string, tableParam any, left, right string) *Join {
	return &Join{Kind: kind, Table: table, Alias: alias, TableParam: tableParam, Left: left, Right: right}
}

// AddWhere attaches a clause that is ANDed into the enclosing WHERE,
// along with its parameter.
func (j *Join) AddWhere(clause string, param any) {
	j.whereClauses = append(j.whereClauses, clause)
	j.whereParams = append(j.whereParams, param)
}

// WhereClauses returns the clauses attached with AddWhere.
func (j *Join) WhereClauses() []string { return j.whereClauses }

// WhereParams returns the parameters attached with AddWhere.
func (j *Join) WhereParams() []any { return j.whereParams }

// Clause returns the join condition. When exactly one side of a column pair
// is an id column, that side is cast to a string so both compare alike.
func (j *Join) Clause() string {
	if j.LeftCol == nil || j.RightCol == nil {
		return j.Left + " = " + j.Right
	}
	left := j.LeftCol.FullQuotedName()
	right := j.RightCol.FullQuotedName()
	leftID := j.LeftCol.Type().IsID()
	rightID := j.RightCol.Type().IsID()
	d := j.LeftCol.Table().dialect()
	switch {
	case leftID && !rightID:
		left = d.CastIDToVarchar(left)
	case rightID && !leftID:
		right = d.CastIDToVarchar(right)
	}
	return left + " = " + right
}

func (j *Join) reference() string {
	if j.Alias == "" {
		return j.Table
	}
	return j.Table + " " + j.Alias
}

// SQL renders the join for the FROM list, with a leading separator.
func (j *Join) SQL() string {
	switch j.Kind {
	case JoinLeft:
		return " LEFT JOIN " + j.reference() + " ON " + j.Clause()
	case JoinRight:
		return " RIGHT JOIN " + j.reference() + " ON " + j.Clause()
	case JoinImplicit:
		return ", " + j.reference()
	default:
		return " JOIN " + j.reference() + " ON " + j.Clause()
	}
}

// CompareJoins ranks implicit joins after keyword joins. Engines reject a
// comma join that precedes a keyword join.
func CompareJoins(a, b *Join) int {
	ai, bi := a.Kind == JoinImplicit, b.Kind == JoinImplicit
	switch {
	case ai && !bi:
		return 1
	case bi && !ai:
		return -1
	default:
		return 0
	}
}

// SortJoins sorts joins in place with CompareJoins. The sort is stable.
func SortJoins(joins []*Join) {
	sort.SliceStable(joins, func(i, k int) bool { return CompareJoins(joins[i], joins[k]) < 0 })
}

// joinWhere collects the implicit join conditions and attached clauses.
func joinWhere(joins []*Join) ([]string, []any) {
	var clauses []string
	var params []any
	for _, j := range joins {
		if j.Kind == JoinImplicit {
			clauses = append(clauses, j.Clause())
		}
		clauses = append(clauses, j.whereClauses...)
		params = append(params, j.whereParams...)
	}
	return clauses, params
}

func andAll(parts []string) string {
	return strings.Join(parts, " AND ")
}
