package output

// MismatchInfo is one column whose engine type does not fit the catalog.
type MismatchInfo struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
	Size     int    `json:"size,omitempty"`
	Missing  bool   `json:"missing,omitempty"`
}

// RepositoryCheck is the type check result for one repository.
type RepositoryCheck struct {
	Repository string         `json:"repository"`
	Dialect    string         `json:"dialect"`
	Tables     int            `json:"tables"`
	Mismatches []MismatchInfo `json:"mismatches"`
}

// CheckOutput is the JSON shape of `leapstore check`.
type CheckOutput struct {
	Repositories []RepositoryCheck `json:"repositories"`
	Summary      CheckSummary      `json:"summary"`
}

// CheckSummary totals a check run.
type CheckSummary struct {
	Repositories int `json:"repositories"`
	Mismatches   int `json:"mismatches"`
}

// ColumnInfo describes one resolved catalog column.
type ColumnInfo struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	SQLType  string `json:"sql_type"`
	Primary  bool   `json:"primary,omitempty"`
	Identity bool   `json:"identity,omitempty"`
	Nullable bool   `json:"nullable"`
}

// TableInfo describes one resolved catalog table.
type TableInfo struct {
	Name      string       `json:"name"`
	Physical  string       `json:"physical"`
	Columns   []ColumnInfo `json:"columns"`
	CreateSQL string       `json:"create_sql"`
}

// RenderOutput is the JSON shape of `leapstore render`.
type RenderOutput struct {
	Dialect string      `json:"dialect"`
	Catalog string      `json:"catalog"`
	Tables  []TableInfo `json:"tables"`
}

// DialectInfo summarizes a registered dialect.
type DialectInfo struct {
	Name          string `json:"name"`
	DefaultSchema string `json:"default_schema"`
	Placeholder   string `json:"placeholder"`
	Arrays        string `json:"arrays"`
	Quote         string `json:"quote"`
	Adapter       bool   `json:"adapter"`
}
