package postgres

import (
	"github.com/lib/pq"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// postgresReservedWords contains common PostgreSQL reserved words.
var postgresReservedWords = []string{
	"user", "order", "group", "table", "select", "from", "where", "index",
	"all", "and", "any", "array", "as", "asc", "both", "case", "cast", "check",
	"collate", "column", "constraint", "create", "cross", "default", "desc",
	"distinct", "do", "else", "end", "except", "false", "for", "foreign",
	"full", "grant", "having", "in", "inner", "intersect", "into", "is",
	"join", "left", "like", "limit", "not", "null", "offset", "on", "only",
	"or", "primary", "references", "right", "some", "then", "to", "true",
	"union", "unique", "using", "when", "window", "with",
}

// Postgres is the PostgreSQL dialect. Arrays are native and bound through lib/pq.
var Postgres = dialect.New(Config).
	NativeArrays(
		func(v any) any { return pq.Array(v) },
		func(dest any) any { return pq.Array(dest) },
	).
	Types(map[core.ColumnType]dialect.TypeInfo{
		core.TypeID:        {Type: core.SQLVarchar, Name: "varchar(36)"},
		core.TypeString:    {Type: core.SQLVarchar, Name: "varchar"},
		core.TypeClob:      {Type: core.SQLClob, Name: "text"},
		core.TypeInteger:   {Type: core.SQLBigInt, Name: "int8"},
		core.TypeDouble:    {Type: core.SQLDouble, Name: "float8"},
		core.TypeBoolean:   {Type: core.SQLBoolean, Name: "bool"},
		core.TypeTimestamp: {Type: core.SQLTimestamp, Name: "timestamp"},
		core.TypeBlob:      {Type: core.SQLBinary, Name: "bytea"},
	}).
	TypeNames(map[string]core.SQLType{
		"character varying":           core.SQLVarchar,
		"varchar":                     core.SQLVarchar,
		"character":                   core.SQLChar,
		"text":                        core.SQLClob,
		"bigint":                      core.SQLBigInt,
		"int8":                        core.SQLBigInt,
		"integer":                     core.SQLInteger,
		"smallint":                    core.SQLSmallInt,
		"double precision":            core.SQLDouble,
		"float8":                      core.SQLDouble,
		"real":                        core.SQLReal,
		"numeric":                     core.SQLNumeric,
		"boolean":                     core.SQLBoolean,
		"bool":                        core.SQLBoolean,
		"timestamp without time zone": core.SQLTimestamp,
		"timestamp with time zone":    core.SQLTimestamp,
		"timestamp":                   core.SQLTimestamp,
		"date":                        core.SQLDate,
		"bytea":                       core.SQLBinary,
		"uuid":                        core.SQLUUID,
	}).
	AllowConversions(
		dialect.Conversion{Expected: core.SQLVarchar, Actual: core.SQLUUID, ActualName: "uuid"},
		dialect.Conversion{Expected: core.SQLVarchar, Actual: core.SQLClob},
		dialect.Conversion{Expected: core.SQLClob, Actual: core.SQLVarchar},
		dialect.Conversion{Expected: core.SQLBigInt, Actual: core.SQLInteger},
		dialect.Conversion{Expected: core.SQLTimestamp, Actual: core.SQLDate},
		dialect.Conversion{Expected: core.SQLDouble, Actual: core.SQLNumeric},
	).
	FreeVariable(core.TypeIDArray, "CAST(? AS varchar(36)[])").
	FreeVariable(core.TypeStringArray, "CAST(? AS varchar[])").
	FreeVariable(core.TypeIntegerArray, "CAST(? AS int8[])").
	FreeVariable(core.TypeTimestampArray, "CAST(? AS timestamp[])").
	CastIDFormat("CAST(%s AS VARCHAR)").
	WithReservedWords(postgresReservedWords...).
	Build()
