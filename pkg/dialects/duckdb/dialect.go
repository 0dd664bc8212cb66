package duckdb

import (
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect. Arrays are kept as JSON text.
var DuckDB = dialect.New(Config).
	JSONArrays(dialect.TypeInfo{Type: core.SQLVarchar, Name: "VARCHAR"}).
	Types(map[core.ColumnType]dialect.TypeInfo{
		core.TypeID:        {Type: core.SQLVarchar, Name: "VARCHAR"},
		core.TypeString:    {Type: core.SQLVarchar, Name: "VARCHAR"},
		core.TypeClob:      {Type: core.SQLVarchar, Name: "VARCHAR"},
		core.TypeInteger:   {Type: core.SQLBigInt, Name: "BIGINT"},
		core.TypeDouble:    {Type: core.SQLDouble, Name: "DOUBLE"},
		core.TypeBoolean:   {Type: core.SQLBoolean, Name: "BOOLEAN"},
		core.TypeTimestamp: {Type: core.SQLTimestamp, Name: "TIMESTAMP"},
		core.TypeBlob:      {Type: core.SQLBlob, Name: "BLOB"},
	}).
	TypeNames(map[string]core.SQLType{
		"varchar":                  core.SQLVarchar,
		"text":                     core.SQLVarchar,
		"bigint":                   core.SQLBigInt,
		"integer":                  core.SQLInteger,
		"smallint":                 core.SQLSmallInt,
		"tinyint":                  core.SQLTinyInt,
		"double":                   core.SQLDouble,
		"float":                    core.SQLReal,
		"decimal":                  core.SQLNumeric,
		"boolean":                  core.SQLBoolean,
		"timestamp":                core.SQLTimestamp,
		"timestamp with time zone": core.SQLTimestamp,
		"date":                     core.SQLDate,
		"blob":                     core.SQLBlob,
		"uuid":                     core.SQLUUID,
	}).
	AllowConversions(
		dialect.Conversion{Expected: core.SQLVarchar, Actual: core.SQLUUID},
		dialect.Conversion{Expected: core.SQLBigInt, Actual: core.SQLInteger},
		dialect.Conversion{Expected: core.SQLTimestamp, Actual: core.SQLDate},
	).
	CastIDFormat("CAST(%s AS VARCHAR)").
	Build()
