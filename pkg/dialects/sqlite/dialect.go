package sqlite

import (
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect. Declared types are reported verbatim by
// pragma_table_info, so the type names mirror what CREATE TABLE writes.
var SQLite = dialect.New(Config).
	JSONArrays(dialect.TypeInfo{Type: core.SQLClob, Name: "TEXT"}).
	Types(map[core.ColumnType]dialect.TypeInfo{
		core.TypeID:        {Type: core.SQLVarchar, Name: "VARCHAR(36)"},
		core.TypeString:    {Type: core.SQLVarchar, Name: "VARCHAR"},
		core.TypeClob:      {Type: core.SQLClob, Name: "TEXT"},
		core.TypeInteger:   {Type: core.SQLBigInt, Name: "INTEGER"},
		core.TypeDouble:    {Type: core.SQLDouble, Name: "REAL"},
		core.TypeBoolean:   {Type: core.SQLBoolean, Name: "BOOLEAN"},
		core.TypeTimestamp: {Type: core.SQLTimestamp, Name: "TIMESTAMP"},
		core.TypeBlob:      {Type: core.SQLBlob, Name: "BLOB"},
	}).
	TypeNames(map[string]core.SQLType{
		"varchar":   core.SQLVarchar,
		"text":      core.SQLClob,
		"integer":   core.SQLBigInt,
		"int":       core.SQLBigInt,
		"real":      core.SQLDouble,
		"double":    core.SQLDouble,
		"numeric":   core.SQLNumeric,
		"boolean":   core.SQLBoolean,
		"timestamp": core.SQLTimestamp,
		"datetime":  core.SQLTimestamp,
		"blob":      core.SQLBlob,
	}).
	AllowConversions(
		// type affinity makes TEXT and VARCHAR interchangeable
		dialect.Conversion{Expected: core.SQLVarchar, Actual: core.SQLClob},
		dialect.Conversion{Expected: core.SQLClob, Actual: core.SQLVarchar},
		dialect.Conversion{Expected: core.SQLBoolean, Actual: core.SQLBigInt},
		dialect.Conversion{Expected: core.SQLTimestamp, Actual: core.SQLClob},
	).
	CastIDFormat("CAST(%s AS TEXT)").
	Build()
