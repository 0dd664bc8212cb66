package mysql

import (
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

func init() {
	dialect.Register(MySQL)
}

// maxVarcharClob is the smallest varchar accepted in place of a long text column.
const maxVarcharClob = 16383

// MySQL is the MySQL dialect. MySQL has no UPDATE ... FROM, so extra tables
// go in the UPDATE table list.
var MySQL = dialect.New(Config).
	JSONArrays(dialect.TypeInfo{Type: core.SQLClob, Name: "LONGTEXT"}).
	UpdateFromStyle(dialect.UpdateMultiTable).
	Types(map[core.ColumnType]dialect.TypeInfo{
		core.TypeID:        {Type: core.SQLVarchar, Name: "VARCHAR(36)"},
		core.TypeString:    {Type: core.SQLVarchar, Name: "VARCHAR(750)"},
		core.TypeClob:      {Type: core.SQLClob, Name: "LONGTEXT"},
		core.TypeInteger:   {Type: core.SQLBigInt, Name: "BIGINT"},
		core.TypeDouble:    {Type: core.SQLDouble, Name: "DOUBLE"},
		core.TypeBoolean:   {Type: core.SQLBit, Name: "BIT"},
		core.TypeTimestamp: {Type: core.SQLTimestamp, Name: "DATETIME(3)"},
		core.TypeBlob:      {Type: core.SQLBlob, Name: "LONGBLOB"},
	}).
	TypeNames(map[string]core.SQLType{
		"varchar":    core.SQLVarchar,
		"char":       core.SQLChar,
		"text":       core.SQLLongVarchar,
		"mediumtext": core.SQLLongVarchar,
		"longtext":   core.SQLClob,
		"bigint":     core.SQLBigInt,
		"int":        core.SQLInteger,
		"integer":    core.SQLInteger,
		"smallint":   core.SQLSmallInt,
		"tinyint":    core.SQLTinyInt,
		"bit":        core.SQLBit,
		"double":     core.SQLDouble,
		"float":      core.SQLReal,
		"decimal":    core.SQLNumeric,
		"datetime":   core.SQLTimestamp,
		"timestamp":  core.SQLTimestamp,
		"date":       core.SQLDate,
		"longblob":   core.SQLBlob,
		"blob":       core.SQLBlob,
		"json":       core.SQLClob,
	}).
	AllowConversions(
		dialect.Conversion{Expected: core.SQLBit, Actual: core.SQLTinyInt},
		dialect.Conversion{Expected: core.SQLClob, Actual: core.SQLLongVarchar},
		dialect.Conversion{Expected: core.SQLClob, Actual: core.SQLVarchar, MinSize: maxVarcharClob},
		dialect.Conversion{Expected: core.SQLVarchar, Actual: core.SQLLongVarchar},
		dialect.Conversion{Expected: core.SQLVarchar, Actual: core.SQLClob},
		dialect.Conversion{Expected: core.SQLBigInt, Actual: core.SQLInteger},
		dialect.Conversion{Expected: core.SQLTimestamp, Actual: core.SQLDate},
	).
	CastIDFormat("CAST(%s AS CHAR)").
	WithReservedWords("order", "group", "key", "keys", "index", "table", "select", "from", "where", "user", "read", "write").
	Build()
