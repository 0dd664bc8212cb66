package core

import (
	"fmt"
	"strings"
)

// ColumnType is the dialect-independent kind of a column.
type ColumnType int

// Scalar column types. Each has exactly one array counterpart.
const (
	TypeInvalid ColumnType = iota
	TypeID
	TypeString
	TypeClob
	TypeInteger
	TypeDouble
	TypeBoolean
	TypeTimestamp
	TypeBlob

	TypeIDArray
	TypeStringArray
	TypeClobArray
	TypeIntegerArray
	TypeDoubleArray
	TypeBooleanArray
	TypeTimestampArray
	TypeBlobArray
)

// arrayOffset is the distance between a scalar type and its array variant.
const arrayOffset = TypeIDArray - TypeID

var columnTypeNames = map[ColumnType]string{
	TypeID:        "id",
	TypeString:    "string",
	TypeClob:      "clob",
	TypeInteger:   "integer",
	TypeDouble:    "double",
	TypeBoolean:   "boolean",
	TypeTimestamp: "timestamp",
	TypeBlob:      "blob",
}

// ScalarTypes lists every scalar column type in declaration order.
func ScalarTypes() []ColumnType {
	return []ColumnType{TypeID, TypeString, TypeClob, TypeInteger, TypeDouble, TypeBoolean, TypeTimestamp, TypeBlob}
}

// AllTypes lists every valid column type, scalars first.
func AllTypes() []ColumnType {
	scalars := ScalarTypes()
	all := make([]ColumnType, 0, 2*len(scalars))
	all = append(all, scalars...)
	for _, t := range scalars {
		all = append(all, t.ArrayOf())
	}
	return all
}

// Valid reports whether t is a known column type.
func (t ColumnType) Valid() bool {
	return t >= TypeID && t <= TypeBlobArray
}

// IsArray reports whether t is an array type.
func (t ColumnType) IsArray() bool {
	return t >= TypeIDArray && t <= TypeBlobArray
}

// IsID reports whether t is the scalar identifier type.
func (t ColumnType) IsID() bool {
	return t == TypeID
}

// BaseType maps an array type to its scalar element type.
// Scalar types map to themselves, so BaseType(BaseType(t)) == BaseType(t).
func (t ColumnType) BaseType() ColumnType {
	if t.IsArray() {
		return t - arrayOffset
	}
	return t
}

// ArrayOf returns the array variant of a scalar type. Array types are returned unchanged.
func (t ColumnType) ArrayOf() ColumnType {
	if !t.Valid() || t.IsArray() {
		return t
	}
	return t + arrayOffset
}

// String returns the descriptor spelling of t, e.g. "string" or "string[]".
func (t ColumnType) String() string {
	if t.IsArray() {
		return columnTypeNames[t.BaseType()] + "[]"
	}
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return "invalid"
}

// ParseColumnType parses the descriptor spelling of a column type.
func ParseColumnType(s string) (ColumnType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	array := strings.HasSuffix(name, "[]")
	name = strings.TrimSuffix(name, "[]")
	for t, n := range columnTypeNames {
		if n == name {
			if array {
				return t.ArrayOf(), nil
			}
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown column type %q", s)
}

// SQLType identifies a concrete engine type, in the spirit of the
// database/sql driver type codes reported by information_schema.
type SQLType int

// Engine type identifiers.
const (
	SQLOther SQLType = iota
	SQLVarchar
	SQLChar
	SQLLongVarchar
	SQLClob
	SQLBigInt
	SQLInteger
	SQLSmallInt
	SQLTinyInt
	SQLBit
	SQLBoolean
	SQLDouble
	SQLReal
	SQLNumeric
	SQLTimestamp
	SQLDate
	SQLBlob
	SQLBinary
	SQLArray
	SQLUUID
)

var sqlTypeNames = [...]string{
	SQLOther:       "OTHER",
	SQLVarchar:     "VARCHAR",
	SQLChar:        "CHAR",
	SQLLongVarchar: "LONGVARCHAR",
	SQLClob:        "CLOB",
	SQLBigInt:      "BIGINT",
	SQLInteger:     "INTEGER",
	SQLSmallInt:    "SMALLINT",
	SQLTinyInt:     "TINYINT",
	SQLBit:         "BIT",
	SQLBoolean:     "BOOLEAN",
	SQLDouble:      "DOUBLE",
	SQLReal:        "REAL",
	SQLNumeric:     "NUMERIC",
	SQLTimestamp:   "TIMESTAMP",
	SQLDate:        "DATE",
	SQLBlob:        "BLOB",
	SQLBinary:      "BINARY",
	SQLArray:       "ARRAY",
	SQLUUID:        "UUID",
}

func (t SQLType) String() string {
	if t >= 0 && int(t) < len(sqlTypeNames) {
		return sqlTypeNames[t]
	}
	return fmt.Sprintf("SQLType(%d)", int(t))
}
