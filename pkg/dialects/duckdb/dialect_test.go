package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

func TestDuckDB_CastAndTypes(t *testing.T) {
	assert.Equal(t, "CAST(t1.id AS VARCHAR)", DuckDB.CastIDToVarchar("t1.id"))

	info, ok := DuckDB.Resolve(core.TypeTimestamp)
	require.True(t, ok)
	assert.Equal(t, "TIMESTAMP", info.Name)

	arr, ok := DuckDB.Resolve(core.TypeTimestampArray)
	require.True(t, ok)
	assert.Equal(t, core.SQLVarchar, arr.Type)
	assert.Equal(t, core.SQLTimestamp, arr.ArrayBase)
	assert.Equal(t, "TIMESTAMP", arr.ArrayBaseName)
}

func TestDuckDB_Conversions(t *testing.T) {
	assert.True(t, DuckDB.IsAllowedConversion(core.SQLVarchar, DuckDB.SQLTypeOf("UUID"), "UUID", 0))
	assert.False(t, DuckDB.IsAllowedConversion(core.SQLBoolean, DuckDB.SQLTypeOf("VARCHAR"), "VARCHAR", 0))
}
