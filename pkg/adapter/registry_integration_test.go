package adapter_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/dialect"

	_ "github.com/leapstack-labs/leapstore/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapstore/pkg/adapters/sqlite"
)

func TestBundledAdapters(t *testing.T) {
	bundled := []string{"duckdb", "mysql", "postgres", "sqlite"}
	assert.Subset(t, adapter.ListAdapters(), bundled)

	for _, name := range bundled {
		t.Run(name, func(t *testing.T) {
			a, err := adapter.NewAdapter(adapter.Config{Type: name}, nil)
			require.NoError(t, err)

			d := a.Dialect()
			require.NotNil(t, d, "adapter must carry a dialect")
			assert.Equal(t, name, d.Name)

			registered, ok := dialect.Get(name)
			require.True(t, ok, "dialect %s registered alongside the adapter", name)
			assert.Same(t, registered, d)
			assert.Equal(t, d.Name, a.DialectConfig().Name)
		})
	}
}

func TestOpen_SQLite(t *testing.T) {
	cfg := adapter.Config{
		Type:         "SQLite",
		Path:         filepath.Join(t.TempDir(), "main.db"),
		MaxOpenConns: 3,
	}
	a, err := adapter.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	require.NoError(t, a.Ping(context.Background()))
	assert.Equal(t, 3, a.SQLDB().Stats().MaxOpenConnections)

	require.NoError(t, a.Exec(context.Background(), "CREATE TABLE hierarchy (id VARCHAR(36) NOT NULL PRIMARY KEY)"))
	md, err := a.GetTableMetadata(context.Background(), "hierarchy")
	require.NoError(t, err)
	require.Len(t, md.Columns, 1)
	assert.Equal(t, "id", md.Columns[0].Name)
}
