package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstore/internal/testutil"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapstore/pkg/dialects/sqlite"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

const hierarchyYAML = `
tables:
  - name: hierarchy
    columns:
      - { key: id, type: id, primary: true }
      - { key: parentid, type: id, references: hierarchy.id }
      - { key: name, name: title, type: string, nullable: false }
      - { key: pos, type: integer, default: 0 }
      - { key: tags, type: "string[]" }
  - name: "doc:note"
    columns:
      - { key: id, type: id, primary: true }
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDescriptor_Build(t *testing.T) {
	desc, err := Parse([]byte(hierarchyYAML))
	require.NoError(t, err)

	db, err := desc.Build(sqlite.SQLite)
	require.NoError(t, err)

	tables := db.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "doc:note", tables[0].Name())
	assert.Equal(t, "doc_note", tables[0].PhysicalName())

	h, ok := db.Table("hierarchy")
	require.True(t, ok)
	require.Len(t, h.Columns(), 5)

	id, _ := h.Column("id")
	assert.True(t, id.IsPrimary())
	assert.False(t, id.IsNullable())

	parent, _ := h.Column("parentid")
	ref, ok := parent.Reference()
	require.True(t, ok)
	assert.Equal(t, schema.Reference{Table: "hierarchy", Column: "id"}, ref)

	name, _ := h.Column("name")
	assert.Equal(t, "title", name.PhysicalName())
	assert.False(t, name.IsNullable())

	pos, _ := h.Column("pos")
	def, ok := pos.Default()
	require.True(t, ok)
	assert.Equal(t, 0, def)

	tags, _ := h.Column("tags")
	assert.Equal(t, core.TypeStringArray, tags.Type())
	assert.Equal(t, core.TypeString, tags.BaseType())
}

func TestDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
		schema bool
	}{
		{
			name:   "unknown field",
			yaml:   "tables:\n  - name: a\n    colums: []\n",
			errMsg: "failed to parse catalog descriptor",
		},
		{
			name:   "unknown type",
			yaml:   "tables:\n  - name: a\n    columns:\n      - { key: x, type: money }\n",
			errMsg: `unknown column type "money"`,
			schema: true,
		},
		{
			name:   "bad reference",
			yaml:   "tables:\n  - name: a\n    columns:\n      - { key: x, type: id, references: other }\n",
			errMsg: "is not table.column",
			schema: true,
		},
		{
			name:   "missing key",
			yaml:   "tables:\n  - name: a\n    columns:\n      - { type: id }\n",
			errMsg: "column without a key",
			schema: true,
		},
		{
			name:   "nullable primary key",
			yaml:   "tables:\n  - name: a\n    columns:\n      - { key: x, type: id, primary: true, nullable: true }\n",
			errMsg: "primary key column cannot be nullable",
			schema: true,
		},
		{
			name:   "physical name collision",
			yaml:   "tables:\n  - name: \"doc:note\"\n  - name: doc_note\n",
			errMsg: "doc_note",
			schema: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := Parse([]byte(tt.yaml))
			if err == nil {
				_, err = desc.Build(sqlite.SQLite)
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			if tt.schema {
				var se *core.SchemaError
				assert.True(t, errors.As(err, &se), "want SchemaError, got %T", err)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	desc, err := Parse(nil)
	require.NoError(t, err)
	db, err := desc.Build(postgres.Postgres)
	require.NoError(t, err)
	assert.Empty(t, db.Tables())
}

func TestCatalog_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeFile(t, path, "tables:\n  - name: a\n")

	c, err := Open(path, sqlite.SQLite, testutil.NewTestLogger(t))
	require.NoError(t, err)
	first := c.Current()
	require.Len(t, first.Tables(), 1)

	var notified atomic.Int32
	c.OnReload(func(db *schema.Database) {
		notified.Add(1)
		assert.Len(t, db.Tables(), 2)
	})

	writeFile(t, path, "tables:\n  - name: a\n  - name: b\n")
	require.NoError(t, c.Reload())
	assert.Len(t, c.Current().Tables(), 2)
	assert.Len(t, first.Tables(), 1, "the previous catalog is never mutated")
	assert.Equal(t, int32(1), notified.Load())

	writeFile(t, path, "tables: [")
	require.Error(t, c.Reload())
	assert.Len(t, c.Current().Tables(), 2, "failed reload keeps the previous catalog")
	assert.Equal(t, int32(1), notified.Load())
}

func TestCatalog_OpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.yaml"), sqlite.SQLite, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog descriptor")
}

func TestCatalog_FromDatabase(t *testing.T) {
	db := schema.NewDatabase(sqlite.SQLite)
	c := FromDatabase(db)
	assert.Same(t, db, c.Current())
	assert.Error(t, c.Reload())
	assert.Error(t, c.Watch(context.Background()))
}

func TestCatalog_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	writeFile(t, path, "tables:\n  - name: a\n")

	c, err := Open(path, sqlite.SQLite, testutil.NewTestLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()

	// Give the watcher time to register before changing the file.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "unrelated.yaml"), "tables: [")
	writeFile(t, path, "tables:\n  - name: a\n  - name: b\n")

	require.Eventually(t, func() bool {
		return len(c.Current().Tables()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
