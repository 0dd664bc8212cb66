// Package sqlite provides a SQLite database adapter for leapstore.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	litedialect "github.com/leapstack-labs/leapstore/pkg/dialects/sqlite"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return litedialect.SQLite
}

// DialectConfig returns the static dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return litedialect.SQLite.Config()
}

// Connect opens the database file. An empty path or ":memory:" opens a
// shared-cache in-memory database, so every pooled connection sees the same data.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildSQLiteDSN(cfg)

	a.Logger.Debug("connecting to sqlite", slog.String("dsn", dsn))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	a.ApplyPoolLimits()
	return nil
}

// buildSQLiteDSN builds a modernc file: URI. Options become _pragma parameters.
func buildSQLiteDSN(cfg adapter.Config) string {
	q := url.Values{}
	path := cfg.Path
	if path == "" || path == ":memory:" {
		name := cfg.Database
		if name == "" {
			name = "leapstore"
		}
		path = name
		q.Set("mode", "memory")
		q.Set("cache", "shared")
	}

	pragmas := map[string]string{"busy_timeout": "5000"}
	for k, v := range cfg.Options {
		pragmas[k] = v
	}
	for k, v := range pragmas {
		q.Add("_pragma", k+"("+v+")")
	}
	return "file:" + path + "?" + q.Encode()
}

// GetTableMetadata reads the table shape from pragma_table_info.
// SQLite has no information_schema.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, tableName := adapter.ParseQualifiedName(table, litedialect.SQLite.DefaultSchema)

	rows, err := a.DB.QueryContext(ctx,
		`SELECT cid, name, type, "notnull" FROM pragma_table_info(?, ?) ORDER BY cid`,
		tableName, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []adapter.Column
	for rows.Next() {
		var col adapter.Column
		var cid, notNull int
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position = cid + 1
		col.Nullable = notNull == 0
		col.Size = declaredSize(col.Type)
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	return &adapter.Metadata{
		Schema:  schema,
		Name:    tableName,
		Columns: columns,
	}, nil
}

// declaredSize extracts n from a declared type such as VARCHAR(n).
func declaredSize(typ string) int {
	open := strings.IndexByte(typ, '(')
	end := strings.IndexAny(typ, ",)")
	if open < 0 || end <= open {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(typ[open+1 : end]))
	if err != nil {
		return 0
	}
	return n
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
