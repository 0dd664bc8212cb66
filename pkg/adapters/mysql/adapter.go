// Package mysql provides a MySQL database adapter for leapstore.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	mydialect "github.com/leapstack-labs/leapstore/pkg/dialects/mysql"
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the MySQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return mydialect.MySQL
}

// DialectConfig returns the static dialect configuration.
func (a *Adapter) DialectConfig() *core.DialectConfig {
	return mydialect.MySQL.Config()
}

// Connect establishes a connection to MySQL. MySQL has no schemas inside a
// database, so the metadata schema defaults to the database name.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	driverCfg, err := buildMySQLConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to mysql", slog.String("addr", driverCfg.Addr), slog.String("database", driverCfg.DBName))

	connector, err := mysql.NewConnector(driverCfg)
	if err != nil {
		return fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	if cfg.Schema == "" {
		cfg.Schema = cfg.Database
	}
	a.DB = db
	a.Cfg = cfg
	a.ApplyPoolLimits()
	return nil
}

// buildMySQLConfig maps the repository config onto the driver config.
// Options other than "timeout" are passed through as connection parameters.
func buildMySQLConfig(cfg adapter.Config) (*mysql.Config, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := mysql.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.UTC

	for k, v := range cfg.Options {
		if k == "timeout" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid mysql timeout %q: %w", v, err)
			}
			c.Timeout = d
			continue
		}
		if c.Params == nil {
			c.Params = make(map[string]string)
		}
		c.Params[k] = v
	}
	return c, nil
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, mydialect.MySQL)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
