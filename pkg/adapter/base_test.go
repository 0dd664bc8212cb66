package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		expectErr bool
	}{
		{
			name:      "close with nil DB",
			setupDB:   false,
			expectErr: false,
		},
		{
			name:      "close with open DB",
			setupDB:   true,
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			err := base.Close()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		expectErr bool
		errMsg    string
	}{
		{
			name:      "exec without connection",
			setupDB:   false,
			sql:       "SELECT 1",
			expectErr: true,
			errMsg:    "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE users").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql:       "CREATE TABLE users (id INT)",
			expectErr: false,
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errMsg:    "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()

				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			err := base.Exec(ctx, tt.sql)
			if tt.expectErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_Ping(t *testing.T) {
	t.Run("without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		err := base.Ping(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database connection not established")
	})

	t.Run("ping failure", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing().WillReturnError(assert.AnError)

		base := &BaseSQLAdapter{DB: db}
		err = base.Ping(context.Background())
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to ping database")
	})

	t.Run("ping success", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		mock.ExpectPing()

		base := &BaseSQLAdapter{DB: db}
		require.NoError(t, base.Ping(context.Background()))
		assert.Same(t, db, base.SQLDB())
	})
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	d := dialect.NewDialect("meta").PlaceholderStyle(core.PlaceholderDollar).DefaultSchema("public").Build()

	tests := []struct {
		name      string
		schema    string
		table     string
		setupMock func(mock sqlmock.Sqlmock)
		expected  *core.TableMetadata
		errMsg    string
	}{
		{
			name:  "default schema with sizes",
			table: "hierarchy",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length", "is_nullable", "ordinal_position"}).
					AddRow("id", "character varying", int64(36), "NO", 1).
					AddRow("body", "text", nil, "YES", 2).
					AddRow("huge", "longtext", int64(4294967295), "YES", 3)
				mock.ExpectQuery("FROM information_schema.columns").
					WithArgs("public", "hierarchy").
					WillReturnRows(rows)
			},
			expected: &core.TableMetadata{
				Schema: "public",
				Name:   "hierarchy",
				Columns: []core.Column{
					{Name: "id", Type: "character varying", Size: 36, Nullable: false, Position: 1},
					{Name: "body", Type: "text", Size: 0, Nullable: true, Position: 2},
					{Name: "huge", Type: "longtext", Size: 1<<31 - 1, Nullable: true, Position: 3},
				},
			},
		},
		{
			name:   "configured schema and qualified name",
			schema: "ignored",
			table:  "other.acls",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length", "is_nullable", "ordinal_position"}).
					AddRow("id", "bigint", nil, "NO", 1)
				mock.ExpectQuery("FROM information_schema.columns").
					WithArgs("other", "acls").
					WillReturnRows(rows)
			},
			expected: &core.TableMetadata{
				Schema:  "other",
				Name:    "acls",
				Columns: []core.Column{{Name: "id", Type: "bigint", Position: 1}},
			},
		},
		{
			name:  "missing table",
			table: "absent",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM information_schema.columns").
					WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length", "is_nullable", "ordinal_position"}))
			},
			errMsg: "table absent not found",
		},
		{
			name:  "query error",
			table: "broken",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM information_schema.columns").WillReturnError(assert.AnError)
			},
			errMsg: "failed to query column metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			base := &BaseSQLAdapter{DB: db, Cfg: core.AdapterConfig{Schema: tt.schema}}
			md, err := base.GetTableMetadataCommon(context.Background(), tt.table, d)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, md)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	tests := []struct {
		name     string
		setupDB  bool
		expected bool
	}{
		{
			name:     "not connected",
			setupDB:  false,
			expected: false,
		},
		{
			name:     "connected",
			setupDB:  true,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, _, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				base.DB = db
			}

			assert.Equal(t, tt.expected, base.IsConnected())
		})
	}
}
