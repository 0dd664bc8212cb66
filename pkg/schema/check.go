package schema

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/core"
)

// Introspector reports the physical shape of a table.
type Introspector interface {
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
}

// Mismatch describes a column whose physical type does not fit the catalog.
type Mismatch struct {
	Table    string
	Column   string
	Expected string
	Actual   string
	Size     int
	// Missing is set when the column does not exist in the engine.
	Missing bool
}

// CheckTypes compares every catalog column with the engine's reported type.
// Mismatches are logged at warn level and returned; they never stop boot.
// Tables the engine cannot describe are skipped. Only context cancellation
// is reported as an error.
func CheckTypes(ctx context.Context, db *Database, in Introspector, logger *slog.Logger) ([]Mismatch, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	d := db.Dialect()
	var mismatches []Mismatch

	for _, t := range db.Tables() {
		if err := ctx.Err(); err != nil {
			return mismatches, err
		}
		md, err := in.GetTableMetadata(ctx, t.PhysicalName())
		if err != nil {
			logger.Info("skipping type check, table not readable", "table", t.PhysicalName(), "error", err)
			continue
		}

		physical := make(map[string]core.Column, len(md.Columns))
		for _, pc := range md.Columns {
			physical[strings.ToLower(pc.Name)] = pc
		}

		for _, c := range t.Columns() {
			pc, ok := physical[strings.ToLower(c.PhysicalName())]
			if !ok {
				logger.Warn("column missing from table",
					"table", t.PhysicalName(), "column", c.PhysicalName(), "expected", c.Info().Name)
				mismatches = append(mismatches, Mismatch{
					Table: t.PhysicalName(), Column: c.PhysicalName(), Expected: c.Info().Name, Missing: true,
				})
				continue
			}
			if c.AcceptsSQLType(d.SQLTypeOf(pc.Type), pc.Type, pc.Size) {
				continue
			}
			logger.Warn("column type mismatch",
				"table", t.PhysicalName(), "column", c.PhysicalName(),
				"expected", c.Info().Name, "actual", pc.Type, "size", pc.Size)
			mismatches = append(mismatches, Mismatch{
				Table: t.PhysicalName(), Column: c.PhysicalName(),
				Expected: c.Info().Name, Actual: pc.Type, Size: pc.Size,
			})
		}
	}
	return mismatches, nil
}
