package schema

import (
	"sort"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// Database is the catalog of tables for one repository.
type Database struct {
	dialect       *dialect.Dialect
	tables        map[string]*Table
	physicalNames map[string]string // physical name -> logical name
}

// NewDatabase creates an empty catalog rendered through d.
func NewDatabase(d *dialect.Dialect) *Database {
	return &Database{
		dialect:       d,
		tables:        make(map[string]*Table),
		physicalNames: make(map[string]string),
	}
}

// Dialect returns the dialect the catalog renders through.
func (db *Database) Dialect() *dialect.Dialect {
	return db.dialect
}

// AddTable registers a table under its logical name. The physical name is
// the dialect-cased logical name with ':' replaced by '_'; two logical names
// that land on the same physical name are a SchemaError.
func (db *Database) AddTable(name string) (*Table, error) {
	physical := db.dialect.PhysicalName(name)
	if existing, ok := db.physicalNames[physical]; ok {
		return nil, &core.SchemaError{
			Table: name,
			Msg:   "physical name " + physical + " already used by table " + existing,
		}
	}
	t := &Table{
		db:           db,
		name:         name,
		physicalName: physical,
		quotedName:   db.dialect.QuoteIdentifier(physical),
		columns:      make(map[string]*Column),
		physicalCols: make(map[string]struct{}),
	}
	db.tables[name] = t
	db.physicalNames[physical] = name
	return t, nil
}

// Table returns the table registered under a logical name.
func (db *Database) Table(name string) (*Table, bool) {
	t, ok := db.tables[name]
	return t, ok
}

// Tables returns all tables sorted by logical name.
func (db *Database) Tables() []*Table {
	tables := make([]*Table, 0, len(db.tables))
	for _, t := range db.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].name < tables[j].name })
	return tables
}
