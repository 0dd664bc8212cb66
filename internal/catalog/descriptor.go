// Package catalog loads the schema descriptor of a repository and keeps the
// built *schema.Database current while the file changes on disk.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// Descriptor is the YAML form of a catalog.
//
//	tables:
//	  - name: hierarchy
//	    columns:
//	      - { key: id, type: id, primary: true }
//	      - { key: parentid, type: id, references: hierarchy.id }
//	      - { key: name, type: string, nullable: false }
//	      - { key: tags, type: "string[]" }
type Descriptor struct {
	Tables []TableSpec `yaml:"tables"`
}

// TableSpec describes one table.
type TableSpec struct {
	Name    string       `yaml:"name"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ColumnSpec describes one column. Name defaults to Key.
type ColumnSpec struct {
	Key        string `yaml:"key"`
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Primary    bool   `yaml:"primary"`
	Identity   bool   `yaml:"identity"`
	Nullable   *bool  `yaml:"nullable"`
	Default    any    `yaml:"default"`
	References string `yaml:"references"`
}

// Parse decodes a descriptor. Unknown fields are rejected.
func Parse(data []byte) (*Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Descriptor
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return &d, nil
		}
		return nil, fmt.Errorf("failed to parse catalog descriptor: %w", err)
	}
	return &d, nil
}

// Load reads and decodes the descriptor at path.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog descriptor: %w", err)
	}
	return Parse(data)
}

// Build creates the catalog for dialect d.
func (desc *Descriptor) Build(d *dialect.Dialect) (*schema.Database, error) {
	db := schema.NewDatabase(d)
	for _, ts := range desc.Tables {
		if ts.Name == "" {
			return nil, &core.SchemaError{Msg: "table without a name"}
		}
		t, err := db.AddTable(ts.Name)
		if err != nil {
			return nil, err
		}
		for _, cs := range ts.Columns {
			if err := addColumn(t, cs); err != nil {
				return nil, err
			}
		}
	}
	return db, nil
}

func addColumn(t *schema.Table, cs ColumnSpec) error {
	if cs.Key == "" {
		return &core.SchemaError{Table: t.Name(), Msg: "column without a key"}
	}
	ct, err := core.ParseColumnType(cs.Type)
	if err != nil {
		return &core.SchemaError{Table: t.Name(), Msg: fmt.Sprintf("column %s: %v", cs.Key, err)}
	}

	if cs.Primary && cs.Nullable != nil && *cs.Nullable {
		return &core.SchemaError{Table: t.Name(), Msg: fmt.Sprintf("column %s: a primary key column cannot be nullable", cs.Key)}
	}

	var opts []schema.ColumnOption
	if cs.Primary {
		opts = append(opts, schema.WithPrimary())
	}
	if cs.Identity {
		opts = append(opts, schema.WithIdentity())
	}
	if cs.Nullable != nil {
		opts = append(opts, schema.WithNullable(*cs.Nullable))
	}
	if cs.Default != nil {
		opts = append(opts, schema.WithDefault(cs.Default))
	}
	if cs.References != "" {
		table, column, ok := strings.Cut(cs.References, ".")
		if !ok || table == "" || column == "" {
			return &core.SchemaError{Table: t.Name(), Msg: fmt.Sprintf("column %s: reference %q is not table.column", cs.Key, cs.References)}
		}
		opts = append(opts, schema.WithReference(table, column))
	}

	name := cs.Name
	if name == "" {
		name = cs.Key
	}
	_, err = t.AddColumn(name, ct, cs.Key, opts...)
	return err
}
