// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/leapstore/internal/cli/output"
)

// HierarchyCatalog is a one-table catalog descriptor used across CLI tests.
const HierarchyCatalog = `
tables:
  - name: hierarchy
    columns:
      - { key: id, type: id, primary: true }
      - { key: name, type: string }
      - { key: pos, type: integer, nullable: true }
      - { key: tags, type: "string[]", nullable: true }
`

// SetupTestProject writes a leapstore.yaml with one sqlite repository named
// "main" and its catalog into a temporary directory. It returns the
// directory and the config file path. extra is appended to the config.
func SetupTestProject(t *testing.T, createTables bool, extra string) (dir, cfgPath string) {
	t.Helper()

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(HierarchyCatalog), 0o600); err != nil {
		t.Fatalf("failed to create catalog.yaml: %v", err)
	}

	cfg := fmt.Sprintf(`
admin:
  enabled: false
repositories:
  - name: main
    type: sqlite
    path: main.db
    catalog: catalog.yaml
    create_tables: %t
    pool:
      capacity: 2
      max_wait: 100ms
%s`, createTables, extra)

	cfgPath = filepath.Join(dir, "leapstore.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to create leapstore.yaml: %v", err)
	}
	return dir, cfgPath
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
