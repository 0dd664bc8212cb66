package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstore/internal/catalog"
	"github.com/leapstack-labs/leapstore/internal/cli/output"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// RenderOptions holds options for the render command.
type RenderOptions struct {
	Dialect    string
	Catalog    string
	Repository string
}

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render [table...]",
		Short: "Show resolved column types and CREATE TABLE for a dialect",
		Long: `Resolve a catalog descriptor against a dialect and print, per table, the
concrete column types and the CREATE TABLE statement used for first-time setup.

The descriptor and dialect come from --catalog and --dialect, or from a
configured repository (--repository, default the first one).

Output adapts to environment:
  - Terminal: Styled tables and plain SQL
  - Piped/Scripted: Markdown with code blocks`,
		Example: `  # Render the first repository's catalog
  leapstore render

  # Render a descriptor for MySQL
  leapstore render --catalog catalog.yaml --dialect mysql

  # Render one table as JSON
  leapstore render hierarchy --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			out, err := buildRenderOutput(cc, opts, args)
			if err != nil {
				return err
			}
			return renderTables(cc.Renderer, out)
		},
	}

	cmd.Flags().StringVarP(&opts.Dialect, "dialect", "d", "", "Dialect to render for ("+strings.Join(dialect.List(), ", ")+")")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "Catalog descriptor file")
	cmd.Flags().StringVar(&opts.Repository, "repository", "", "Take dialect and catalog from this repository")

	_ = cmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func buildRenderOutput(cc *CommandContext, opts *RenderOptions, tables []string) (output.RenderOutput, error) {
	name, path := opts.Dialect, opts.Catalog

	if opts.Repository != "" || name == "" || path == "" {
		repoName := opts.Repository
		if repoName == "" && len(cc.Cfg.Repositories) > 0 {
			repoName = cc.Cfg.Repositories[0].Name
		}
		if repoName != "" {
			rc, ok := cc.Cfg.Repository(repoName)
			if !ok {
				return output.RenderOutput{}, fmt.Errorf("unknown repository %q", repoName)
			}
			if name == "" {
				name = rc.Type
			}
			if path == "" {
				path = rc.Catalog
			}
		}
	}
	if name == "" {
		return output.RenderOutput{}, errors.New("--dialect is required when no repository is configured")
	}
	if path == "" {
		return output.RenderOutput{}, errors.New("--catalog is required when the repository has no catalog")
	}

	d, err := dialect.Lookup(name)
	if err != nil {
		return output.RenderOutput{}, err
	}
	desc, err := catalog.Load(path)
	if err != nil {
		return output.RenderOutput{}, err
	}
	db, err := desc.Build(d)
	if err != nil {
		return output.RenderOutput{}, err
	}

	selected, err := selectTables(db, tables)
	if err != nil {
		return output.RenderOutput{}, err
	}

	out := output.RenderOutput{Dialect: d.Name, Catalog: path, Tables: make([]output.TableInfo, 0, len(selected))}
	for _, t := range selected {
		ti := output.TableInfo{
			Name:      t.Name(),
			Physical:  t.PhysicalName(),
			CreateSQL: t.CreateSQL(),
		}
		for _, c := range t.Columns() {
			ti.Columns = append(ti.Columns, output.ColumnInfo{
				Key:      c.Key(),
				Name:     c.PhysicalName(),
				Type:     c.Type().String(),
				SQLType:  c.Info().Name,
				Primary:  c.IsPrimary(),
				Identity: c.IsIdentity(),
				Nullable: c.IsNullable(),
			})
		}
		out.Tables = append(out.Tables, ti)
	}
	return out, nil
}

func selectTables(db *schema.Database, names []string) ([]*schema.Table, error) {
	if len(names) == 0 {
		return db.Tables(), nil
	}
	tables := make([]*schema.Table, 0, len(names))
	for _, n := range names {
		t, ok := db.Table(n)
		if !ok {
			return nil, fmt.Errorf("table %q is not in the catalog", n)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func renderTables(r *output.Renderer, out output.RenderOutput) error {
	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Catalog for %s (%d tables)", out.Dialect, len(out.Tables)))
	if mode == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Descriptor", out.Catalog))
		r.Println()
	}

	for _, t := range out.Tables {
		r.Header(2, t.Name)
		rows := make([][]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			rows = append(rows, []string{c.Key, c.Name, c.Type, c.SQLType, columnFlags(c)})
		}
		r.Table([]string{"Key", "Column", "Type", "SQL type", "Flags"}, rows)

		if mode == output.ModeMarkdown {
			r.Println("```sql")
			r.Println(t.CreateSQL)
			r.Println("```")
			r.Println()
			continue
		}
		r.Println(t.CreateSQL)
		r.Println()
	}
	return nil
}

func columnFlags(c output.ColumnInfo) string {
	var flags []string
	if c.Primary {
		flags = append(flags, "primary")
	}
	if c.Identity {
		flags = append(flags, "identity")
	}
	if c.Nullable {
		flags = append(flags, "nullable")
	}
	return strings.Join(flags, ",")
}
