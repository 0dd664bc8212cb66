package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstore/internal/cli/output"
	"github.com/leapstack-labs/leapstore/pkg/adapter"
	"github.com/leapstack-labs/leapstore/pkg/core"
	"github.com/leapstack-labs/leapstore/pkg/dialect"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the registered SQL dialects",
		Long: `List every registered SQL dialect with its default schema, placeholder
style, array storage and identifier quote, and whether an adapter for it is
compiled in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			return renderDialects(cc.Renderer, listDialects())
		},
	}
}

func listDialects() []output.DialectInfo {
	names := dialect.List()
	infos := make([]output.DialectInfo, 0, len(names))
	for _, name := range names {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		placeholder := "?"
		if d.Placeholder == core.PlaceholderDollar {
			placeholder = "$N"
		}
		infos = append(infos, output.DialectInfo{
			Name:          d.Name,
			DefaultSchema: d.DefaultSchema,
			Placeholder:   placeholder,
			Arrays:        d.Arrays.String(),
			Quote:         d.Identifiers.Quote,
			Adapter:       adapter.IsRegistered(d.Name),
		})
	}
	return infos
}

func renderDialects(r *output.Renderer, infos []output.DialectInfo) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}
	rows := make([][]string, 0, len(infos))
	for _, d := range infos {
		rows = append(rows, []string{d.Name, d.DefaultSchema, d.Placeholder, d.Arrays, d.Quote, strconv.FormatBool(d.Adapter)})
	}
	r.Header(1, "Dialects")
	r.Table([]string{"Name", "Default schema", "Placeholder", "Arrays", "Quote", "Adapter"}, rows)
	return nil
}
