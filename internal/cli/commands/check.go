package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstore/internal/cli/output"
	"github.com/leapstack-labs/leapstore/internal/repository"
	"github.com/leapstack-labs/leapstore/pkg/schema"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Strict bool
}

// errMismatches is returned by check --strict when any column mismatches.
type errMismatches int

func (e errMismatches) Error() string {
	return fmt.Sprintf("%d column type mismatches found", int(e))
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare catalog column types with the databases",
		Long: `Connect to every repository, build its catalog and compare each column
with the type the database reports. Nothing is created or modified.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Check all repositories
  leapstore check

  # Fail when any column mismatches (for CI)
  leapstore check --strict

  # Output as JSON
  leapstore check --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			m, err := cc.NewManager()
			if err != nil {
				return err
			}
			found, err := m.Inspect(cmd.Context())
			if err != nil {
				return fmt.Errorf("check failed: %w", err)
			}
			return renderCheck(cc.Renderer, buildCheckOutput(m, found), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit with an error when mismatches are found")

	return cmd
}

func buildCheckOutput(m *repository.Manager, found map[string][]schema.Mismatch) output.CheckOutput {
	out := output.CheckOutput{Repositories: []output.RepositoryCheck{}}
	for _, repo := range m.Repositories() {
		rc := output.RepositoryCheck{
			Repository: repo.Name(),
			Dialect:    repo.Dialect().Name,
			Tables:     len(repo.Database().Tables()),
			Mismatches: []output.MismatchInfo{},
		}
		for _, mm := range found[repo.Name()] {
			rc.Mismatches = append(rc.Mismatches, output.MismatchInfo{
				Table:    mm.Table,
				Column:   mm.Column,
				Expected: mm.Expected,
				Actual:   mm.Actual,
				Size:     mm.Size,
				Missing:  mm.Missing,
			})
		}
		out.Repositories = append(out.Repositories, rc)
		out.Summary.Mismatches += len(rc.Mismatches)
	}
	out.Summary.Repositories = len(out.Repositories)
	return out
}

func renderCheck(r *output.Renderer, out output.CheckOutput, opts *CheckOptions) error {
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		r.Header(1, "Type check")
		for _, rc := range out.Repositories {
			detail := fmt.Sprintf("%s, %d tables", rc.Dialect, rc.Tables)
			if len(rc.Mismatches) == 0 {
				r.StatusLine(rc.Repository, "success", detail)
				continue
			}
			r.StatusLine(rc.Repository, "warning", fmt.Sprintf("%s, %d mismatches", detail, len(rc.Mismatches)))
		}
		r.Println()

		if out.Summary.Mismatches == 0 {
			r.Success("All catalog columns match the database")
		} else {
			rows := make([][]string, 0, out.Summary.Mismatches)
			for _, rc := range out.Repositories {
				for _, mm := range rc.Mismatches {
					actual := mm.Actual
					if mm.Missing {
						actual = "(missing)"
					} else if mm.Size > 0 {
						actual += "(" + strconv.Itoa(mm.Size) + ")"
					}
					rows = append(rows, []string{rc.Repository, mm.Table, mm.Column, mm.Expected, actual})
				}
			}
			r.Header(2, "Mismatches")
			r.Table([]string{"Repository", "Table", "Column", "Expected", "Actual"}, rows)
		}
	}

	if opts.Strict && out.Summary.Mismatches > 0 {
		return errMismatches(out.Summary.Mismatches)
	}
	return nil
}
