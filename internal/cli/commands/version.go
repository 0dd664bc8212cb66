package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstore/pkg/adapter"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapstore version, build information and the compiled-in adapters.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "leapstore v%s\n", version)
			_, _ = fmt.Fprintf(w, "commit %s, built %s, %s\n", commit, date, runtime.Version())
			_, _ = fmt.Fprintf(w, "adapters: %v\n", adapter.ListAdapters())
		},
	}
}
