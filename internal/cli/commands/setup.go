package commands

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstore/internal/cli/config"
	"github.com/leapstack-labs/leapstore/internal/cli/output"
	"github.com/leapstack-labs/leapstore/internal/repository"
)

// errNoRepositories is returned by commands that need at least one repository.
var errNoRepositories = errors.New("no repositories configured\nHint: Add a repositories[] entry to leapstore.yaml or pass --config")

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Loaded
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		mode = output.ModeAuto
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}
}

// NewManager creates a repository manager over the loaded configuration.
func (cc *CommandContext) NewManager(opts ...repository.Option) (*repository.Manager, error) {
	if len(cc.Cfg.Repositories) == 0 {
		return nil, errNoRepositories
	}
	return repository.NewManager(cc.Cfg.Config, cc.Logger, opts...), nil
}
