package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapstore/internal/admin"
	"github.com/leapstack-labs/leapstore/internal/repository"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	ShutdownTimeout time.Duration
	RuntimeMetrics  bool

	// onReady runs once the repositories are started.
	onReady func(*repository.Manager)
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start every repository and the admin server",
		Long: `Start every configured repository and keep it running until interrupted.

Boot connects each repository, then, holding the cluster lock, builds the
catalogs, creates missing tables when create_tables is set and checks column
types. Session pools open afterwards. The admin server exposes /healthz,
/pools and /metrics unless --no-admin is given.`,
		Example: `  # Serve with ./leapstore.yaml
  leapstore serve

  # Serve on another admin address
  leapstore serve --admin-addr 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, NewCommandContext(cmd), opts)
		},
	}

	cmd.Flags().String("admin-addr", "", "Admin server listen address (overrides admin.addr)")
	cmd.Flags().Bool("no-admin", false, "Do not start the admin server")
	cmd.Flags().DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", 30*time.Second, "Time allowed for a graceful shutdown")
	cmd.Flags().BoolVar(&opts.RuntimeMetrics, "runtime-metrics", false, "Export Go runtime and process metrics")

	return cmd
}

func runServe(ctx context.Context, cc *CommandContext, opts *ServeOptions) error {
	m, err := cc.NewManager()
	if err != nil {
		return err
	}
	r := cc.Renderer

	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("failed to start repositories: %w", err)
	}
	for _, repo := range m.Repositories() {
		detail := fmt.Sprintf("%s, %d tables", repo.Config.Type, len(repo.Database().Tables()))
		status := "success"
		if n := len(m.Mismatches()[repo.Name()]); n > 0 {
			status = "warning"
			detail += fmt.Sprintf(", %d type mismatches", n)
		}
		r.StatusLine(repo.Name(), status, detail)
	}

	eg, egctx := errgroup.WithContext(ctx)
	if cc.Cfg.Admin.Enabled {
		srv := admin.NewServer(admin.Config{
			Addr:           cc.Cfg.Admin.Addr,
			Stats:          m.Pool(),
			Logger:         cc.Logger,
			RuntimeMetrics: opts.RuntimeMetrics,
		})
		eg.Go(func() error { return srv.Serve(egctx) })
	}
	if opts.onReady != nil {
		opts.onReady(m)
	}
	r.Success(fmt.Sprintf("Serving %d repositories", len(m.Repositories())))

	<-egctx.Done()
	cc.Logger.Info("shutting down", slog.String("reason", context.Cause(egctx).Error()))

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	serveErr := eg.Wait()
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}
	return errors.Join(serveErr, m.Shutdown(shutdownCtx))
}
