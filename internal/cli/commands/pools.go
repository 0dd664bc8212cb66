package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapstore/internal/cli/output"
	"github.com/leapstack-labs/leapstore/pkg/session"
)

// NewPoolsCommand creates the pools command.
func NewPoolsCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "pools [repository]",
		Short: "Show session pool statistics of a running server",
		Long: `Fetch session pool statistics from the admin server of a running
'leapstore serve' and print them.`,
		Example: `  # Pools of the local server
  leapstore pools

  # One repository of a remote server
  leapstore pools main --addr db-node-2:9464`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			if addr == "" {
				addr = cc.Cfg.Admin.Addr
			}
			var repo string
			if len(args) == 1 {
				repo = args[0]
			}
			stats, err := fetchPools(cmd.Context(), adminURL(addr), repo)
			if err != nil {
				return err
			}
			return renderPools(cc.Renderer, stats)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Admin server address (default: admin.addr)")

	return cmd
}

// adminURL turns a listen address into a base URL, defaulting the host to localhost.
func adminURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimSuffix(addr, "/")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func fetchPools(ctx context.Context, baseURL, repo string) ([]session.Stats, error) {
	url := baseURL + "/pools"
	if repo != "" {
		url += "/" + repo
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach admin server at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error != "" {
			return nil, fmt.Errorf("admin server: %s", body.Error)
		}
		return nil, fmt.Errorf("admin server: unexpected status %s", resp.Status)
	}

	if repo != "" {
		var st session.Stats
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return nil, fmt.Errorf("failed to decode pool statistics: %w", err)
		}
		return []session.Stats{st}, nil
	}
	var stats []session.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode pool statistics: %w", err)
	}
	return stats, nil
}

func renderPools(r *output.Renderer, stats []session.Stats) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(stats)
	}
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Repository,
			strconv.Itoa(s.Capacity),
			strconv.Itoa(s.Active),
			strconv.Itoa(s.Idle),
			strconv.FormatUint(s.Borrowed, 10),
			strconv.FormatUint(s.BorrowTimeouts, 10),
			strconv.FormatUint(s.Destroyed, 10),
		})
	}
	r.Header(1, "Session pools")
	r.Table([]string{"Repository", "Capacity", "Active", "Idle", "Borrowed", "Timeouts", "Destroyed"}, rows)
	return nil
}
