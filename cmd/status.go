package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentdeck/agentdeck/cli"
	"github.com/agentdeck/agentdeck/internal/orchestrator"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/spf13/cobra"
)

// NewStatusCmd returns the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return handle(cmd, err)
			}

			client, err := tmux.NewClient()
			if err != nil {
				return handle(cmd, err)
			}

			report, err := orchestrator.New(cfg, client, os.Stdout).Status(cmd.Context())
			if err != nil {
				return handle(cmd, err)
			}

			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			out := cmd.OutOrStdout()
			if report.Running {
				fmt.Fprintf(out, "daemon: running (pid %d, port %d)\n",
					report.Record.PID, report.Record.Port)
				if report.Record.TunnelURL != "" {
					fmt.Fprintf(out, "tunnel: %s\n", report.Record.TunnelURL)
				}
			} else {
				fmt.Fprintln(out, "daemon: not running")
			}

			if len(report.Sessions) == 0 {
				fmt.Fprintln(out, "sessions: none")
				return nil
			}
			fmt.Fprintln(out, "sessions:")
			for _, s := range report.Sessions {
				marker := " "
				if s.IsAgent {
					marker = "*"
				}
				fmt.Fprintf(out, "  %s %s (%s)\n", marker, s.Name, s.Command)
			}
			return nil
		},
	}
}
