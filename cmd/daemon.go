package cmd

import (
	"github.com/agentdeck/agentdeck/internal/daemon"
	"github.com/spf13/cobra"
)

// NewDaemonCmd returns the hidden daemon command: the persistent
// process the orchestrator spawns inside the hidden tmux session.
// Users normally never run it by hand.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Run the agentdeck daemon in the foreground",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return handle(cmd, err)
			}
			return handle(cmd, daemon.New(cfg).Run(cmd.Context()))
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on (default from config, 4310)")
	cmd.Flags().String("pin", "", "Shared PIN (default: generated)")
	cmd.Flags().Bool("no-auth", false, "Disable PIN/token checks")
	return cmd
}
