package cmd

import (
	"os"

	"github.com/agentdeck/agentdeck/internal/orchestrator"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/spf13/cobra"
)

// NewStopCmd returns the stop command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the agentdeck daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return handle(cmd, err)
			}

			client, err := tmux.NewClient()
			if err != nil {
				return handle(cmd, err)
			}

			o := orchestrator.New(cfg, client, os.Stdout)
			return handle(cmd, o.Stop(cmd.Context()))
		},
	}
}
