// Package cmd holds the agentdeck CLI commands.
package cmd

import (
	"os"

	"github.com/agentdeck/agentdeck/cli"
	"github.com/agentdeck/agentdeck/config"
	"github.com/agentdeck/agentdeck/internal/orchestrator"
	"github.com/agentdeck/agentdeck/pkg/profiling"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the agentdeck command tree. Running with no
// subcommand is the front-door flow: ensure a daemon, print how to
// reach it, drop into a fresh session.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"agentdeck",
		"Drive a terminal agent from your phone",
	)
	rootCmd.Long = `agentdeck keeps long-running terminal agents inside tmux sessions and
serves them to browser viewers over a websocket, so a phone can watch
and type without ever blocking the agent.`

	rootCmd.Flags().Int("port", 0, "Daemon port (default from config, 4310)")
	rootCmd.Flags().String("pin", "", "Shared PIN (default: generated)")
	rootCmd.Flags().Bool("no-auth", false, "Disable PIN/token checks")

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(rootCmd)
	rootCmd.PersistentPreRunE = profiler.PreRun
	rootCmd.PersistentPostRun = profiler.PostRun

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return handle(cmd, err)
		}

		client, err := tmux.NewClient()
		if err != nil {
			return handle(cmd, err)
		}

		o := orchestrator.New(cfg, client, os.Stdout)
		return handle(cmd, o.Run(cmd.Context()))
	}

	rootCmd.AddCommand(NewDaemonCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewSessionsCmd())
	rootCmd.AddCommand(NewLogsCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	cli.ApplyStyledHelpRecursive(rootCmd)
	return rootCmd
}

// resolveConfig loads config and layers the server flags over it.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if pin, _ := cmd.Flags().GetString("pin"); pin != "" {
		cfg.Server.PIN = pin
	}
	if noAuth, _ := cmd.Flags().GetBool("no-auth"); noAuth {
		cfg.Server.NoAuth = true
	}
	return cfg, nil
}

// handle routes errors through the shared handler so every command
// reports them the same way.
func handle(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	opts := cli.GetOptions(cmd)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cli.NewErrorHandler(opts.Verbose).Handle(err)
}
