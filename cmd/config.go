package cmd

import (
	"fmt"

	"github.com/agentdeck/agentdeck/cli"
	"github.com/agentdeck/agentdeck/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd returns the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate the agentdeck configuration",
	}
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration against its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				found, err := config.FindConfigFile()
				if err != nil {
					return handle(cmd, err)
				}
				if found == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "No config file found; defaults are in effect.")
					return nil
				}
				path = found
			}

			raw, err := config.LoadRaw(path)
			if err != nil {
				return handle(cmd, err)
			}

			validator, err := config.NewValidator()
			if err != nil {
				return handle(cmd, err)
			}
			if err := validator.Validate(raw); err != nil {
				return handle(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return handle(cmd, err)
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return handle(cmd, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
