package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/agentdeck/agentdeck/pkg/paths"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd returns the logs command: print or follow today's daemon
// component log.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")
			path := paths.DaemonLogPath(time.Now().Format("2006-01-02"))

			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "No daemon log at %s\n", path)
				return nil
			}

			t, err := tail.TailFile(path, tail.Config{
				Follow:    follow,
				ReOpen:    follow,
				MustExist: true,
				Logger:    tail.DiscardingLogger,
			})
			if err != nil {
				return handle(cmd, err)
			}
			defer t.Cleanup()

			for line := range t.Lines {
				if line.Err != nil {
					return handle(cmd, line.Err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	return cmd
}
