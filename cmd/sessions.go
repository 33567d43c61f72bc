package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentdeck/agentdeck/cli"
	"github.com/agentdeck/agentdeck/internal/registry"
	"github.com/agentdeck/agentdeck/internal/statusfile"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/spf13/cobra"
)

// NewSessionsCmd returns the sessions command. It asks the daemon
// when one is running (that answer includes bridge-backed sessions the
// daemon knows about) and falls back to direct tmux discovery when
// none is.
func NewSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List visible tmux sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return handle(cmd, err)
			}

			sessions, err := listSessions(cmd.Context(), cfg.Session.Prefix, cfg.Session.AgentCommands)
			if err != nil {
				return handle(cmd, err)
			}

			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}

			renderSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func renderSessions(w io.Writer, sessions []models.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions")
		return
	}
	for _, s := range sessions {
		marker := " "
		if s.IsAgent {
			marker = "*"
		}
		attached := ""
		if s.Attached > 0 {
			attached = " [attached]"
		}
		fmt.Fprintf(w, "%s %s (%s)%s\n", marker, s.Name, s.Command, attached)
	}
}

func listSessions(ctx context.Context, prefix string, agentCommands []string) ([]models.Session, error) {
	if state, rec := statusfile.Verify(); state == statusfile.Healthy {
		if sessions, err := sessionsFromDaemon(rec); err == nil {
			return sessions, nil
		}
		// Daemon answered /health but not /sessions; fall through to tmux.
	}

	client, err := tmux.NewClient()
	if err != nil {
		return nil, err
	}
	return registry.New(client, prefix, agentCommands).List(ctx)
}

func sessionsFromDaemon(rec *models.StatusRecord) ([]models.Session, error) {
	client := &http.Client{Timeout: 3 * time.Second}
	base := fmt.Sprintf("http://127.0.0.1:%d", rec.Port)

	body, err := json.Marshal(map[string]string{"pin": rec.PIN})
	if err != nil {
		return nil, err
	}
	resp, err := client.Post(base+"/auth", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth failed: %s", resp.Status)
	}

	var auth struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, base+"/sessions", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	listResp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing sessions: %s", listResp.Status)
	}

	var sessions []models.Session
	if err := json.NewDecoder(listResp.Body).Decode(&sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}
