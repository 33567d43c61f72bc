package tmux

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/agentdeck/agentdeck/command"
	deckerrors "github.com/agentdeck/agentdeck/errors"
)

type Client struct {
	builder *command.SafeBuilder
	socket  string // Socket name for dedicated tmux server (uses -L flag)
}

func NewClient() (*Client, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, deckerrors.TmuxNotFound(err)
	}

	builder := command.NewSafeBuilder()

	// Check if we're in a test environment with an isolated tmux socket.
	// Tests set AGENTDECK_TMUX_SOCKET so spawned processes use the same
	// isolated server.
	socket := ""
	if testSocket := os.Getenv("AGENTDECK_TMUX_SOCKET"); testSocket != "" {
		socket = testSocket
	}

	return &Client{
		builder: builder,
		socket:  socket,
	}, nil
}

// NewClientWithSocket creates a tmux client that uses a dedicated server socket.
// This provides isolation from the default tmux server.
func NewClientWithSocket(socket string) (*Client, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, deckerrors.TmuxNotFound(err)
	}

	return &Client{
		builder: command.NewSafeBuilder(),
		socket:  socket,
	}, nil
}

// Socket returns the socket name this client uses, or empty string for default.
func (c *Client) Socket() string {
	return c.socket
}

// KillServer kills the tmux server for this client's socket.
// Useful for cleaning up isolated test servers.
func (c *Client) KillServer(ctx context.Context) error {
	_, err := c.run(ctx, "kill-server")
	// Server already gone is the desired end state.
	if err != nil && strings.Contains(err.Error(), "no server running") {
		return nil
	}
	return err
}

// AttachArgs returns the argv used to attach a terminal to the given
// session, suitable both for a foreground exec and for a PTY-hosted attach.
func (c *Client) AttachArgs(sessionName string) []string {
	args := []string{"tmux"}
	if c.socket != "" {
		args = append(args, "-L", c.socket)
	}
	return append(args, "attach-session", "-t", "="+sessionName)
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	// Prepend socket flag if using a dedicated server
	if c.socket != "" {
		args = append([]string{"-L", c.socket}, args...)
	}

	cmd, err := c.builder.Build(ctx, "tmux", args...)
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}

	execCmd := cmd.Exec()
	output, err := execCmd.CombinedOutput()
	if err != nil {
		cmdStr := "tmux " + strings.Join(args, " ")
		return string(output), fmt.Errorf("tmux command failed: `%s`: %w, output: %s", cmdStr, err, string(output))
	}

	return string(output), nil
}
