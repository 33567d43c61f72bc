package tmux

import (
	"context"
	"strconv"
	"strings"
)

// SessionInfo holds the per-session fields used by the registry.
type SessionInfo struct {
	Name     string
	Attached int    // number of clients currently attached
	Command  string // active pane's running command
}

func (c *Client) SessionExists(ctx context.Context, sessionName string) (bool, error) {
	_, err := c.run(ctx, "has-session", "-t", "="+sessionName)
	if err == nil {
		return true, nil
	}

	if strings.Contains(err.Error(), "exit status 1") {
		return false, nil
	}

	return false, err
}

func (c *Client) KillSession(ctx context.Context, sessionName string) error {
	_, err := c.run(ctx, "kill-session", "-t", "="+sessionName)
	return err
}

// NewSession creates a detached session, optionally running a command and
// starting in a working directory.
func (c *Client) NewSession(ctx context.Context, sessionName, workingDir, cmd string) error {
	args := []string{"new-session", "-d", "-s", sessionName}
	if workingDir != "" {
		args = append(args, "-c", workingDir)
	}
	if cmd != "" {
		args = append(args, cmd)
	}
	_, err := c.run(ctx, args...)
	return err
}

// IsDuplicateSession reports whether an error from NewSession means the
// name was already taken (a race with another creator, retryable).
func IsDuplicateSession(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate session")
}

func (c *Client) SendKeys(ctx context.Context, target string, keys ...string) error {
	args := []string{"send-keys", "-t", "=" + target}
	args = append(args, keys...)
	_, err := c.run(ctx, args...)
	return err
}

// ResizeWindow resizes a session's current window, used to keep the tmux
// layout in step with the most recent viewer resize.
func (c *Client) ResizeWindow(ctx context.Context, sessionName string, cols, rows int) error {
	_, err := c.run(ctx, "resize-window", "-t", "="+sessionName,
		"-x", strconv.Itoa(cols), "-y", strconv.Itoa(rows))
	return err
}

// CapturePane returns the visible contents of the session's active pane,
// with ANSI escape codes preserved.
func (c *Client) CapturePane(ctx context.Context, target string) (string, error) {
	output, err := c.run(ctx, "capture-pane", "-e", "-p", "-t", "="+target)
	if err != nil {
		return "", err
	}
	return output, nil
}

// ListSessions returns the names of all sessions on this server. A
// missing server means no sessions, not an error.
func (c *Client) ListSessions(ctx context.Context) ([]string, error) {
	output, err := c.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if isNoServer(err) {
			return []string{}, nil
		}
		return nil, err
	}

	return splitLines(output), nil
}

// ListSessionsDetailed returns name, attached-client count, and the active
// pane's command for every session on this server.
func (c *Client) ListSessionsDetailed(ctx context.Context) ([]SessionInfo, error) {
	format := "#{session_name}\t#{session_attached}\t#{pane_current_command}"
	output, err := c.run(ctx, "list-sessions", "-F", format)
	if err != nil {
		if isNoServer(err) {
			return []SessionInfo{}, nil
		}
		return nil, err
	}

	lines := splitLines(output)
	sessions := make([]SessionInfo, 0, len(lines))
	for _, line := range lines {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue // Skip malformed lines
		}

		attached, err := strconv.Atoi(parts[1])
		if err != nil {
			attached = 0
		}

		sessions = append(sessions, SessionInfo{
			Name:     parts[0],
			Attached: attached,
			Command:  parts[2],
		})
	}
	return sessions, nil
}

// isNoServer matches the errors tmux produces when no server (and hence
// no session) exists for the target socket.
func isNoServer(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no server running") || strings.Contains(msg, "exit status 1")
}

func splitLines(output string) []string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "\n")
}
