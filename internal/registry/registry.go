// Package registry discovers tmux sessions and manages the deck's
// auto-generated session namespace.
package registry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentdeck/agentdeck/errors"
	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/sirupsen/logrus"
)

// HiddenPrefix marks sessions the deck runs for itself. They never
// appear in listings and never participate in name generation.
const HiddenPrefix = "agentdeck-"

const createRetries = 3

// Registry lists and creates tmux sessions on behalf of the daemon.
type Registry struct {
	tmux          *tmux.Client
	prefix        string
	agentCommands []string
	logger        *logrus.Entry
}

func New(client *tmux.Client, prefix string, agentCommands []string) *Registry {
	if prefix == "" {
		prefix = "agent"
	}
	return &Registry{
		tmux:          client,
		prefix:        prefix,
		agentCommands: agentCommands,
		logger:        logging.NewLogger("registry"),
	}
}

// List returns all visible tmux sessions. A dead tmux server is not an
// error; it reports as zero sessions.
func (r *Registry) List(ctx context.Context) ([]models.Session, error) {
	infos, err := r.tmux.ListSessionsDetailed(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(infos))
	for _, info := range infos {
		if strings.HasPrefix(info.Name, HiddenPrefix) {
			continue
		}
		sessions = append(sessions, models.Session{
			Name:     info.Name,
			Attached: info.Attached,
			Command:  info.Command,
			IsAgent:  r.isAgent(info.Name, info.Command),
		})
	}
	return sessions, nil
}

// NextName generates the next session name for the configured prefix:
// one past the highest existing numeric suffix, starting at 1.
func (r *Registry) NextName(ctx context.Context) (string, error) {
	infos, err := r.tmux.ListSessionsDetailed(ctx)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return nextName(names, r.prefix), nil
}

// Create makes a new detached session running command. The name is
// auto-generated; on a duplicate-name race it regenerates and retries.
func (r *Registry) Create(ctx context.Context, workingDir, command string) (string, error) {
	for attempt := 0; attempt < createRetries; attempt++ {
		name, err := r.NextName(ctx)
		if err != nil {
			return "", err
		}
		err = r.tmux.NewSession(ctx, name, workingDir, command)
		if err == nil {
			r.logger.WithField("session", name).Info("Created session")
			return name, nil
		}
		if !tmux.IsDuplicateSession(err) {
			return "", err
		}
		r.logger.WithField("session", name).Debug("Name raced, retrying")
	}
	return "", errors.SessionNaming(r.prefix, createRetries)
}

// Exists reports whether the named visible session exists.
func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	return r.tmux.SessionExists(ctx, name)
}

// Kill terminates the named session.
func (r *Registry) Kill(ctx context.Context, name string) error {
	exists, err := r.tmux.SessionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return errors.SessionNotFound(name)
	}
	return r.tmux.KillSession(ctx, name)
}

// isAgent is a heuristic: the pane runs a known agent command, or the
// session name mentions one.
func (r *Registry) isAgent(name, command string) bool {
	for _, agent := range r.agentCommands {
		if command == agent || strings.Contains(name, agent) {
			return true
		}
	}
	return false
}

// nextName scans existing session names for the prefix-N pattern and
// returns prefix-(max+1). Non-numeric suffixes are ignored, so a
// session named "agent-foo" never blocks generation.
func nextName(names []string, prefix string) string {
	max := 0
	pat := prefix + "-"
	for _, name := range names {
		if !strings.HasPrefix(name, pat) {
			continue
		}
		n, err := strconv.Atoi(name[len(pat):])
		if err != nil || n <= 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%d", pat[:len(pat)-1], max+1)
}
