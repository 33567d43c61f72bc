// Package paths provides XDG-compliant path resolution for agentdeck.
//
// Resolution order:
// 1. AGENTDECK_HOME (portable root) → $AGENTDECK_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/agentdeck
// 3. Platform defaults → ~/.config/agentdeck, ~/.local/state/agentdeck
package paths

import (
	"os"
	"path/filepath"
)

func getConfigHome() string {
	if deckHome := os.Getenv("AGENTDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

func getStateHome() string {
	if deckHome := os.Getenv("AGENTDECK_HOME"); deckHome != "" {
		return filepath.Join(deckHome, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the agentdeck configuration directory.
// Used for agentdeck.yml / agentdeck.toml.
func ConfigDir() string {
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "agentdeck")
}

// StateDir returns the agentdeck state directory.
// Used for the daemon status record and log files.
func StateDir() string {
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "agentdeck")
}

// LogDir returns the directory that component log files are written to.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// StatusFilePath returns the path of the daemon status record.
// The record is advisory: consumers must verify PID liveness and the
// health endpoint before trusting its contents.
func StatusFilePath() string {
	return filepath.Join(StateDir(), "daemon.json")
}

// DaemonLogPath returns the path of the daemon log file for the given
// date string (YYYY-MM-DD).
func DaemonLogPath(date string) string {
	return filepath.Join(LogDir(), "daemon-"+date+".log")
}

// EnsureDirs creates the agentdeck directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
