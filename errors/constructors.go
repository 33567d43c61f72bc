package errors

import (
	"fmt"
	"os/exec"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *DeckError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *DeckError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// InvalidCredential creates a wrong-PIN error. The submitted value is
// deliberately not recorded in the details.
func InvalidCredential() *DeckError {
	return New(ErrCodeInvalidCredential, "submitted PIN does not match")
}

// SessionNotFound creates a missing tmux session error
func SessionNotFound(name string) *DeckError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session '%s' not found", name)).
		WithDetail("session", name)
}

// SessionNaming creates an error for exhausted auto-naming retries
func SessionNaming(prefix string, attempts int) *DeckError {
	return New(ErrCodeSessionNaming,
		fmt.Sprintf("could not create a uniquely named '%s-N' session after %d attempts", prefix, attempts)).
		WithDetail("prefix", prefix).
		WithDetail("attempts", attempts)
}

// PtySpawnFailed creates a pseudo-terminal spawn error
func PtySpawnFailed(session string, err error) *DeckError {
	return Wrap(err, ErrCodePtySpawnFailed,
		fmt.Sprintf("failed to spawn pseudo-terminal for session '%s'", session)).
		WithDetail("session", session)
}

// DaemonTimeout creates a daemon startup timeout error
func DaemonTimeout(timeout string) *DeckError {
	return New(ErrCodeDaemonTimeout,
		fmt.Sprintf("daemon did not become healthy within %s", timeout)).
		WithDetail("timeout", timeout)
}

// DaemonNotRunning creates an error for operations requiring a live daemon
func DaemonNotRunning() *DeckError {
	return New(ErrCodeDaemonNotRunning, "no daemon is running")
}

// PortConflict creates a port conflict error
func PortConflict(port int, err error) *DeckError {
	return Wrap(err, ErrCodePortConflict,
		fmt.Sprintf("port %d is already in use", port)).
		WithDetail("port", port)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *DeckError {
	deckErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		deckErr = deckErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return deckErr
}

// TmuxNotFound creates a missing-tmux-binary error
func TmuxNotFound(err error) *DeckError {
	return Wrap(err, ErrCodeTmuxNotFound, "tmux is not installed or not in PATH")
}
