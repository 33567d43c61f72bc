// Package process provides PID liveness and termination helpers.
package process

import (
	"os"
	"syscall"
)

// IsAlive checks if a process with the given PID is still running.
// It uses a signal-sending method that is cross-platform for Unix-like
// systems (macOS, Linux).
func IsAlive(pid int) bool {
	// PID 0 or less is invalid.
	if pid <= 0 {
		return false
	}

	// Find the process. This doesn't fail on Unix if the process doesn't exist.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false // Should not happen on Unix-like systems.
	}

	// Sending signal 0 checks for existence without delivering a signal.
	// EPERM means the process exists but is owned by someone else; it is
	// still alive for our purposes.
	err = proc.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}

// Terminate sends SIGTERM to the given PID. A missing process is not an
// error: termination of something already gone is the caller's desired
// end state.
func Terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH || os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}
