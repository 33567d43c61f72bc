package cli

import (
	"fmt"
	"os"

	"github.com/agentdeck/agentdeck/errors"
)

// ErrorHandler turns deck errors into actionable messages.
type ErrorHandler struct {
	Verbose bool
}

func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{Verbose: verbose}
}

// Handle prints a user-facing message for err and returns it so the
// caller can still exit non-zero.
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeTmuxNotFound:
		fmt.Fprintf(os.Stderr, "❌ tmux not found. Install tmux and make sure it is on PATH.\n")
		return err

	case errors.ErrCodePortConflict:
		if deckErr, ok := err.(*errors.DeckError); ok {
			fmt.Fprintf(os.Stderr, "❌ Port %v is already in use\n", deckErr.Details["port"])
			fmt.Fprintf(os.Stderr, "Stop the conflicting process or change server.port in agentdeck.yml\n")
		}
		return err

	case errors.ErrCodeDaemonTimeout:
		if deckErr, ok := err.(*errors.DeckError); ok {
			fmt.Fprintf(os.Stderr, "❌ Daemon did not become healthy within %v\n", deckErr.Details["timeout"])
			fmt.Fprintf(os.Stderr, "Check the daemon log with 'agentdeck logs'\n")
		}
		return err

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(os.Stderr, "❌ No daemon is running. Start one with 'agentdeck'.\n")
		return err

	case errors.ErrCodeSessionNotFound:
		if deckErr, ok := err.(*errors.DeckError); ok {
			fmt.Fprintf(os.Stderr, "❌ Session '%s' not found\n", deckErr.Details["session"])
			fmt.Fprintf(os.Stderr, "Run 'agentdeck sessions' to see what exists.\n")
		}
		return err

	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration file not found.\n")
		return err

	case errors.ErrCodeInvalidCredential:
		fmt.Fprintf(os.Stderr, "❌ Wrong PIN.\n")
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		if h.Verbose {
			if deckErr, ok := err.(*errors.DeckError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", deckErr.ToJSON())
			}
		}
		return err
	}
}
