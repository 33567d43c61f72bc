package bridge

import (
	"os"
	"os/exec"

	"github.com/agentdeck/agentdeck/errors"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/creack/pty"
)

const (
	defaultRows = 40
	defaultCols = 120
)

// TmuxStarter returns a StartFunc that attaches a real PTY running
// `tmux attach-session` against the given client's server.
func TmuxStarter(client *tmux.Client) StartFunc {
	return func(session string, rows, cols uint16) (PTYHandle, error) {
		args := client.AttachArgs(session)
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Env = append(os.Environ(), "TERM=xterm-256color")

		f, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
		if err != nil {
			return nil, errors.PtySpawnFailed(session, err)
		}
		return &tmuxPTY{file: f, cmd: cmd}, nil
	}
}

type tmuxPTY struct {
	file *os.File
	cmd  *exec.Cmd
}

func (p *tmuxPTY) Read(b []byte) (int, error)  { return p.file.Read(b) }
func (p *tmuxPTY) Write(b []byte) (int, error) { return p.file.Write(b) }
func (p *tmuxPTY) Close() error                { return p.file.Close() }

func (p *tmuxPTY) Resize(rows, cols uint16) error {
	return pty.Setsize(p.file, &pty.Winsize{Rows: rows, Cols: cols})
}

func (p *tmuxPTY) Wait() (int, error) {
	err := p.cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}
