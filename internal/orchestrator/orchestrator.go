// Package orchestrator is the front door: the short-lived process that
// makes sure a daemon exists, reports how to reach it, and drops the
// user into a tmux session.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/agentdeck/agentdeck/config"
	"github.com/agentdeck/agentdeck/errors"
	"github.com/agentdeck/agentdeck/internal/registry"
	"github.com/agentdeck/agentdeck/internal/statusfile"
	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/agentdeck/agentdeck/pkg/process"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DaemonSessionName is the hidden tmux session the daemon runs in.
const DaemonSessionName = registry.HiddenPrefix + "daemon"

const (
	healthPollInterval = 250 * time.Millisecond
	healthPollDeadline = 10 * time.Second
	tunnelWaitDeadline = 5 * time.Second
)

// tmuxRunner is the slice of the tmux client the orchestrator needs.
type tmuxRunner interface {
	NewSession(ctx context.Context, name, workingDir, command string) error
	KillSession(ctx context.Context, name string) error
	AttachArgs(session string) []string
}

// Orchestrator drives the front-door flow.
type Orchestrator struct {
	cfg      *config.Config
	tmux     tmuxRunner
	registry *registry.Registry
	logger   *logrus.Entry
	out      io.Writer

	// Swappable seams for the process-level effects.
	spawn      func(ctx context.Context) error
	execAttach func(session string) error

	healthInterval time.Duration
	healthDeadline time.Duration
	tunnelDeadline time.Duration
}

func New(cfg *config.Config, client *tmux.Client, out io.Writer) *Orchestrator {
	o := &Orchestrator{
		cfg:            cfg,
		tmux:           client,
		registry:       registry.New(client, cfg.Session.Prefix, cfg.Session.AgentCommands),
		logger:         logging.NewLogger("orchestrator"),
		out:            out,
		healthInterval: healthPollInterval,
		healthDeadline: healthPollDeadline,
		tunnelDeadline: tunnelWaitDeadline,
	}
	o.spawn = o.spawnDaemon
	o.execAttach = o.execTmuxAttach
	return o
}

// Run is the default invocation: ensure a healthy daemon, print the
// connection info, create a fresh agent session and hand the terminal
// over to tmux. Returning from the attach (detach) is success.
func (o *Orchestrator) Run(ctx context.Context) error {
	rec, err := o.EnsureDaemon(ctx)
	if err != nil {
		return err
	}

	tunnelURL := o.waitTunnel(rec)
	o.printConnectionInfo(rec, tunnelURL)

	session, err := o.registry.Create(ctx, "", o.cfg.Session.Command)
	if err != nil {
		return err
	}
	fmt.Fprintf(o.out, "Attaching to %s (detach with C-b d)\n", session)
	return o.execAttach(session)
}

// EnsureDaemon returns the status record of a verified-healthy daemon,
// starting one if needed. On startup the daemon is polled until it
// answers /health; a daemon that never comes up is a fatal timeout and
// leaves no status record behind.
func (o *Orchestrator) EnsureDaemon(ctx context.Context) (*models.StatusRecord, error) {
	if state, rec := statusfile.Verify(); state == statusfile.Healthy {
		return rec, nil
	}

	o.logger.Info("Starting daemon")
	if err := o.spawn(ctx); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(o.healthDeadline)
	for time.Now().Before(deadline) {
		if state, rec := statusfile.Verify(); state == statusfile.Healthy {
			return rec, nil
		}
		time.Sleep(o.healthInterval)
	}

	// Don't leave a half-born daemon's record around.
	statusfile.Remove()
	o.tmux.KillSession(ctx, DaemonSessionName)
	return nil, errors.DaemonTimeout(o.healthDeadline.String())
}

// Stop terminates the recorded daemon and cleans up. Quiet and
// idempotent when nothing is running.
func (o *Orchestrator) Stop(ctx context.Context) error {
	rec, err := statusfile.Load()
	if err != nil {
		o.logger.WithError(err).Debug("Unreadable status record")
	}

	if rec != nil && process.IsAlive(rec.PID) {
		if err := process.Terminate(rec.PID); err != nil {
			o.logger.WithError(err).WithField("pid", rec.PID).Warn("Signaling daemon")
		}
		fmt.Fprintf(o.out, "Stopped daemon (pid %d)\n", rec.PID)
	} else {
		fmt.Fprintln(o.out, "No daemon running")
	}

	o.tmux.KillSession(ctx, DaemonSessionName)
	return statusfile.Remove()
}

// StatusReport is what `agentdeck status` renders.
type StatusReport struct {
	Running  bool                 `json:"running"`
	Record   *models.StatusRecord `json:"record,omitempty"`
	Sessions []models.Session     `json:"sessions"`
}

// Status verifies the daemon and lists sessions.
func (o *Orchestrator) Status(ctx context.Context) (StatusReport, error) {
	state, rec := statusfile.Verify()

	sessions, err := o.registry.List(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	return StatusReport{
		Running:  state == statusfile.Healthy,
		Record:   rec,
		Sessions: sessions,
	}, nil
}

// waitTunnel watches the status record for a tunnel URL, up to a
// bounded wait. A record that never grows one is normal; the deck is
// still reachable on the LAN.
func (o *Orchestrator) waitTunnel(rec *models.StatusRecord) string {
	if rec.TunnelURL != "" {
		return rec.TunnelURL
	}
	if !o.cfg.Tunnel.Enabled {
		return ""
	}

	path := statusfile.Path()

	var events chan fsnotify.Event
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(path)); err == nil {
			events = make(chan fsnotify.Event, 1)
			go forwardEvents(watcher, path, events)
		}
	}

	// Polling backstop: rename events are not reliable everywhere.
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(o.tunnelDeadline)
	defer deadline.Stop()

	for {
		if loaded, err := statusfile.Load(); err == nil && loaded != nil && loaded.TunnelURL != "" {
			return loaded.TunnelURL
		}
		select {
		case <-events:
		case <-ticker.C:
		case <-deadline.C:
			return ""
		}
	}
}

func forwardEvents(watcher *fsnotify.Watcher, path string, out chan<- fsnotify.Event) {
	for ev := range watcher.Events {
		if ev.Name != path {
			continue
		}
		select {
		case out <- ev:
		default:
		}
	}
}

func (o *Orchestrator) printConnectionInfo(rec *models.StatusRecord, tunnelURL string) {
	fmt.Fprintf(o.out, "agentdeck on http://127.0.0.1:%d\n", rec.Port)
	if tunnelURL != "" {
		fmt.Fprintf(o.out, "  tunnel: %s\n", tunnelURL)
	} else {
		fmt.Fprintln(o.out, "  tunnel: none")
	}
	if rec.PIN != "" {
		fmt.Fprintf(o.out, "  PIN: %s\n", rec.PIN)
	}
}

// spawnDaemon starts `agentdeck daemon` detached inside the hidden
// tmux session, so it survives this process and the user's terminal.
func (o *Orchestrator) spawnDaemon(ctx context.Context) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}

	parts := []string{strconv.Quote(exe), "daemon", "--port", strconv.Itoa(o.cfg.Server.Port)}
	if o.cfg.Server.NoAuth {
		parts = append(parts, "--no-auth")
	} else if o.cfg.Server.PIN != "" {
		parts = append(parts, "--pin", strconv.Quote(o.cfg.Server.PIN))
	}

	err = o.tmux.NewSession(ctx, DaemonSessionName, "", strings.Join(parts, " "))
	if tmux.IsDuplicateSession(err) {
		// A previous hidden session is still around without a healthy
		// daemon in it. Replace it.
		o.tmux.KillSession(ctx, DaemonSessionName)
		err = o.tmux.NewSession(ctx, DaemonSessionName, "", strings.Join(parts, " "))
	}
	return err
}

// execTmuxAttach replaces this process with tmux, giving the user's
// terminal to the session.
func (o *Orchestrator) execTmuxAttach(session string) error {
	argv := o.tmux.AttachArgs(session)
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return errors.TmuxNotFound(err)
	}
	return syscall.Exec(path, argv, os.Environ())
}
