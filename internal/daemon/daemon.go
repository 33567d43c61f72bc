// Package daemon is the persistent half of the deck: it owns the
// bridges, the auth gate and the HTTP/websocket surface, and outlives
// any front-door invocation.
package daemon

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentdeck/agentdeck/config"
	"github.com/agentdeck/agentdeck/errors"
	"github.com/agentdeck/agentdeck/internal/auth"
	"github.com/agentdeck/agentdeck/internal/bridge"
	"github.com/agentdeck/agentdeck/internal/hookrelay"
	"github.com/agentdeck/agentdeck/internal/notify"
	"github.com/agentdeck/agentdeck/internal/protocol"
	"github.com/agentdeck/agentdeck/internal/registry"
	"github.com/agentdeck/agentdeck/internal/statusfile"
	"github.com/agentdeck/agentdeck/internal/tunnel"
	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/agentdeck/agentdeck/pkg/paths"
	"github.com/agentdeck/agentdeck/pkg/tmux"
	"github.com/sirupsen/logrus"
)

const shutdownGrace = 5 * time.Second

// Daemon wires the session registry, bridges, hub and HTTP server
// together for one run.
type Daemon struct {
	cfg    *config.Config
	logger *logrus.Entry
}

func New(cfg *config.Config) *Daemon {
	return &Daemon{cfg: cfg, logger: logging.NewLogger("daemon")}
}

// Run serves until ctx is done or a termination signal arrives. The
// status record is written once the listener is up and removed on
// clean shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("preparing state directories: %w", err)
	}

	tmuxClient, err := tmux.NewClient()
	if err != nil {
		return err
	}

	gate, err := d.buildGate()
	if err != nil {
		return err
	}

	reg := registry.New(tmuxClient, d.cfg.Session.Prefix, d.cfg.Session.AgentCommands)
	manager := bridge.NewManager(bridge.TmuxStarter(tmuxClient), d.cfg.Server.ScrollbackBytes)
	store := notify.NewStore()
	dispatcher := d.buildDispatcher()

	hub := protocol.NewHub(manager, reg, store, d.cfg.Hooks.DecisionKeys)
	relay := hookrelay.New(hub, notifyForwarder{dispatcher})
	server := NewServer(gate, hub, relay, reg)

	addr := fmt.Sprintf("127.0.0.1:%d", d.cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.PortConflict(d.cfg.Server.Port, err)
	}

	record := models.StatusRecord{
		PID:       os.Getpid(),
		Port:      d.cfg.Server.Port,
		PIN:       gate.PIN(),
		StartedAt: time.Now().UTC(),
	}
	if err := statusfile.Write(record); err != nil {
		listener.Close()
		return fmt.Errorf("writing status record: %w", err)
	}

	go hub.Run(ctx)
	go d.provisionTunnel(ctx, record)

	httpServer := &http.Server{Handler: server.Handler()}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(listener) }()

	d.logger.WithField("addr", addr).Info("Daemon listening")
	if !gate.Disabled() {
		d.logger.WithField("pin", gate.PIN()).Info("PIN ready")
	}

	select {
	case <-ctx.Done():
		d.logger.Info("Shutting down")
	case err := <-serveErr:
		statusfile.Remove()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
	manager.CloseAll()
	statusfile.Remove()
	return nil
}

func (d *Daemon) buildGate() (*auth.Gate, error) {
	if d.cfg.Server.NoAuth {
		d.logger.Warn("Auth disabled")
		return auth.NewDisabledGate(), nil
	}
	return auth.NewGate(d.cfg.Server.PIN)
}

func (d *Daemon) buildDispatcher() *notify.Dispatcher {
	var relays []notify.Relay
	if d.cfg.Notify.Ntfy.Topic != "" {
		relays = append(relays, notify.NewNtfyRelay(d.cfg.Notify.Ntfy.URL, d.cfg.Notify.Ntfy.Topic))
	}
	return notify.NewDispatcher(relays...)
}

// provisionTunnel tries the configured providers and, when one yields
// a URL, rewrites the status record with it. No tunnel is fine; the
// record simply keeps a null URL.
func (d *Daemon) provisionTunnel(ctx context.Context, record models.StatusRecord) {
	if !d.cfg.Tunnel.Enabled {
		return
	}

	providers := make([]tunnel.Provider, 0, len(d.cfg.Tunnel.Providers))
	for _, pc := range d.cfg.Tunnel.Providers {
		p, err := tunnel.NewCommandProvider(pc.Name, pc.Command, pc.URLPattern)
		if err != nil {
			d.logger.WithError(err).WithField("provider", pc.Name).Warn("Skipping tunnel provider")
			continue
		}
		providers = append(providers, p)
	}

	url := tunnel.NewChain(providers...).Expose(ctx, d.cfg.Server.Port)
	if url == "" {
		return
	}

	record.TunnelURL = url
	if err := statusfile.Write(record); err != nil {
		d.logger.WithError(err).Error("Rewriting status record with tunnel URL")
	}
}

// notifyForwarder adapts the push dispatcher to the hook relay's
// forwarding interface.
type notifyForwarder struct {
	dispatcher *notify.Dispatcher
}

func (f notifyForwarder) ForwardPermission(event models.PermissionEvent) {
	f.dispatcher.Dispatch("Permission request", event.ToolName)
}

func (f notifyForwarder) ForwardNotification(title, message string) {
	f.dispatcher.Dispatch(title, message)
}

func (f notifyForwarder) ForwardEvent(event models.HookEvent) {
	f.dispatcher.Dispatch(event.Name(), event.Message)
}
