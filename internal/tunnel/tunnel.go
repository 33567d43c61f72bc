// Package tunnel provisions a public URL for the daemon port. The
// tunnel is an opaque boundary: providers either produce a URL or they
// don't, and a missing tunnel is never an error.
package tunnel

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agentdeck/agentdeck/logging"
	"github.com/sirupsen/logrus"
)

const defaultExposeWait = 15 * time.Second

var defaultURLPattern = regexp.MustCompile(`https://\S+`)

// Provider exposes a local port to the public internet.
type Provider interface {
	Name() string
	Expose(ctx context.Context, port int) (string, error)
}

// Chain tries providers in order and returns the first URL. All
// providers failing is not an error; the deck just has no tunnel.
type Chain struct {
	providers []Provider
	logger    *logrus.Entry
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: logging.NewLogger("tunnel")}
}

func (c *Chain) Expose(ctx context.Context, port int) string {
	for _, p := range c.providers {
		url, err := p.Expose(ctx, port)
		if err != nil {
			c.logger.WithError(err).WithField("provider", p.Name()).Debug("Provider failed")
			continue
		}
		if url != "" {
			c.logger.WithFields(logrus.Fields{"provider": p.Name(), "url": url}).Info("Tunnel up")
			return url
		}
	}
	return ""
}

// CommandProvider runs an external tunnel binary (cloudflared, ngrok,
// ssh -R, ...) and scrapes the public URL from its output. The process
// keeps running after Expose returns; it dies with the daemon.
type CommandProvider struct {
	name    string
	argv    []string
	pattern *regexp.Regexp
	wait    time.Duration
	logger  *logrus.Entry
}

// NewCommandProvider builds a provider from argv, where the literal
// "{port}" in any argument is replaced with the daemon port. An empty
// urlPattern falls back to the first https URL printed.
func NewCommandProvider(name string, argv []string, urlPattern string) (*CommandProvider, error) {
	pattern := defaultURLPattern
	if urlPattern != "" {
		compiled, err := regexp.Compile(urlPattern)
		if err != nil {
			return nil, err
		}
		pattern = compiled
	}
	return &CommandProvider{
		name:    name,
		argv:    argv,
		pattern: pattern,
		wait:    defaultExposeWait,
		logger:  logging.NewLogger("tunnel"),
	}, nil
}

func (p *CommandProvider) Name() string { return p.name }

func (p *CommandProvider) Expose(ctx context.Context, port int) (string, error) {
	argv := make([]string, len(p.argv))
	for i, arg := range p.argv {
		argv[i] = strings.ReplaceAll(arg, "{port}", strconv.Itoa(port))
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", err
	}

	found := make(chan string, 1)
	scanDone := make(chan struct{})
	go func() {
		p.scan(stdout, found)
		close(scanDone)
	}()

	// Reap the child whenever it exits: right after a kill below, or
	// much later when a long-lived tunnel binary finally dies. Wait must
	// not race the scanner on the stdout pipe.
	go func() {
		<-scanDone
		if err := cmd.Wait(); err != nil {
			p.logger.WithError(err).WithField("provider", p.name).Debug("Tunnel process exited")
		}
	}()

	timer := time.NewTimer(p.wait)
	defer timer.Stop()
	select {
	case url := <-found:
		return url, nil
	case <-ctx.Done():
		cmd.Process.Kill()
		return "", ctx.Err()
	case <-timer.C:
		// No URL in time. Kill the orphan, report nothing.
		cmd.Process.Kill()
		return "", nil
	}
}

// scan drains output until EOF so the child never blocks on a full
// stdout pipe; the first matching URL wins.
func (p *CommandProvider) scan(r io.Reader, found chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if url := p.pattern.FindString(scanner.Text()); url != "" {
			select {
			case found <- url:
			default:
			}
		}
	}
}
