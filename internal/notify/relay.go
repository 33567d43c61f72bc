package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agentdeck/agentdeck/logging"
)

const sendTimeout = 5 * time.Second

// Relay delivers one notification to an external push channel.
type Relay interface {
	Name() string
	Send(ctx context.Context, title, body string) error
}

// NtfyRelay posts notifications to an ntfy topic.
type NtfyRelay struct {
	url    string
	topic  string
	client *http.Client
}

func NewNtfyRelay(url, topic string) *NtfyRelay {
	if url == "" {
		url = "https://ntfy.sh"
	}
	return &NtfyRelay{
		url:    strings.TrimRight(url, "/"),
		topic:  topic,
		client: &http.Client{Timeout: sendTimeout},
	}
}

func (r *NtfyRelay) Name() string { return "ntfy" }

func (r *NtfyRelay) Send(ctx context.Context, title, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s", r.url, r.topic), strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Title", title)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned %s", resp.Status)
	}
	return nil
}

// Dispatcher fans notifications out to every relay, fire and forget.
// Failures are logged and dropped; no caller ever waits on delivery.
type Dispatcher struct {
	relays []Relay
}

func NewDispatcher(relays ...Relay) *Dispatcher {
	return &Dispatcher{relays: relays}
}

// Dispatch sends title/body through every relay in the background.
func (d *Dispatcher) Dispatch(title, body string) {
	for _, relay := range d.relays {
		go func(r Relay) {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			if err := r.Send(ctx, title, body); err != nil {
				logging.NewLogger("notify").WithError(err).
					WithField("relay", r.Name()).Debug("Notification delivery failed")
			}
		}(relay)
	}
}
