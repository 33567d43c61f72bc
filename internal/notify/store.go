// Package notify holds push subscriptions and best-effort notification
// relays. Nothing here is ever awaited by a request path.
package notify

import (
	"encoding/json"
	"sync"
)

// Store keeps browser push subscriptions for the lifetime of the
// daemon process. Subscriptions are opaque JSON blobs, deduplicated by
// their endpoint field.
type Store struct {
	mu   sync.Mutex
	subs map[string]json.RawMessage
}

func NewStore() *Store {
	return &Store{subs: make(map[string]json.RawMessage)}
}

// Add records raw, replacing any previous subscription with the same
// endpoint. Blobs without a parseable endpoint are ignored.
func (s *Store) Add(raw json.RawMessage) {
	var probe struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Endpoint == "" {
		return
	}

	blob := make(json.RawMessage, len(raw))
	copy(blob, raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[probe.Endpoint] = blob
}

// All returns a snapshot of the stored subscriptions.
func (s *Store) All() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, 0, len(s.subs))
	for _, blob := range s.subs {
		out = append(out, blob)
	}
	return out
}

// Len returns the number of distinct subscriptions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
