package models

import "time"

// StatusRecord is the daemon's status file contents. It is the only
// cross-process shared resource and is always rewritten whole, never
// patched in place.
//
// The record is advisory: readers must verify PID liveness and perform a
// live health check before trusting Port or TunnelURL.
type StatusRecord struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	TunnelURL string    `json:"tunnelUrl,omitempty"`
	PIN       string    `json:"pin,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}
