package models

// Session describes one underlying terminal-multiplexer session as seen
// by the registry. Liveness is re-queried from tmux on every lookup and
// never cached.
type Session struct {
	Name     string `json:"name"`
	Attached int    `json:"attached"`
	Command  string `json:"command,omitempty"`
	IsAgent  bool   `json:"isAgent"`
}
