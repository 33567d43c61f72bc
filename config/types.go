package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config is the root of agentdeck.yml / agentdeck.toml.
type Config struct {
	Server  ServerConfig  `yaml:"server,omitempty" toml:"server,omitempty"`
	Session SessionConfig `yaml:"session,omitempty" toml:"session,omitempty"`
	Hooks   HooksConfig   `yaml:"hooks,omitempty" toml:"hooks,omitempty"`
	Tunnel  TunnelConfig  `yaml:"tunnel,omitempty" toml:"tunnel,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty" toml:"notify,omitempty"`

	// Extensions captures free-form sections (e.g. "logging") that other
	// packages decode for themselves via UnmarshalExtension. Only the
	// YAML format supports inline capture; TOML configs are limited to
	// the typed sections above.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" json:"-"`
}

// ServerConfig configures the daemon's listener and auth behavior.
type ServerConfig struct {
	// Port the daemon binds on 127.0.0.1. Remote access goes through the tunnel.
	Port int `yaml:"port,omitempty" toml:"port,omitempty" jsonschema:"description=Loopback port the daemon listens on"`
	// PIN is the shared secret. Empty means a random PIN is generated per run.
	PIN string `yaml:"pin,omitempty" toml:"pin,omitempty" jsonschema:"description=Shared PIN; generated randomly when empty"`
	// NoAuth disables the auth gate entirely.
	NoAuth bool `yaml:"no_auth,omitempty" toml:"no_auth,omitempty" jsonschema:"description=Disable PIN/token checks"`
	// ScrollbackBytes bounds each session's catch-up buffer.
	ScrollbackBytes int `yaml:"scrollback_bytes,omitempty" toml:"scrollback_bytes,omitempty" jsonschema:"description=Catch-up buffer capacity per session in bytes"`
}

// SessionConfig controls how user sessions are created and classified.
type SessionConfig struct {
	// Prefix for auto-named user sessions (prefix-1, prefix-2, ...).
	Prefix string `yaml:"prefix,omitempty" toml:"prefix,omitempty" jsonschema:"description=Auto-naming prefix for user sessions"`
	// Command run in a freshly created user session. Empty means the login shell.
	Command string `yaml:"command,omitempty" toml:"command,omitempty" jsonschema:"description=Command started in new user sessions"`
	// AgentCommands are pane commands that mark a session as agent-driven.
	AgentCommands []string `yaml:"agent_commands,omitempty" toml:"agent_commands,omitempty" jsonschema:"description=Pane commands that classify a session as an agent session"`
}

// DecisionKeysConfig is the policy applied when a phone-side allow/deny
// decision arrives. Which keystroke (if any) the listening terminal
// program expects is not knowable here, so it stays configurable.
type DecisionKeysConfig struct {
	// Mode is "none" (interactive prompt stays authoritative) or "keys"
	// (send the configured literal key to the attached session).
	Mode  string `yaml:"mode,omitempty" toml:"mode,omitempty" jsonschema:"description=Decision relay policy: none or keys"`
	Allow string `yaml:"allow,omitempty" toml:"allow,omitempty" jsonschema:"description=Key sent on allow when mode is keys"`
	Deny  string `yaml:"deny,omitempty" toml:"deny,omitempty" jsonschema:"description=Key sent on deny when mode is keys"`
}

// HooksConfig groups hook-relay behavior.
type HooksConfig struct {
	DecisionKeys DecisionKeysConfig `yaml:"decision_keys,omitempty" toml:"decision_keys,omitempty"`
}

// TunnelProviderConfig describes one external tunnel binary to try.
type TunnelProviderConfig struct {
	Name string `yaml:"name" toml:"name" jsonschema:"description=Provider name for logs"`
	// Command argv; the literal {port} is replaced with the daemon port.
	Command []string `yaml:"command" toml:"command" jsonschema:"description=Tunnel binary argv with {port} placeholder"`
	// URLPattern is a regexp whose first match in the provider's output
	// is taken as the public URL.
	URLPattern string `yaml:"url_pattern,omitempty" toml:"url_pattern,omitempty" jsonschema:"description=Regexp locating the public URL in provider output"`
}

// TunnelConfig configures public-URL provisioning. A tunnel is optional:
// every provider failing yields a null URL, not an error.
type TunnelConfig struct {
	Enabled   bool                   `yaml:"enabled,omitempty" toml:"enabled,omitempty" jsonschema:"description=Attempt to expose the daemon publicly"`
	Providers []TunnelProviderConfig `yaml:"providers,omitempty" toml:"providers,omitempty"`
}

// NtfyConfig points notification relaying at an ntfy-compatible endpoint.
type NtfyConfig struct {
	URL   string `yaml:"url,omitempty" toml:"url,omitempty" jsonschema:"description=ntfy server base URL"`
	Topic string `yaml:"topic,omitempty" toml:"topic,omitempty" jsonschema:"description=ntfy topic"`
}

// NotifyConfig groups best-effort notification collaborators.
type NotifyConfig struct {
	Ntfy NtfyConfig `yaml:"ntfy,omitempty" toml:"ntfy,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            4310,
			ScrollbackBytes: 256 * 1024,
		},
		Session: SessionConfig{
			Prefix:        "agent",
			AgentCommands: []string{"claude", "codex", "cursor", "aider", "gemini"},
		},
		Hooks: HooksConfig{
			DecisionKeys: DecisionKeysConfig{
				Mode:  "none",
				Allow: "y",
				Deny:  "n",
			},
		},
	}
}

// applyDefaults fills zero values with the defaults above.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ScrollbackBytes == 0 {
		c.Server.ScrollbackBytes = def.Server.ScrollbackBytes
	}
	if c.Session.Prefix == "" {
		c.Session.Prefix = def.Session.Prefix
	}
	if len(c.Session.AgentCommands) == 0 {
		c.Session.AgentCommands = def.Session.AgentCommands
	}
	if c.Hooks.DecisionKeys.Mode == "" {
		c.Hooks.DecisionKeys.Mode = def.Hooks.DecisionKeys.Mode
	}
	if c.Hooks.DecisionKeys.Allow == "" {
		c.Hooks.DecisionKeys.Allow = def.Hooks.DecisionKeys.Allow
	}
	if c.Hooks.DecisionKeys.Deny == "" {
		c.Hooks.DecisionKeys.Deny = def.Hooks.DecisionKeys.Deny
	}
}

// UnmarshalExtension decodes a free-form section of the loaded config
// into the provided target struct. The target must be a pointer. This
// gives packages like logging a type-safe view of their own section.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		// It's not an error if the key doesn't exist.
		// The target struct will simply remain zero-valued.
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
