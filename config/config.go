package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	deckerrors "github.com/agentdeck/agentdeck/errors"
	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func init() {
	// Hand the logging package a way to read its own section without a
	// package cycle.
	logging.SetConfigLoader(func() (logging.Config, error) {
		var logCfg logging.Config
		cfg, err := LoadDefault()
		if err != nil {
			return logCfg, err
		}
		err = cfg.UnmarshalExtension("logging", &logCfg)
		return logCfg, err
	})
}

// Load reads and parses a configuration file. The format is chosen by
// extension: .toml is TOML, everything else is YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, deckerrors.ConfigNotFound(path)
		}
		return nil, deckerrors.Wrap(err, deckerrors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	return loadFromBytes(data, strings.EqualFold(filepath.Ext(path), ".toml"))
}

// LoadDefault loads the user configuration from the agentdeck config
// directory, falling back to built-in defaults when no file exists.
// YAML takes precedence when both formats are present.
func LoadDefault() (*Config, error) {
	path, err := FindConfigFile()
	if err != nil {
		return nil, err
	}
	if path == "" {
		cfg := Default()
		return cfg, nil
	}
	return Load(path)
}

// FindConfigFile returns the path of the user config file, or "" when
// none exists.
func FindConfigFile() (string, error) {
	dir := paths.ConfigDir()
	if dir == "" {
		return "", nil
	}
	for _, name := range []string{"agentdeck.yml", "agentdeck.yaml", "agentdeck.toml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// LoadRaw parses a config file into an untyped map, for schema
// validation against the exact keys the user wrote.
func LoadRaw(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, deckerrors.ConfigNotFound(path)
		}
		return nil, deckerrors.Wrap(err, deckerrors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	expanded := expandEnvVars(string(data))
	raw := make(map[string]interface{})
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, deckerrors.Wrap(err, deckerrors.ErrCodeConfigInvalid, "failed to parse TOML config")
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, deckerrors.Wrap(err, deckerrors.ErrCodeConfigInvalid, "failed to parse YAML config")
		}
	}
	return raw, nil
}

func loadFromBytes(data []byte, isTOML bool) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if isTOML {
		if err := toml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, deckerrors.Wrap(err, deckerrors.ErrCodeConfigInvalid, "failed to parse TOML config")
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, deckerrors.Wrap(err, deckerrors.ErrCodeConfigInvalid, "failed to parse YAML config")
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} references with their environment values.
// Unset variables expand to the empty string.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarRegex.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
