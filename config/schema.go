package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	jsvalidate "github.com/santhosh-tekuri/jsonschema/v5"
)

// GenerateSchema generates the JSON Schema for agentdeck configuration.
// It reflects the Config struct but excludes the Extensions field, whose
// sections (e.g. "logging") are owned by other packages.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Unknown typed keys are rejected; extension sections live
		// outside the schema.
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	// A mirror of Config without the Extensions inline map so it does
	// not leak into the schema.
	type baseConfig struct {
		Server  ServerConfig  `yaml:"server,omitempty"`
		Session SessionConfig `yaml:"session,omitempty"`
		Hooks   HooksConfig   `yaml:"hooks,omitempty"`
		Tunnel  TunnelConfig  `yaml:"tunnel,omitempty"`
		Notify  NotifyConfig  `yaml:"notify,omitempty"`
	}

	schema := r.Reflect(&baseConfig{})
	schema.Title = "agentdeck Configuration"
	schema.Description = "Schema for agentdeck.yml / agentdeck.toml."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}

// Validator validates loaded configuration against the reflected schema.
type Validator struct {
	schema *jsvalidate.Schema
}

// NewValidator builds a validator from the reflected schema.
func NewValidator() (*Validator, error) {
	schemaJSON, err := GenerateSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	compiler := jsvalidate.NewCompiler()
	if err := compiler.AddResource("agentdeck.json", strings.NewReader(string(schemaJSON))); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("agentdeck.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks configuration data against the schema. The data may be
// any value that marshals to JSON.
func (v *Validator) Validate(configData interface{}) error {
	jsonData, err := json.Marshal(configData)
	if err != nil {
		return fmt.Errorf("failed to marshal config for validation: %w", err)
	}

	var dataToValidate interface{}
	if err := json.Unmarshal(jsonData, &dataToValidate); err != nil {
		return fmt.Errorf("failed to unmarshal config for validation: %w", err)
	}

	if err := v.schema.Validate(dataToValidate); err != nil {
		if validationErr, ok := err.(*jsvalidate.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			return fmt.Errorf("schema validation failed:\n%s", strings.Join(messages, "\n"))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// collectErrors recursively collects all validation errors into a slice
func collectErrors(err *jsvalidate.ValidationError, messages *[]string) {
	if err.InstanceLocation != "" {
		*messages = append(*messages, fmt.Sprintf("- %s: %s", err.InstanceLocation, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
