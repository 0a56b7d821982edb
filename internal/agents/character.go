package agents

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Character defines an agent's persona and model selection. Characters are
// authored as YAML files and persisted as JSON in the character store.
type Character struct {
	Name          string   `json:"name" yaml:"name"`
	System        string   `json:"system,omitempty" yaml:"system,omitempty"`
	Bio           []string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Topics        []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	ModelProvider string   `json:"modelProvider,omitempty" yaml:"model_provider,omitempty"`
}

// Validate checks the minimal requirements for running an agent.
func (c *Character) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("character name is required")
	}
	return nil
}

// LoadCharacterFile reads and validates a YAML character definition.
func LoadCharacterFile(path string) (*Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read character file: %w", err)
	}

	var c Character
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse character file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("character file %s: %w", path, err)
	}
	return &c, nil
}
