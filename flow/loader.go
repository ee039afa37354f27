package flow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadDefinition loads a form definition from a YAML file and validates its
// startup invariants.
func LoadDefinition(filePath string) (*Definition, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading form definition: %w", err)
	}
	return ParseDefinition(raw)
}

// ParseDefinition parses a YAML form definition.
func ParseDefinition(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("error unmarshalling form definition: %w", err)
	}

	for i := range def.Steps {
		def.Steps[i].Order = i
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
