package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a registry override.
type File struct {
	Departments []Definition `yaml:"departments"`
}

// LoadFile reads a registry override from path and validates it.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML registry.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse workflow file: %w", err)
	}
	reg, err := NewRegistry(f.Departments)
	if err != nil {
		return nil, fmt.Errorf("invalid workflow file: %w", err)
	}
	return reg, nil
}

// Load returns the registry override at path, or the built-in registry when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(DefaultDefinitions())
	}
	return LoadFile(path)
}
