package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRegistry []byte

// Default returns the built-in childcare registry
func Default() (*Registry, error) {
	return Parse(defaultRegistry)
}

// LoadFile reads a registry from a YAML file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return Parse(data)
}

// Load returns the registry at path, or the built-in one when path is empty
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// Parse decodes a YAML registry and validates it
func Parse(data []byte) (*Registry, error) {
	var spec Spec

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, &ConfigurationError{Field: "document", Reason: "failed to decode yaml", Err: err}
	}

	return Build(spec)
}
