// Package graphio loads and saves GraphConfig documents as YAML and watches
// authored graph files for edits. It is an adapter over the engine's data
// model: nothing in here executes a machine.
package graphio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fsmkit/fsmkit"
)

// Parse decodes and validates a YAML graph document.
func Parse(data []byte) (fsmkit.GraphConfig, error) {
	var cfg fsmkit.GraphConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fsmkit.GraphConfig{}, fmt.Errorf("decode graph: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fsmkit.GraphConfig{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML graph file.
func Load(path string) (fsmkit.GraphConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fsmkit.GraphConfig{}, fmt.Errorf("read graph %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return fsmkit.GraphConfig{}, fmt.Errorf("graph %s: %w", path, err)
	}
	return cfg, nil
}

// Save validates and writes a graph as YAML, for round-tripping authored
// graphs back to disk.
func Save(path string, cfg fsmkit.GraphConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph %s: %w", path, err)
	}
	return nil
}
