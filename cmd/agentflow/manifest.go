package main

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/agentflow/internal/agents"
)

// decodeManifest reads a YAML or JSON manifest. Manifest types carry json
// tags only, so YAML is decoded generically and re-encoded as JSON.
func decodeManifest(data []byte) (*agents.Manifest, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %w", agents.ErrInvalidManifest, err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: convert manifest: %w", agents.ErrInvalidManifest, err)
	}

	var m agents.Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %w", agents.ErrInvalidManifest, err)
	}
	return &m, nil
}

// encodeManifest renders m as YAML, or indented JSON when asJSON is set.
func encodeManifest(m *agents.Manifest, asJSON bool) ([]byte, error) {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if asJSON {
		return append(raw, '\n'), nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return out, nil
}
