package io

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/KyungWonPark/DynamicConnectivity/internal/dfc"
	"github.com/KyungWonPark/DynamicConnectivity/internal/window"
)

// Manifest records what a run computed and where it was written.
type Manifest struct {
	RunID             string            `yaml:"runId"`
	Created           time.Time         `yaml:"created"`
	Input             string            `yaml:"input"`
	Samples           int               `yaml:"samples"`
	Regions           int               `yaml:"regions"`
	Window            window.Params     `yaml:"window"`
	Windows           int               `yaml:"windows"`
	DegenerateWindows []int             `yaml:"degenerateWindows,omitempty"`
	Warnings          []dfc.Warning     `yaml:"warnings,omitempty"`
	Summary           dfc.Summary       `yaml:"summary"`
	RegionsOfInterest []string          `yaml:"regionsOfInterest,omitempty"`
	Outputs           map[string]string `yaml:"outputs"`
}

// NewManifest starts a manifest for a computed stack with a fresh run ID.
func NewManifest(input string, samples int, s *dfc.Stack) *Manifest {
	return &Manifest{
		RunID:             uuid.NewString(),
		Created:           time.Now().UTC(),
		Input:             input,
		Samples:           samples,
		Regions:           s.Regions(),
		Window:            s.Params,
		Windows:           s.Len(),
		DegenerateWindows: s.DegenerateWindows(),
		Warnings:          s.Warnings,
		Outputs:           make(map[string]string),
	}
}

// SaveManifest writes m as YAML
func SaveManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("[SaveManifest] failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("[SaveManifest] failed to write %s: %w", path, err)
	}

	return nil
}

// LoadManifest reads a manifest written by SaveManifest
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[LoadManifest] failed to read %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("[LoadManifest] failed to parse %s: %w", path, err)
	}

	return &m, nil
}
