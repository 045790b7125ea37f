// Package manifest reads and writes skaffold.yaml build manifests.
//
// Only the subset of the skaffold schema that octopilot cares about is
// modelled: the artifact list with its image, context, and builder block.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// File is the canonical manifest filename at a workspace root.
	File = "skaffold.yaml"
	// APIVersion is written into every synthesized manifest.
	APIVersion = "skaffold/v4beta1"
	// Kind is the skaffold document kind.
	Kind = "Config"
	// DefaultBuilder is the Cloud Native Buildpacks builder image.
	DefaultBuilder = "ghcr.io/octopilot/builder-jammy-base:latest"
	// DefaultContext is used when an artifact omits its context.
	DefaultContext = "."
)

// Config is a skaffold.yaml document.
type Config struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Build      Build  `yaml:"build"`
}

// Build holds the build section of the manifest.
type Build struct {
	Artifacts []Artifact `yaml:"artifacts"`
}

// Artifact is one image the manifest builds.
type Artifact struct {
	Image      string      `yaml:"image"`
	Context    string      `yaml:"context,omitempty"`
	Buildpacks *Buildpacks `yaml:"buildpacks,omitempty"`
	Docker     *Docker     `yaml:"docker,omitempty"`
}

// Buildpacks configures a buildpack-based artifact.
type Buildpacks struct {
	Builder  string   `yaml:"builder"`
	RunImage string   `yaml:"runImage,omitempty"`
	Env      []string `yaml:"env,omitempty"`
}

// Docker configures a Dockerfile-based artifact.
type Docker struct {
	Dockerfile string `yaml:"dockerfile,omitempty"`
}

// ContextDir returns the artifact's context, falling back to ".".
func (a Artifact) ContextDir() string {
	if a.Context == "" {
		return DefaultContext
	}
	return a.Context
}

// Path returns the manifest path for a workspace root.
func Path(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, File)
}

// Exists reports whether the workspace already has a manifest.
func Exists(workspaceRoot string) bool {
	_, err := os.Stat(Path(workspaceRoot))
	return err == nil
}

// Load reads and parses the manifest at path. A missing file yields an
// error satisfying errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes manifest bytes. An empty document is a manifest with no
// artifacts.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", File, err)
	}
	return cfg, nil
}

// Marshal serializes a manifest with two-space indentation and the field
// order skaffold users expect.
func Marshal(cfg *Config) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("encoding %s: %w", File, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding %s: %w", File, err)
	}
	return buf.String(), nil
}
