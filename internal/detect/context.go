package detect

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/octopilot/octopilot-mcp/internal/manifest"
	"github.com/sirupsen/logrus"
)

// ErrManifestNotFound is returned when the workspace has no skaffold.yaml.
// Errors wrapping it also satisfy errors.Is(err, fs.ErrNotExist).
var ErrManifestNotFound = errors.New("skaffold.yaml not found")

// MatrixEntry joins a manifest artifact with its detected language.
type MatrixEntry struct {
	Name     string   `json:"name" jsonschema:"required,description=Skaffold artifact image name"`
	Context  string   `json:"context" jsonschema:"required,description=Build context path relative to repo root"`
	Language Language `json:"language" jsonschema:"required,enum=go,enum=rust,enum=node,enum=python,enum=java"`
	Version  string   `json:"version" jsonschema:"description=Detected language version"`
	Command  string   `json:"command,omitempty" jsonschema:"description=Optional override test command"`
}

// PipelineContext is the aggregate detection result consumed by CI
// workflow generation. Languages is always the sorted set of languages in
// Matrix, and every key of Versions is in Languages.
type PipelineContext struct {
	Matrix    []MatrixEntry       `json:"matrix" jsonschema:"required"`
	Languages []Language          `json:"languages" jsonschema:"required,description=Sorted list of unique detected languages"`
	Versions  map[Language]string `json:"versions" jsonschema:"required,description=Map of language to highest detected version"`
}

// HasLanguage reports whether lang is among the detected languages.
func (pc *PipelineContext) HasLanguage(lang Language) bool {
	return pc != nil && slices.Contains(pc.Languages, lang)
}

// NewPipelineContext derives Languages and Versions from a matrix.
//
// Version tie-break is a plain string comparison, so "1.9" outranks
// "1.10". Empty versions never win.
func NewPipelineContext(matrix []MatrixEntry) *PipelineContext {
	pc := &PipelineContext{
		Matrix:    matrix,
		Languages: []Language{},
		Versions:  map[Language]string{},
	}
	if pc.Matrix == nil {
		pc.Matrix = []MatrixEntry{}
	}

	for _, e := range pc.Matrix {
		if e.Language == "" {
			continue
		}
		if !slices.Contains(pc.Languages, e.Language) {
			pc.Languages = append(pc.Languages, e.Language)
		}
		if e.Version != "" && e.Version > pc.Versions[e.Language] {
			pc.Versions[e.Language] = e.Version
		}
	}
	slices.Sort(pc.Languages)

	return pc
}

// DetectContexts reads skaffold.yaml from workspaceRoot, probes every
// artifact's context directory and returns the resulting pipeline context.
// Artifacts whose directory is missing or unclassified are left out.
func DetectContexts(workspaceRoot string) (*PipelineContext, error) {
	path := manifest.Path(workspaceRoot)
	cfg, err := manifest.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s: %w", ErrManifestNotFound, workspaceRoot, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	log := logrus.WithField("workspace", workspaceRoot)

	var matrix []MatrixEntry
	for _, a := range cfg.Build.Artifacts {
		contextRel := a.ContextDir()
		d, ok := Probe(filepath.Join(workspaceRoot, contextRel))
		if !ok {
			log.WithField("artifact", a.Image).Debugf("no language detected in %s", contextRel)
			continue
		}
		matrix = append(matrix, MatrixEntry{
			Name:     a.Image,
			Context:  contextRel,
			Language: d.Language,
			Version:  d.Version,
		})
	}

	pc := NewPipelineContext(matrix)
	log.WithField("languages", pc.Languages).Debug("detected pipeline context")
	return pc, nil
}
