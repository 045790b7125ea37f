// Package onboard wires a repository to octopilot in one call: it detects
// the project, generates the missing skaffold.yaml and CI workflow, and
// returns a checklist of the manual steps that remain.
//
// Onboarding never leaves files behind. When no manifest exists a
// synthesized one is written only for the duration of detection.
package onboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/octopilot/octopilot-mcp/internal/detect"
	"github.com/octopilot/octopilot-mcp/internal/manifest"
	"github.com/octopilot/octopilot-mcp/internal/templates"
)

// PreCommitConfig is the pre-commit configuration filename the lint job runs.
const PreCommitConfig = ".pre-commit-config.yaml"

// Options configures an onboarding run.
type Options struct {
	Workspace string
	Registry  string
	Platforms string
	Builder   string
}

// Result is everything an agent needs to commit the onboarding.
type Result struct {
	PipelineContext *detect.PipelineContext `json:"pipeline_context"`
	// SkaffoldYAML is nil when the workspace already had a manifest.
	SkaffoldYAML  *string  `json:"skaffold_yaml"`
	CIWorkflow    string   `json:"ci_workflow"`
	FilesToCreate []string `json:"files_to_create"`
	NextSteps     []string `json:"next_steps"`
}

// Onboarder runs onboarding against the filesystem.
type Onboarder struct {
	renderer templates.Renderer
	detect   func(workspaceRoot string) (*detect.PipelineContext, error)
}

// New creates an Onboarder that renders workflows with r.
func New(r templates.Renderer) *Onboarder {
	return &Onboarder{renderer: r, detect: detect.DetectContexts}
}

// Run performs the onboarding described in the package doc.
func (o *Onboarder) Run(opts Options) (*Result, error) {
	if opts.Workspace == "" {
		return nil, errors.New("workspace is required")
	}
	if opts.Registry == "" {
		return nil, errors.New("registry is required")
	}

	log := logrus.WithField("workspace", opts.Workspace)

	var generated *string
	var pc *detect.PipelineContext
	var err error

	if manifest.Exists(opts.Workspace) {
		log.Debug("manifest present, skipping synthesis")
		pc, err = o.detect(opts.Workspace)
	} else {
		var text string
		text, err = synthesizeManifest(opts.Workspace, opts.Builder)
		if err != nil {
			return nil, err
		}
		generated = &text
		pc, err = o.detectWithTemporaryManifest(opts.Workspace, text)
	}
	if err != nil {
		return nil, fmt.Errorf("detecting project contexts: %w", err)
	}

	workflow, err := templates.RenderWorkflow(o.renderer, pc, opts.Registry, opts.Platforms, templates.DefaultLintTimeout)
	if err != nil {
		return nil, err
	}

	files := []string{}
	if generated != nil {
		files = append(files, manifest.File)
	}
	if !exists(filepath.Join(opts.Workspace, filepath.FromSlash(templates.WorkflowPath))) {
		files = append(files, templates.WorkflowPath)
	}

	return &Result{
		PipelineContext: pc,
		SkaffoldYAML:    generated,
		CIWorkflow:      workflow,
		FilesToCreate:   files,
		NextSteps:       nextSteps(opts.Workspace, opts.Registry, pc),
	}, nil
}

// detectWithTemporaryManifest writes text to the workspace manifest path,
// runs detection, and removes the file on every return path.
func (o *Onboarder) detectWithTemporaryManifest(workspace, text string) (pc *detect.PipelineContext, err error) {
	path := manifest.Path(workspace)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("writing temporary %s: %w", manifest.File, err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logrus.WithError(rmErr).Warnf("removing temporary %s", path)
			if err == nil {
				err = fmt.Errorf("removing temporary %s: %w", manifest.File, rmErr)
			}
		}
	}()

	return o.detect(workspace)
}

// synthesizeManifest discovers artifact directories and renders a manifest
// for them. Immediate non-hidden subdirectories carrying a language marker
// become artifacts; with none, the workspace itself is the only artifact.
func synthesizeManifest(workspace, builder string) (string, error) {
	artifacts, err := discoverArtifacts(workspace)
	if err != nil {
		return "", err
	}
	return manifest.Synthesize(artifacts, builder)
}

func discoverArtifacts(workspace string) ([]manifest.ArtifactRef, error) {
	entries, err := os.ReadDir(workspace)
	if err != nil {
		return nil, fmt.Errorf("reading workspace: %w", err)
	}

	// os.ReadDir returns entries sorted by name.
	var artifacts []manifest.ArtifactRef
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if detect.HasMarker(filepath.Join(workspace, name)) {
			artifacts = append(artifacts, manifest.ArtifactRef{Name: name, Context: name})
		}
	}

	if len(artifacts) == 0 {
		name := filepath.Base(workspace)
		if abs, err := filepath.Abs(workspace); err == nil {
			name = filepath.Base(abs)
		}
		artifacts = []manifest.ArtifactRef{{Name: name, Context: manifest.DefaultContext}}
	}
	return artifacts, nil
}

func nextSteps(workspace, registry string, pc *detect.PipelineContext) []string {
	steps := []string{
		"Ensure GITHUB_TOKEN has 'packages: write' and 'attestations: write' permissions.",
		fmt.Sprintf("Log in to %s from CI (docker/login-action@v3).", registry),
	}
	if pc.HasLanguage(detect.LanguageGo) {
		steps = append(steps, "Add .golangci.yml with 'run: timeout: 10m' for large vendor trees.")
	}
	if !exists(filepath.Join(workspace, PreCommitConfig)) {
		steps = append(steps, "Add "+PreCommitConfig+" for the lint job to run hooks.")
	}
	return append(steps, "Push changes; the CI pipeline will trigger on the next push to main.")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
