// Package templates renders the files octopilot generates from embedded
// text/template sources.
//
// Templates use [[ ]] delimiters because GitHub Actions expressions already
// claim {{ }} (as ${{ ... }}).
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/octopilot/octopilot-mcp/internal/detect"
)

//go:embed workflows/*.tmpl
var templateFS embed.FS

// Name identifies an embedded template.
type Name string

const (
	// CIWorkflow is the GitHub Actions pipeline written to .github/workflows/ci.yml.
	CIWorkflow Name = "ci.yml.tmpl"
)

const (
	// DefaultPlatforms is the default multi-arch build target list.
	DefaultPlatforms = "linux/amd64,linux/arm64"
	// DefaultLintTimeout is the golangci-lint timeout for Go projects.
	DefaultLintTimeout = "10m"
	// WorkflowPath is the repository-relative path of the CI workflow.
	WorkflowPath = ".github/workflows/ci.yml"
)

// Renderer executes embedded templates.
type Renderer interface {
	Render(name Name, data any) (string, error)
}

// TemplateRenderer is the text/template backed Renderer.
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.New("octopilot").
		Delims("[[", "]]").
		Option("missingkey=error").
		ParseFS(templateFS, "workflows/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

// Render executes the named template with data.
func (r *TemplateRenderer) Render(name Name, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, string(name), data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// WorkflowData is the input of the CI workflow template.
type WorkflowData struct {
	Registry    string
	Platforms   string
	LintTimeout string
	// HasGo gates the golangci-lint timeout parameter; no other language
	// affects the output.
	HasGo bool
}

// NewWorkflowData builds template input from a pipeline context, applying
// defaults for empty platforms and lint timeout.
func NewWorkflowData(pc *detect.PipelineContext, registry, platforms, lintTimeout string) WorkflowData {
	if platforms == "" {
		platforms = DefaultPlatforms
	}
	if lintTimeout == "" {
		lintTimeout = DefaultLintTimeout
	}
	return WorkflowData{
		Registry:    registry,
		Platforms:   platforms,
		LintTimeout: lintTimeout,
		HasGo:       pc.HasLanguage(detect.LanguageGo),
	}
}

// RenderWorkflow renders the CI workflow for a pipeline context.
func RenderWorkflow(r Renderer, pc *detect.PipelineContext, registry, platforms, lintTimeout string) (string, error) {
	return r.Render(CIWorkflow, NewWorkflowData(pc, registry, platforms, lintTimeout))
}
