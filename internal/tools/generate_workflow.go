package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/octopilot/octopilot-mcp/internal/detect"
	"github.com/octopilot/octopilot-mcp/internal/templates"
)

// GenerateWorkflowTool handles the generate_ci_workflow MCP tool.
// It renders the GitHub Actions workflow for a pipeline context.
type GenerateWorkflowTool struct {
	renderer templates.Renderer
}

// NewGenerateWorkflowTool creates a GenerateWorkflowTool.
func NewGenerateWorkflowTool(renderer templates.Renderer) *GenerateWorkflowTool {
	return &GenerateWorkflowTool{renderer: renderer}
}

// Definition returns the MCP tool definition for registration.
func (t *GenerateWorkflowTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_ci_workflow",
		mcp.WithDescription(
			"Generate .github/workflows/ci.yml for a repository from its pipeline context. "+
				"Jobs: detect, lint, test (matrix per artifact) and build-container (push only, "+
				"multi-arch, attested on v* tags). Returns the YAML text.",
		),
		mcp.WithObject("pipeline_context",
			mcp.Required(),
			mcp.Description("Output of detect_project_contexts. See resource octopilot://pipeline-context-schema."),
		),
		mcp.WithString("registry",
			mcp.Required(),
			mcp.Description("Container registry to push to, e.g. ghcr.io/my-org"),
		),
		mcp.WithString("platforms",
			mcp.Description("Comma-separated build platforms. Defaults to "+templates.DefaultPlatforms+"."),
			mcp.DefaultString(templates.DefaultPlatforms),
		),
		mcp.WithString("golangci_lint_timeout",
			mcp.Description("golangci-lint timeout, used only when Go is detected. Defaults to "+templates.DefaultLintTimeout+"."),
			mcp.DefaultString(templates.DefaultLintTimeout),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle processes the generate_ci_workflow tool call.
func (t *GenerateWorkflowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	registry := req.GetString("registry", "")
	if registry == "" {
		return mcp.NewToolResultError("'registry' is required"), nil
	}

	raw, ok := req.GetArguments()["pipeline_context"]
	if !ok || raw == nil {
		return mcp.NewToolResultError("'pipeline_context' is required"), nil
	}
	pc, err := detect.DecodeContext(raw)
	if errors.Is(err, detect.ErrInvalidContext) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return nil, err
	}

	out, err := templates.RenderWorkflow(t.renderer, pc, registry,
		req.GetString("platforms", ""), req.GetString("golangci_lint_timeout", ""))
	if err != nil {
		return nil, fmt.Errorf("rendering workflow: %w", err)
	}
	return mcp.NewToolResultText(out), nil
}
