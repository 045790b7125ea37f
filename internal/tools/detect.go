package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/octopilot/octopilot-mcp/internal/detect"
)

// DetectTool handles the detect_project_contexts MCP tool.
// It reads skaffold.yaml in a workspace and reports the language and
// version of every artifact.
type DetectTool struct {
	detect func(root string) (*detect.PipelineContext, error)
}

// NewDetectTool creates a DetectTool backed by detect.DetectContexts.
func NewDetectTool() *DetectTool {
	return &DetectTool{detect: detect.DetectContexts}
}

// Definition returns the MCP tool definition for registration.
func (t *DetectTool) Definition() mcp.Tool {
	return mcp.NewTool("detect_project_contexts",
		mcp.WithDescription(
			"Detect the language and toolchain version of every artifact in a repository's skaffold.yaml. "+
				"Returns the pipeline context (matrix, languages, versions) consumed by generate_ci_workflow. "+
				"The workspace must already contain skaffold.yaml; use onboard_repository for repositories without one.",
		),
		mcp.WithString("workspace",
			mcp.Required(),
			mcp.Description("Absolute path to the repository root"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle processes the detect_project_contexts tool call.
func (t *DetectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace := req.GetString("workspace", "")
	if workspace == "" {
		return mcp.NewToolResultError("'workspace' is required"), nil
	}

	pc, err := t.detect(workspace)
	if errors.Is(err, detect.ErrManifestNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf(
			"no skaffold.yaml in %s. Use generate_skaffold_yaml or onboard_repository to create one.", workspace,
		)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pc)
}
