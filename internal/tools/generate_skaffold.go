package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/octopilot/octopilot-mcp/internal/manifest"
)

// GenerateSkaffoldTool handles the generate_skaffold_yaml MCP tool.
// It renders a skaffold.yaml for a list of artifacts; nothing is written.
type GenerateSkaffoldTool struct{}

// NewGenerateSkaffoldTool creates a GenerateSkaffoldTool.
func NewGenerateSkaffoldTool() *GenerateSkaffoldTool {
	return &GenerateSkaffoldTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *GenerateSkaffoldTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_skaffold_yaml",
		mcp.WithDescription(
			"Generate a skaffold.yaml that builds each artifact with Cloud Native Buildpacks. "+
				"Returns the YAML text; save it as skaffold.yaml at the repository root.",
		),
		mcp.WithArray("artifacts",
			mcp.Required(),
			mcp.Description("Artifacts to build. Each has 'name' (image name) and 'context' (directory relative to the repository root, default '.')."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":    map[string]any{"type": "string"},
					"context": map[string]any{"type": "string"},
				},
				"required": []string{"name"},
			}),
		),
		mcp.WithString("builder",
			mcp.Description("Buildpacks builder image. Defaults to "+manifest.DefaultBuilder+"."),
			mcp.DefaultString(manifest.DefaultBuilder),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle processes the generate_skaffold_yaml tool call.
func (t *GenerateSkaffoldTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var artifacts []manifest.ArtifactRef
	if err := decodeArg(req, "artifacts", &artifacts); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(artifacts) == 0 {
		return mcp.NewToolResultError("'artifacts' must list at least one artifact"), nil
	}
	for i, a := range artifacts {
		if a.Name == "" {
			return mcp.NewToolResultError(fmt.Sprintf("artifacts[%d]: 'name' is required", i)), nil
		}
	}

	out, err := manifest.Synthesize(artifacts, req.GetString("builder", ""))
	if err != nil {
		return nil, fmt.Errorf("synthesizing skaffold.yaml: %w", err)
	}
	return mcp.NewToolResultText(out), nil
}
