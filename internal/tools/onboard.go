package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/octopilot/octopilot-mcp/internal/manifest"
	"github.com/octopilot/octopilot-mcp/internal/onboard"
	"github.com/octopilot/octopilot-mcp/internal/templates"
)

// OnboardTool handles the onboard_repository MCP tool.
// It proposes skaffold.yaml and ci.yml for a repository without writing
// either file.
type OnboardTool struct {
	onboarder *onboard.Onboarder
}

// NewOnboardTool creates an OnboardTool.
func NewOnboardTool(onboarder *onboard.Onboarder) *OnboardTool {
	return &OnboardTool{onboarder: onboarder}
}

// Definition returns the MCP tool definition for registration.
func (t *OnboardTool) Definition() mcp.Tool {
	return mcp.NewTool("onboard_repository",
		mcp.WithDescription(
			"Onboard a repository to octopilot in one call. Reuses skaffold.yaml when present, "+
				"otherwise proposes one from the service directories it finds; detects languages; "+
				"renders ci.yml. Returns pipeline_context, skaffold_yaml (null when reused), ci_workflow, "+
				"files_to_create and next_steps. No files are written.",
		),
		mcp.WithString("workspace",
			mcp.Required(),
			mcp.Description("Absolute path to the repository root"),
		),
		mcp.WithString("registry",
			mcp.Required(),
			mcp.Description("Container registry to push to, e.g. ghcr.io/my-org"),
		),
		mcp.WithString("platforms",
			mcp.Description("Comma-separated build platforms. Defaults to "+templates.DefaultPlatforms+"."),
		),
		mcp.WithString("builder",
			mcp.Description("Buildpacks builder for a proposed skaffold.yaml. Defaults to "+manifest.DefaultBuilder+"."),
		),
	)
}

// Handle processes the onboard_repository tool call.
func (t *OnboardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := onboard.Options{
		Workspace: req.GetString("workspace", ""),
		Registry:  req.GetString("registry", ""),
		Platforms: req.GetString("platforms", ""),
		Builder:   req.GetString("builder", ""),
	}
	if opts.Workspace == "" {
		return mcp.NewToolResultError("'workspace' is required"), nil
	}
	if opts.Registry == "" {
		return mcp.NewToolResultError("'registry' is required"), nil
	}

	res, err := t.onboarder.Run(opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}
