package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// BuildsPrompt handles the octopilot-builds MCP prompt.
// It instructs the AI to read and summarize recent local builds.
type BuildsPrompt struct{}

// NewBuildsPrompt creates a BuildsPrompt.
func NewBuildsPrompt() *BuildsPrompt {
	return &BuildsPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *BuildsPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("octopilot-builds",
		mcp.WithPromptDescription(
			"Review recent op builds: what was built, where it was pushed, and why anything failed.",
		),
	)
}

// Handle processes the octopilot-builds prompt request.
func (p *BuildsPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Recent octopilot builds",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `list_builds` to see my recent op builds.\n\n" +
						"Then:\n" +
						"1. Summarize the last few builds per repository\n" +
						"2. For each failure, explain the likely cause from the error\n" +
						"3. Suggest the `run_op_build` call that would retry it, noting whether container mode is needed",
				),
			},
		},
	}, nil
}
