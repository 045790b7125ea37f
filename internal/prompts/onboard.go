// Package prompts implements MCP prompt handlers for octopilot.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// OnboardPrompt handles the octopilot-onboard MCP prompt.
// It walks the AI through onboarding a repository and committing the result.
type OnboardPrompt struct{}

// NewOnboardPrompt creates an OnboardPrompt.
func NewOnboardPrompt() *OnboardPrompt {
	return &OnboardPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *OnboardPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("octopilot-onboard",
		mcp.WithPromptDescription(
			"Onboard a repository to octopilot: propose skaffold.yaml and the CI workflow, "+
				"review them with you, then write them to the repository.",
		),
		mcp.WithArgument("workspace",
			mcp.ArgumentDescription("Absolute path to the repository root. Default: the current project"),
		),
		mcp.WithArgument("registry",
			mcp.ArgumentDescription("Container registry to push to, e.g. ghcr.io/my-org"),
		),
	)
}

// Handle processes the octopilot-onboard prompt request.
func (p *OnboardPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	workspace := "the current project's root directory"
	registry := ""
	if args := req.Params.Arguments; args != nil {
		if w, ok := args["workspace"]; ok && w != "" {
			workspace = w
		}
		if r, ok := args["registry"]; ok && r != "" {
			registry = r
		}
	}

	registryStep := "Ask me which container registry to push to (for example ghcr.io/<org>)."
	if registry != "" {
		registryStep = fmt.Sprintf("Use the registry '%s'.", registry)
	}

	return &mcp.GetPromptResult{
		Description: "Onboard a repository to octopilot",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to build and ship %s with octopilot.\n\n"+
						"Please:\n"+
						"1. %s\n"+
						"2. Run `onboard_repository` with that workspace and registry\n"+
						"3. Show me the detected languages and versions, the proposed skaffold.yaml (if any) and the CI workflow\n"+
						"4. After I confirm, write every file listed in files_to_create\n"+
						"5. Walk me through the next_steps one at a time\n\n"+
						"If detection looks wrong, read `octopilot://docs/skaffold-patterns` and adjust skaffold.yaml "+
						"before generating the workflow again with `generate_ci_workflow`.",
					workspace, registryStep,
				)),
			},
		},
	}, nil
}
