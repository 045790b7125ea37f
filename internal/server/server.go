// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/octopilot/octopilot-mcp/internal/config"
	"github.com/octopilot/octopilot-mcp/internal/history"
	"github.com/octopilot/octopilot-mcp/internal/onboard"
	"github.com/octopilot/octopilot-mcp/internal/oprunner"
	"github.com/octopilot/octopilot-mcp/internal/prompts"
	"github.com/octopilot/octopilot-mcp/internal/resources"
	"github.com/octopilot/octopilot-mcp/internal/templates"
	"github.com/octopilot/octopilot-mcp/internal/tools"
)

// Name is the MCP server name.
const Name = "octopilot"

// Version is set at build time via ldflags.
var Version = "dev"

// Options selects what the server exposes.
type Options struct {
	// Hosted registers only the stateless generators and resources. A hosted
	// server has no access to the caller's filesystem, docker or op.
	Hosted bool
	// BuildOutput receives op's output. Nil means os.Stderr.
	BuildOutput io.Writer
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the history database and must be
// called on shutdown (typically via defer). It is always non-nil and safe
// to call even if history init failed.
func New(cfg config.Config, opts Options) (*server.MCPServer, func(), error) {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, noop, fmt.Errorf("creating template renderer: %w", err)
	}

	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(opts.Hosted)),
	)

	// --- Stateless generators (local and hosted) ---

	skaffoldTool := tools.NewGenerateSkaffoldTool()
	s.AddTool(skaffoldTool.Definition(), skaffoldTool.Handle)

	workflowTool := tools.NewGenerateWorkflowTool(renderer)
	s.AddTool(workflowTool.Definition(), workflowTool.Handle)

	// --- Resources ---

	resourceHandler := resources.NewHandler()
	s.AddResource(resourceHandler.SchemaResource(), resourceHandler.HandleSchema)
	s.AddResource(resourceHandler.GettingStartedResource(), resourceHandler.HandleGettingStarted)
	s.AddResource(resourceHandler.SkaffoldPatternsResource(), resourceHandler.HandleSkaffoldPatterns)

	if opts.Hosted {
		logrus.Info("hosted mode: filesystem and build tools disabled")
		return s, noop, nil
	}

	// --- Workspace tools ---

	detectTool := tools.NewDetectTool()
	s.AddTool(detectTool.Definition(), detectTool.Handle)

	onboardTool := tools.NewOnboardTool(onboard.New(renderer))
	s.AddTool(onboardTool.Definition(), onboardTool.Handle)

	onboardPrompt := prompts.NewOnboardPrompt()
	s.AddPrompt(onboardPrompt.Definition(), onboardPrompt.Handle)

	// --- Build and history ---
	//
	// History is an independent subsystem: if it fails to initialize,
	// builds still run unrecorded and list_builds is not registered.

	runner := oprunner.New(cfg, opts.BuildOutput)

	cleanup := noop
	store, histErr := history.New(history.Config{DataDir: cfg.DataDir})
	if histErr != nil {
		logrus.WithError(histErr).Warn("build history disabled")
		buildTool := tools.NewBuildTool(runner, nil)
		s.AddTool(buildTool.Definition(), buildTool.Handle)
		return s, cleanup, nil
	}

	cleanup = func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Warn("closing build history")
		}
	}

	buildTool := tools.NewBuildTool(runner, store)
	s.AddTool(buildTool.Definition(), buildTool.Handle)

	listTool := tools.NewListBuildsTool(store)
	s.AddTool(listTool.Definition(), listTool.Handle)

	buildsPrompt := prompts.NewBuildsPrompt()
	s.AddPrompt(buildsPrompt.Definition(), buildsPrompt.Handle)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when history
// is disabled or hasn't been initialized.
func noop() {}

func serverInstructions(hosted bool) string {
	if hosted {
		return "Octopilot generates build and CI configuration for container images.\n\n" +
			"This hosted server cannot read your repository. Describe the artifacts to " +
			"generate_skaffold_yaml, and pass a pipeline context (see the resource " +
			"octopilot://pipeline-context-schema) to generate_ci_workflow. " +
			"Write the returned files into the repository yourself."
	}
	return "Octopilot builds and ships container images with Cloud Native Buildpacks, " +
		"skaffold.yaml and a GitHub Actions pipeline.\n\n" +
		"## Onboarding a repository\n\n" +
		"1. `onboard_repository(workspace, registry)` proposes skaffold.yaml (when missing) and ci.yml, " +
		"and lists the files to create and the manual next steps. It writes nothing.\n" +
		"2. Write the proposed files after the user agrees.\n\n" +
		"## Working step by step\n\n" +
		"- `detect_project_contexts(workspace)` reads skaffold.yaml and reports language and version per artifact.\n" +
		"- `generate_skaffold_yaml(artifacts)` renders a manifest.\n" +
		"- `generate_ci_workflow(pipeline_context, registry)` renders the workflow.\n\n" +
		"## Building locally\n\n" +
		"- `run_op_build(workspace, registry)` runs op and blocks until the build ends. " +
		"Set use_container when op is not installed.\n" +
		"- `list_builds` shows recent builds and failures.\n\n" +
		"Guides: octopilot://docs/getting-started, octopilot://docs/skaffold-patterns."
}
