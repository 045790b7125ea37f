// Package resources implements the MCP resources octopilot exposes.
//
// Resources are read-only documents the host can pull into context: the
// pipeline-context JSON Schema and two short guides. They use octopilot://
// URIs.
package resources

import (
	"context"
	"embed"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/octopilot/octopilot-mcp/internal/detect"
)

//go:embed docs/*.md
var docsFS embed.FS

// Resource URIs.
const (
	SchemaURI           = "octopilot://pipeline-context-schema"
	GettingStartedURI   = "octopilot://docs/getting-started"
	SkaffoldPatternsURI = "octopilot://docs/skaffold-patterns"
)

// Handler serves octopilot resources.
type Handler struct{}

// NewHandler creates a resource Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// SchemaResource returns the MCP resource definition for the
// pipeline-context schema.
func (h *Handler) SchemaResource() mcp.Resource {
	return mcp.NewResource(
		SchemaURI,
		"Pipeline context schema",
		mcp.WithResourceDescription("JSON Schema of the pipeline_context accepted by generate_ci_workflow"),
		mcp.WithMIMEType("application/schema+json"),
	)
}

// HandleSchema returns the pipeline-context schema.
func (h *Handler) HandleSchema(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := detect.SchemaJSON()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/schema+json",
			Text:     string(data),
		},
	}, nil
}

// GettingStartedResource returns the MCP resource definition for the
// getting-started guide.
func (h *Handler) GettingStartedResource() mcp.Resource {
	return mcp.NewResource(
		GettingStartedURI,
		"Getting started with octopilot",
		mcp.WithResourceDescription("Steps to wire a repository to the octopilot pipeline"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleGettingStarted returns the getting-started guide.
func (h *Handler) HandleGettingStarted(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return markdown(req.Params.URI, "docs/getting-started.md")
}

// SkaffoldPatternsResource returns the MCP resource definition for the
// skaffold.yaml patterns guide.
func (h *Handler) SkaffoldPatternsResource() mcp.Resource {
	return mcp.NewResource(
		SkaffoldPatternsURI,
		"skaffold.yaml patterns",
		mcp.WithResourceDescription("Common skaffold.yaml layouts for octopilot projects"),
		mcp.WithMIMEType("text/markdown"),
	)
}

// HandleSkaffoldPatterns returns the skaffold.yaml patterns guide.
func (h *Handler) HandleSkaffoldPatterns(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return markdown(req.Params.URI, "docs/skaffold-patterns.md")
}

func markdown(uri, name string) ([]mcp.ResourceContents, error) {
	data, err := docsFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     string(data),
		},
	}, nil
}
