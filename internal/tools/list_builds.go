package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/octopilot/octopilot-mcp/internal/history"
)

// BuildLister reads recent builds. *history.Store satisfies it.
type BuildLister interface {
	Recent(workspace string, limit int) ([]history.Record, error)
}

// ListBuildsTool handles the list_builds MCP tool.
type ListBuildsTool struct {
	lister BuildLister
}

// NewListBuildsTool creates a ListBuildsTool.
func NewListBuildsTool(lister BuildLister) *ListBuildsTool {
	return &ListBuildsTool{lister: lister}
}

// Definition returns the MCP tool definition for registration.
func (t *ListBuildsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_builds",
		mcp.WithDescription(
			"List recent op builds started through run_op_build, newest first.",
		),
		mcp.WithString("workspace",
			mcp.Description("Only list builds of this repository. Omit to list every repository."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of builds to return (default: 10)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

// Handle processes the list_builds tool call.
func (t *ListBuildsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workspace := req.GetString("workspace", "")
	if workspace != "" {
		if abs, err := filepath.Abs(workspace); err == nil {
			workspace = abs
		}
	}
	limit := intArg(req, "limit", 10)

	records, err := t.lister.Recent(workspace, limit)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	if len(records) == 0 {
		return mcp.NewToolResultText("No builds recorded yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Recent builds (%d)\n\n", len(records))
	b.WriteString("| Started | Status | Workspace | Registry | Platforms | Push | Mode | Took | ID |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|\n")
	for _, r := range records {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %t | %s | %s | %s |\n",
			humanize.Time(r.StartedAt), r.Status, r.Workspace, r.Registry, r.Platforms,
			r.Push, r.Mode, r.Duration().Round(time.Second), r.ID)
	}

	var failed []history.Record
	for _, r := range records {
		if r.Status == history.StatusFailed && r.Error != "" {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n### Failures\n\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "- `%s`: %s\n", r.ID, r.Error)
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}
