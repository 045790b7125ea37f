package tools

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/octopilot/octopilot-mcp/internal/config"
	"github.com/octopilot/octopilot-mcp/internal/history"
	"github.com/octopilot/octopilot-mcp/internal/oprunner"
)

// Builder runs op builds. *oprunner.Runner satisfies it.
type Builder interface {
	ResolveMode(opts oprunner.BuildOptions) oprunner.Mode
	Build(ctx context.Context, opts oprunner.BuildOptions) (*oprunner.BuildResult, error)
}

// BuildRecorder stores finished builds. *history.Store satisfies it.
type BuildRecorder interface {
	Add(rec history.Record) (string, error)
}

// BuildTool handles the run_op_build MCP tool.
// The call blocks until op exits; op's output goes to the server's stderr.
type BuildTool struct {
	builder  Builder
	recorder BuildRecorder
	now      func() time.Time
}

// NewBuildTool creates a BuildTool. recorder may be nil, in which case
// builds are not recorded.
func NewBuildTool(builder Builder, recorder BuildRecorder) *BuildTool {
	return &BuildTool{builder: builder, recorder: recorder, now: time.Now}
}

// Definition returns the MCP tool definition for registration.
func (t *BuildTool) Definition() mcp.Tool {
	return mcp.NewTool("run_op_build",
		mcp.WithDescription(
			"Build (and optionally push) every artifact in the workspace's skaffold.yaml with op. "+
				"Uses the local op binary, or the op container image when use_container is true or "+
				config.EnvUseContainer+" is set. Blocks until the build finishes and returns build_result.json.",
		),
		mcp.WithString("workspace",
			mcp.Required(),
			mcp.Description("Absolute path to the repository root containing skaffold.yaml"),
		),
		mcp.WithString("registry",
			mcp.Required(),
			mcp.Description("Container registry, e.g. ghcr.io/my-org"),
		),
		mcp.WithString("platforms",
			mcp.Description("Comma-separated build platforms. Defaults to "+oprunner.DefaultPlatforms+"."),
			mcp.DefaultString(oprunner.DefaultPlatforms),
		),
		mcp.WithBoolean("push",
			mcp.Description("Push images to the registry after building"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_container",
			mcp.Description("Run op from its container image instead of a local binary. Overrides "+config.EnvUseContainer+"."),
		),
		mcp.WithString("op_image",
			mcp.Description("op container image for container mode. Overrides "+config.EnvOpImage+"."),
		),
		mcp.WithArray("extra_args",
			mcp.Description("Additional arguments appended to 'op build'"),
			mcp.WithStringItems(),
		),
		mcp.WithDestructiveHintAnnotation(false),
	)
}

// Handle processes the run_op_build tool call.
func (t *BuildTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := oprunner.BuildOptions{
		Workspace:    req.GetString("workspace", ""),
		Registry:     req.GetString("registry", ""),
		Platforms:    req.GetString("platforms", oprunner.DefaultPlatforms),
		Push:         req.GetBool("push", false),
		UseContainer: optionalBool(req, "use_container"),
		Image:        req.GetString("op_image", ""),
		ExtraArgs:    stringsArg(req, "extra_args"),
	}
	if opts.Workspace == "" {
		return mcp.NewToolResultError("'workspace' is required"), nil
	}
	if opts.Registry == "" {
		return mcp.NewToolResultError("'registry' is required"), nil
	}
	if abs, err := filepath.Abs(opts.Workspace); err == nil {
		opts.Workspace = abs
	}

	started := t.now()
	res, buildErr := t.builder.Build(ctx, opts)
	id := t.record(opts, started, res, buildErr)

	if buildErr != nil {
		msg := buildErr.Error()
		var exitErr *exec.ExitError
		if errors.As(buildErr, &exitErr) {
			msg += "; op output was streamed to the server's stderr"
		}
		return mcp.NewToolResultError(msg), nil
	}

	return jsonResult(struct {
		BuildID    string               `json:"build_id,omitempty"`
		Invocation *oprunner.Invocation `json:"invocation"`
		Output     map[string]any       `json:"output"`
	}{id, res.Invocation, res.Output})
}

// record stores the build in history and returns its id, or "" when there
// is no recorder or the write failed.
func (t *BuildTool) record(opts oprunner.BuildOptions, started time.Time, res *oprunner.BuildResult, buildErr error) string {
	if t.recorder == nil {
		return ""
	}

	rec := history.Record{
		Workspace:  opts.Workspace,
		Registry:   opts.Registry,
		Platforms:  opts.Platforms,
		Push:       opts.Push,
		Mode:       string(t.builder.ResolveMode(opts)),
		Status:     history.StatusSucceeded,
		StartedAt:  started,
		FinishedAt: t.now(),
	}
	if buildErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = buildErr.Error()
	} else if res != nil {
		rec.Result = res.Output
	}

	id, err := t.recorder.Add(rec)
	if err != nil {
		logrus.WithError(err).Warn("recording build history")
		return ""
	}
	logrus.WithFields(logrus.Fields{"build_id": id, "status": rec.Status}).Debug("build recorded")
	return id
}
