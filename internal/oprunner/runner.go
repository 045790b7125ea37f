// Package oprunner runs `op build` for a workspace, either with a local op
// binary or inside the official op container image.
//
// The MCP stdio transport owns this process's stdin and stdout, so the
// child never inherits them: its stdout and stderr are both streamed to a
// diagnostic writer (stderr by default) and its stdin is left detached.
// Output is streamed, never buffered, because multi-arch builds are long
// and chatty.
//
// Image promotion (op promote-image) is intentionally not exposed.
package oprunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/octopilot/octopilot-mcp/internal/config"
	"github.com/octopilot/octopilot-mcp/internal/detect"
	"github.com/octopilot/octopilot-mcp/internal/manifest"
)

const (
	// ResultFile is the build summary op writes into the workspace.
	ResultFile = "build_result.json"
	// DefaultPlatforms is the platform list for local builds.
	DefaultPlatforms = "linux/amd64"

	opName        = "op"
	dockerName    = "docker"
	containerRoot = "/workspace"
	dockerSocket  = "/var/run/docker.sock"
)

var (
	// ErrOpUnavailable is returned in binary mode when no op binary resolves.
	ErrOpUnavailable = errors.New("op is not available")
	// ErrDockerUnavailable is returned in container mode without docker.
	ErrDockerUnavailable = errors.New("docker is not available")
)

// Mode is how op is launched.
type Mode string

const (
	ModeBinary    Mode = "binary"
	ModeContainer Mode = "container"
)

// BuildOptions are the per-call inputs of Build. Zero values fall back to
// the runner's configuration.
type BuildOptions struct {
	Workspace string
	Registry  string
	Platforms string
	Push      bool
	// UseContainer overrides OP_USE_CONTAINER when non-nil.
	UseContainer *bool
	// Binary overrides OP_BINARY in binary mode.
	Binary string
	// Image overrides OP_IMAGE in container mode.
	Image     string
	ExtraArgs []string
}

// Invocation is a fully resolved command line.
type Invocation struct {
	Mode Mode     `json:"mode"`
	Path string   `json:"path"`
	Args []string `json:"args"`
	Dir  string   `json:"dir"`
}

// String renders the command line for logs.
func (inv *Invocation) String() string {
	return strings.Join(append([]string{inv.Path}, inv.Args...), " ")
}

// BuildResult is the outcome of a successful build.
type BuildResult struct {
	Invocation *Invocation    `json:"invocation"`
	Output     map[string]any `json:"output"`
}

// Runner resolves and executes op builds.
type Runner struct {
	cfg config.Config
	out io.Writer

	lookPath func(file string) (string, error)
	command  func(ctx context.Context, name string, args ...string) *exec.Cmd
	run      func(cmd *exec.Cmd) error
}

// New creates a Runner that streams child output to out. A nil out means
// os.Stderr.
func New(cfg config.Config, out io.Writer) *Runner {
	if out == nil {
		out = os.Stderr
	}
	return &Runner{
		cfg:      cfg,
		out:      out,
		lookPath: exec.LookPath,
		command:  exec.CommandContext,
		run:      (*exec.Cmd).Run,
	}
}

// OpArgs returns the op argument list for opts:
// build --repo <registry> --platform <platforms> [--push] [extra...].
func OpArgs(opts BuildOptions) []string {
	platforms := opts.Platforms
	if platforms == "" {
		platforms = DefaultPlatforms
	}
	args := []string{"build", "--repo", opts.Registry, "--platform", platforms}
	if opts.Push {
		args = append(args, "--push")
	}
	return append(args, opts.ExtraArgs...)
}

// ResolveMode picks container or binary mode: the call-time override
// first, then OP_USE_CONTAINER.
func (r *Runner) ResolveMode(opts BuildOptions) Mode {
	useContainer := r.cfg.UseContainer
	if opts.UseContainer != nil {
		useContainer = *opts.UseContainer
	}
	if useContainer {
		return ModeContainer
	}
	return ModeBinary
}

// Plan resolves the command that Build would run without running it.
func (r *Runner) Plan(opts BuildOptions) (*Invocation, error) {
	if opts.Registry == "" {
		return nil, errors.New("registry is required")
	}
	if opts.Workspace == "" {
		return nil, errors.New("workspace is required")
	}
	workspace, err := filepath.Abs(opts.Workspace)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace: %w", err)
	}
	if !manifest.Exists(workspace) {
		return nil, fmt.Errorf("%w in %s", detect.ErrManifestNotFound, workspace)
	}

	opArgs := OpArgs(opts)

	if r.ResolveMode(opts) == ModeContainer {
		docker, err := r.lookPath(dockerName)
		if err != nil {
			return nil, fmt.Errorf("%w: container mode runs %s through docker (or colima) on PATH; "+
				"alternatively set %s to a local op binary and unset %s",
				ErrDockerUnavailable, config.EnvOpImage, config.EnvOpBinary, config.EnvUseContainer)
		}
		image := opts.Image
		if image == "" {
			image = r.cfg.OpImage
		}
		if image == "" {
			image = config.DefaultOpImage
		}
		args := []string{
			"run", "--rm",
			"--pull", "always",
			"-v", dockerSocket + ":" + dockerSocket,
			"-v", workspace + ":" + containerRoot,
			"-w", containerRoot,
			"-e", "GITHUB_ACTIONS=true",
			"--entrypoint", opName,
			image,
		}
		return &Invocation{Mode: ModeContainer, Path: docker, Args: append(args, opArgs...), Dir: workspace}, nil
	}

	binary, err := r.resolveBinary(opts.Binary)
	if err != nil {
		return nil, err
	}
	return &Invocation{Mode: ModeBinary, Path: binary, Args: opArgs, Dir: workspace}, nil
}

// resolveBinary applies call-time override, then OP_BINARY, then PATH.
func (r *Runner) resolveBinary(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if r.cfg.OpBinary != "" {
		return r.cfg.OpBinary, nil
	}
	path, err := r.lookPath(opName)
	if err != nil {
		return "", fmt.Errorf("%w: set %s to the op binary path, "+
			"or set %s=true (or pass use_container) to run op from %s",
			ErrOpUnavailable, config.EnvOpBinary, config.EnvUseContainer, config.DefaultOpImage)
	}
	return path, nil
}

// Build runs op and returns the parsed build_result.json. The call blocks
// until op exits; only ctx can cut it short. A non-zero exit is returned
// as an error wrapping *exec.ExitError and is never retried.
func (r *Runner) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	inv, err := r.Plan(opts)
	if err != nil {
		return nil, err
	}

	cmd := r.command(ctx, inv.Path, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = r.out
	cmd.Stderr = r.out

	log := logrus.WithFields(logrus.Fields{"mode": inv.Mode, "workspace": inv.Dir})
	log.Debug("$ " + inv.String())

	if err := r.run(cmd); err != nil {
		return nil, fmt.Errorf("op build failed: %w", err)
	}

	output, err := readResult(inv.Dir)
	if err != nil {
		return nil, err
	}
	log.Info("op build finished")
	return &BuildResult{Invocation: inv, Output: output}, nil
}

// readResult parses the workspace's build_result.json, or reports that op
// did not write one.
func readResult(workspace string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(workspace, ResultFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{"status": "ok", "note": ResultFile + " not found after build"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ResultFile, err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ResultFile, err)
	}
	return out, nil
}
