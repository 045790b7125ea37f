package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octopilot/octopilot-mcp/internal/oprunner"
)

var (
	buildRegistry     string
	buildPlatforms    string
	buildPush         bool
	buildUseContainer bool
	buildImage        string
	buildDryRun       bool
)

func newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [workspace] [-- extra op args...]",
		Short: "Run op build for a workspace",
		Long: `Run 'op build' for every artifact in the workspace's skaffold.yaml, with a
local op binary or inside the op container image. op's output is streamed to
stderr; the parsed build_result.json is printed to stdout.`,
		RunE: buildCommand,
	}
	cmd.Flags().StringVar(&buildRegistry, "registry", "", "Container registry, e.g. ghcr.io/my-org")
	cmd.Flags().StringVar(&buildPlatforms, "platforms", oprunner.DefaultPlatforms, "Build platforms")
	cmd.Flags().BoolVar(&buildPush, "push", false, "Push images after building")
	cmd.Flags().BoolVar(&buildUseContainer, "container", false, "Run op from its container image")
	cmd.Flags().StringVar(&buildImage, "op-image", "", "op image for container mode")
	cmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Print the resolved command without running it")
	_ = cmd.MarkFlagRequired("registry")
	return cmd
}

func buildCommand(cmd *cobra.Command, args []string) error {
	workspace, extra := args, []string(nil)
	if n := cmd.ArgsLenAtDash(); n >= 0 {
		workspace, extra = args[:n], args[n:]
	}
	if len(workspace) > 1 {
		return fmt.Errorf("expected at most one workspace, got %d", len(workspace))
	}

	opts := oprunner.BuildOptions{
		Workspace: workspaceArg(workspace),
		Registry:  buildRegistry,
		Platforms: buildPlatforms,
		Push:      buildPush,
		Image:     buildImage,
		ExtraArgs: extra,
	}
	if cmd.Flags().Changed("container") {
		opts.UseContainer = &buildUseContainer
	}

	runner := oprunner.New(cfg, cmd.ErrOrStderr())
	if buildDryRun {
		inv, err := runner.Plan(opts)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), inv)
	}

	res, err := runner.Build(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res.Output)
}
