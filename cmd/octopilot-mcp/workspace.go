package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/octopilot/octopilot-mcp/internal/detect"
	"github.com/octopilot/octopilot-mcp/internal/manifest"
	"github.com/octopilot/octopilot-mcp/internal/onboard"
	"github.com/octopilot/octopilot-mcp/internal/templates"
)

var (
	onboardRegistry  string
	onboardPlatforms string
	onboardBuilder   string
	onboardWrite     bool
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [workspace]",
		Short: "Print the pipeline context for a workspace's skaffold.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := detect.DetectContexts(workspaceArg(args))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pc)
		},
	}
}

func newOnboardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboard [workspace]",
		Short: "Propose skaffold.yaml and the CI workflow for a workspace",
		Long: `Detect the workspace's services and print the onboarding result as JSON:
pipeline context, proposed skaffold.yaml, CI workflow, files to create and
next steps. With --write the proposed files are written to the workspace.`,
		Args: cobra.MaximumNArgs(1),
		RunE: onboardCommand,
	}
	cmd.Flags().StringVar(&onboardRegistry, "registry", "", "Container registry, e.g. ghcr.io/my-org")
	cmd.Flags().StringVar(&onboardPlatforms, "platforms", "", "Build platforms (default "+templates.DefaultPlatforms+")")
	cmd.Flags().StringVar(&onboardBuilder, "builder", "", "Buildpacks builder (default "+manifest.DefaultBuilder+")")
	cmd.Flags().BoolVar(&onboardWrite, "write", false, "Write the files listed in files_to_create")
	_ = cmd.MarkFlagRequired("registry")
	return cmd
}

func onboardCommand(cmd *cobra.Command, args []string) error {
	renderer, err := templates.NewRenderer()
	if err != nil {
		return err
	}
	workspace := workspaceArg(args)

	res, err := onboard.New(renderer).Run(onboard.Options{
		Workspace: workspace,
		Registry:  onboardRegistry,
		Platforms: onboardPlatforms,
		Builder:   onboardBuilder,
	})
	if err != nil {
		return err
	}

	if onboardWrite {
		if err := writeOnboardFiles(workspace, res); err != nil {
			return err
		}
	}
	return printJSON(cmd.OutOrStdout(), res)
}

// writeOnboardFiles writes every file the result proposes. Files that
// already exist are never in FilesToCreate, so nothing is overwritten.
func writeOnboardFiles(workspace string, res *onboard.Result) error {
	contents := map[string]string{templates.WorkflowPath: res.CIWorkflow}
	if res.SkaffoldYAML != nil {
		contents[manifest.File] = *res.SkaffoldYAML
	}

	for _, name := range res.FilesToCreate {
		path := filepath.Join(workspace, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(contents[name]), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		logrus.WithField("file", path).Info("created")
	}
	return nil
}

func workspaceArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
