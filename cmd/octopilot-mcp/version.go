package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octopilot/octopilot-mcp/internal/release"
	octoserver "github.com/octopilot/octopilot-mcp/internal/server"
)

var versionCheck bool

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !versionCheck {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "octopilot-mcp v%s\n", octoserver.Version)
				return err
			}
			st := release.Check(cmd.Context(), octoserver.Version)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
	cmd.Flags().BoolVar(&versionCheck, "check", false, "Also check GitHub for a newer release")
	return cmd
}
