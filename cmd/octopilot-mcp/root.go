package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/octopilot/octopilot-mcp/internal/config"
	octoserver "github.com/octopilot/octopilot-mcp/internal/server"
)

var (
	envFileFlag  string
	logLevelFlag = logLevelValue{}

	// cfg is resolved once in the root command's PersistentPreRunE.
	cfg config.Config
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "octopilot-mcp",
		Short:   "Build and CI tooling for container images, served over MCP",
		Version: octoserver.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return setup()
		},
		SilenceErrors: true,
	}
	setPersistentFlags(rootCmd)

	rootCmd.AddCommand(
		newServeCommand(),
		newDetectCommand(),
		newOnboardCommand(),
		newBuildCommand(),
		newVersionCommand(),
	)
	return rootCmd
}

func setPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Load settings from this .env file (default ./.env when present)")
	cmd.PersistentFlags().Var(&logLevelFlag, "log-level", "Log level: trace, debug, info, warn, error (overrides "+config.EnvLogLevel+")")
}

// setup loads configuration and points logging at stderr; stdout belongs
// to the MCP stdio transport and to command output.
func setup() error {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	loaded, err := config.Load(envFileFlag)
	if err != nil {
		return err
	}
	if logLevelFlag.set {
		loaded.LogLevel = logLevelFlag.level
	}
	cfg = loaded
	logrus.SetLevel(cfg.LogLevel)
	return nil
}

// logLevelValue is a pflag.Value that parses logrus levels.
type logLevelValue struct {
	level logrus.Level
	set   bool
}

var _ pflag.Value = (*logLevelValue)(nil)

func (v *logLevelValue) String() string {
	if !v.set {
		return ""
	}
	return v.level.String()
}

func (v *logLevelValue) Set(s string) error {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return fmt.Errorf("invalid log level %q", s)
	}
	v.level, v.set = lvl, true
	return nil
}

func (v *logLevelValue) Type() string { return "level" }
