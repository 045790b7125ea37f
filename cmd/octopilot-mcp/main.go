// octopilot-mcp: build and CI tooling for container images, served over MCP.
//
// An MCP server that lets an AI coding tool detect a repository's languages,
// generate skaffold.yaml and a GitHub Actions pipeline, and run op builds.
//
// Usage:
//
//	octopilot-mcp serve                 # MCP server on stdio
//	octopilot-mcp serve --http :8080    # MCP server over streamable HTTP
//	octopilot-mcp serve --hosted        # generators and resources only
//	octopilot-mcp detect [workspace]    # print the pipeline context
//	octopilot-mcp onboard --registry R  # propose skaffold.yaml and ci.yml
//	octopilot-mcp build --registry R    # run op build
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
