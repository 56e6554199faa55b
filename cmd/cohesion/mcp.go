package main

import (
	"github.com/panbanda/cohesion/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio that exposes cohesion analysis as tools
an LLM can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "cohesion": {
        "command": "cohesion",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_cohesion  Per-class cohesion scores with filters and summary
  - lint_cohesion     Low-cohesion findings`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"COHESION_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "Diagnostic log level: debug, info, warn, error",
			},
		},
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the server.json manifest for the MCP registry",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func runMCPCmd(c *cli.Context) error {
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	return mcpserver.NewServer(version, sess.cfg, sess.logger).Run(c.Context)
}
