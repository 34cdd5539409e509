package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/panbanda/libmodel/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes library-model
generation and hierarchy queries as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "libmodel": {
        "command": "libmodel",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - generate_model   Run the pipeline and optionally write the model
  - read_model       Read a written model, with or without bodies
  - classify_types   Application or library provenance of type names
  - subtypes_of      Transitive subclasses and implementers
  - supertypes_of    Superclasses and superinterfaces
  - entry_points     Detected application entry points`,
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	svc, err := newService(c)
	if err != nil {
		return err
	}
	return mcpserver.NewServer(version, svc).Run(c.Context)
}

func manifestCmd() *cli.Command {
	return &cli.Command{
		Name:   "manifest",
		Usage:  "Print the MCP registry manifest (server.json)",
		Hidden: true,
		Action: func(c *cli.Context) error {
			data, err := mcpserver.GenerateManifest(version)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, string(data))
			return nil
		},
	}
}
