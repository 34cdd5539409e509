// Package mcpserver exposes library-model generation and hierarchy queries as
// Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/libmodel/internal/service/synthesis"
)

// Server wraps the MCP server and registers all libmodel tools.
type Server struct {
	server *mcp.Server
	svc    *synthesis.Service
}

// NewServer creates a new MCP server with all libmodel tools registered. A
// nil svc uses the configuration found in the working directory.
func NewServer(version string, svc *synthesis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = synthesis.New()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "libmodel",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, svc: svc}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// toolEntry registers one tool. The catalog also feeds the manifest.
type toolEntry struct {
	name     string
	describe func() string
	add      func(s *Server, t *mcp.Tool)
}

var toolCatalog = []toolEntry{
	{"generate_model", describeGenerateModel, func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleGenerateModel) }},
	{"read_model", describeReadModel, func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleReadModel) }},
	{"classify_types", describeClassifyTypes, func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleClassifyTypes) }},
	{"subtypes_of", describeSubtypesOf, func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleSubtypesOf) }},
	{"supertypes_of", describeSupertypesOf, func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleSupertypesOf) }},
	{"entry_points", describeEntryPoints, func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleEntryPoints) }},
}

func (s *Server) registerTools() {
	for _, e := range toolCatalog {
		e.add(s, &mcp.Tool{Name: e.name, Description: e.describe()})
	}
}
