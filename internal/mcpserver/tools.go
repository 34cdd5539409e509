package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/libmodel/internal/output"
	"github.com/panbanda/libmodel/internal/report"
	"github.com/panbanda/libmodel/internal/service/synthesis"
	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/emit"
	"github.com/panbanda/libmodel/pkg/session"
)

// defaultDiagnosticLimit keeps tool results small; emitted models carry the
// full list in diagnostics.yaml.
const defaultDiagnosticLimit = 50

// UniverseInput is the base input of every tool that loads a universe.
type UniverseInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Java sources, universe documents (.yaml/.json) or directories. Defaults to current directory if empty."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// GenerateInput adds generation options.
type GenerateInput struct {
	UniverseInput
	OutputDir      string `json:"output_dir,omitempty" jsonschema:"Directory receiving the model. Empty runs the pipeline without writing files."`
	MaxDiagnostics int    `json:"max_diagnostics,omitempty" jsonschema:"Maximum diagnostics listed in the result. Default 50. The full list is in diagnostics.yaml when output_dir is set."`
}

// ReadModelInput names an emitted model directory.
type ReadModelInput struct {
	Dir           string `json:"dir" jsonschema:"Output directory of a previous generation."`
	Format        string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
	WithBodies    bool   `json:"with_bodies,omitempty" jsonschema:"Include synthesized method bodies."`
	GeneratedOnly bool   `json:"generated_only,omitempty" jsonschema:"List only generated types."`
}

// ClassifyInput lists the type names to classify.
type ClassifyInput struct {
	UniverseInput
	Names []string `json:"names" jsonschema:"Fully qualified class names, nested classes with $."`
}

// TypeInput names one type.
type TypeInput struct {
	UniverseInput
	Class string `json:"class" jsonschema:"Fully qualified class name, nested classes with $."`
}

func getPaths(input UniverseInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	switch format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		out, err := output.MarshalTOON(data)
		if err != nil {
			return "", err
		}
		return "```\n" + out + "\n```", nil
	default:
		return output.MarshalTOON(data)
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// generateResult is the tool view of a run report.
type generateResult struct {
	Degraded    bool              `json:"degraded" toon:"degraded"`
	Files       int               `json:"files" toon:"files"`
	FailedFiles []string          `json:"failed_files,omitempty" toon:"failed_files"`
	EntryPoints int               `json:"entry_points" toon:"entry_points"`
	Report      *session.Report   `json:"report" toon:"report"`
	Diagnostics []diag.Diagnostic `json:"diagnostics,omitempty" toon:"diagnostics"`
	Omitted     int               `json:"diagnostics_omitted,omitempty" toon:"diagnostics_omitted"`
}

func (s *Server) handleGenerateModel(ctx context.Context, req *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, any, error) {
	rep, err := s.svc.Generate(ctx, getPaths(input.UniverseInput), synthesis.GenerateOptions{OutputDir: input.OutputDir})
	if err != nil {
		return toolError(err.Error())
	}

	limit := input.MaxDiagnostics
	if limit <= 0 {
		limit = defaultDiagnosticLimit
	}
	summary := *rep
	summary.Diagnostics = nil
	summary.LoadErrors = nil
	res := generateResult{
		Degraded:    rep.Degraded,
		Files:       rep.Files,
		EntryPoints: rep.EntryPoints,
		Report:      &summary,
		Diagnostics: rep.Diagnostics,
	}
	for _, e := range rep.LoadErrors {
		res.FailedFiles = append(res.FailedFiles, e.Error())
	}
	if len(res.Diagnostics) > limit {
		res.Omitted = len(res.Diagnostics) - limit
		res.Diagnostics = res.Diagnostics[:limit]
	}
	return toolResult(res, getFormat(input.Format))
}

func (s *Server) handleReadModel(ctx context.Context, req *mcp.CallToolRequest, input ReadModelInput) (*mcp.CallToolResult, any, error) {
	if input.Dir == "" {
		return toolError("dir is required")
	}
	rd, err := report.LoadModel(input.Dir)
	if err != nil {
		return toolError(err.Error())
	}
	m := *rd.Model
	if input.GeneratedOnly {
		m.Types = rd.Generated
	}
	if !input.WithBodies {
		types := make([]emit.TypeEntry, len(m.Types))
		for i, t := range m.Types {
			t.Methods = slices.Clone(t.Methods)
			for j := range t.Methods {
				t.Methods[j].Body = ""
			}
			types[i] = t
		}
		m.Types = types
	}
	return toolResult(m, getFormat(input.Format))
}

func (s *Server) handleClassifyTypes(ctx context.Context, req *mcp.CallToolRequest, input ClassifyInput) (*mcp.CallToolResult, any, error) {
	if len(input.Names) == 0 {
		return toolError("names is required")
	}
	res, err := s.svc.Classify(ctx, getPaths(input.UniverseInput), input.Names)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(res, getFormat(input.Format))
}

func (s *Server) handleSubtypesOf(ctx context.Context, req *mcp.CallToolRequest, input TypeInput) (*mcp.CallToolResult, any, error) {
	return s.relation(ctx, input, s.svc.Subtypes)
}

func (s *Server) handleSupertypesOf(ctx context.Context, req *mcp.CallToolRequest, input TypeInput) (*mcp.CallToolResult, any, error) {
	return s.relation(ctx, input, s.svc.Supertypes)
}

type relationQuery func(ctx context.Context, paths []string, class string) ([]synthesis.TypeInfo, error)

func (s *Server) relation(ctx context.Context, input TypeInput, query relationQuery) (*mcp.CallToolResult, any, error) {
	if input.Class == "" {
		return toolError("class is required")
	}
	res, err := query(ctx, getPaths(input.UniverseInput), input.Class)
	if errors.Is(err, synthesis.ErrUnknownType) {
		return toolError(err.Error() + " (use classify_types to check names)")
	}
	if err != nil {
		return toolError(err.Error())
	}
	out := struct {
		Class string               `json:"class" toon:"class"`
		Types []synthesis.TypeInfo `json:"types" toon:"types"`
	}{input.Class, res}
	return toolResult(out, getFormat(input.Format))
}

func (s *Server) handleEntryPoints(ctx context.Context, req *mcp.CallToolRequest, input UniverseInput) (*mcp.CallToolResult, any, error) {
	res, err := s.svc.EntryPoints(ctx, getPaths(input))
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(res, getFormat(input.Format))
}
