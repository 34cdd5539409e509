package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/libmodel/internal/output"
	"github.com/panbanda/libmodel/internal/service/synthesis"
	"github.com/panbanda/libmodel/internal/testutil"
	"github.com/panbanda/libmodel/pkg/config"
	"github.com/panbanda/libmodel/pkg/emit"
)

// newTestServer writes a one-class application and returns a server whose
// entry-point configuration names java.lang.Runnable.
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	src := testutil.JavaApp(t, map[string]string{"app.Task": testutil.RunnableTask})

	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	cfg.EntryPoints.ConfigDir = testutil.EntryPointDir(t, "java.lang.Runnable_DEFAULT")
	return NewServer("test", synthesis.New(synthesis.WithConfig(cfg))), src
}

func resultText(t *testing.T, name string, result *mcp.CallToolResult, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("%s returned error: %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("%s returned no content", name)
	}
	text := result.Content[0].(*mcp.TextContent).Text
	if result.IsError {
		t.Fatalf("%s returned tool error: %s", name, text)
	}
	return text
}

func TestServerCreation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	server := NewServer("", synthesis.New(synthesis.WithConfig(cfg)))
	if server == nil || server.server == nil {
		t.Fatal("NewServer() returned an incomplete server")
	}
}

func TestToolDescriptions(t *testing.T) {
	for _, e := range toolCatalog {
		name := e.name
		t.Run(name, func(t *testing.T) {
			desc := e.describe()
			for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "RETURNS:"} {
				if !strings.Contains(desc, section) {
					t.Errorf("%s description missing %s", name, section)
				}
			}
		})
	}
}

func TestGetPaths(t *testing.T) {
	if got := getPaths(UniverseInput{}); len(got) != 1 || got[0] != "." {
		t.Errorf("getPaths() = %v, want [.]", got)
	}
	if got := getPaths(UniverseInput{Paths: []string{"/a", "/b"}}); len(got) != 2 {
		t.Errorf("getPaths() = %v", got)
	}
}

func TestGetFormat(t *testing.T) {
	tests := map[string]output.Format{
		"":         output.FormatTOON,
		"toon":     output.FormatTOON,
		"json":     output.FormatJSON,
		"md":       output.FormatMarkdown,
		"markdown": output.FormatMarkdown,
	}
	for in, want := range tests {
		if got := getFormat(in); got != want {
			t.Errorf("getFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatOutputMarkdownFences(t *testing.T) {
	text, err := formatOutput(map[string]int{"a": 1}, output.FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(text, "```\n") || !strings.HasSuffix(text, "\n```") {
		t.Errorf("markdown output not fenced: %q", text)
	}
}

func TestHandleGenerateModel(t *testing.T) {
	s, src := newTestServer(t)
	out := filepath.Join(t.TempDir(), "model")

	result, _, err := s.handleGenerateModel(context.Background(), nil, GenerateInput{
		UniverseInput: UniverseInput{Paths: []string{src}, Format: "json"},
		OutputDir:     out,
	})
	text := resultText(t, "generate_model", result, err)

	var got generateResult
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, text)
	}
	if got.EntryPoints != 1 || got.Files != 1 {
		t.Errorf("entry points = %d, files = %d", got.EntryPoints, got.Files)
	}
	if got.Report == nil || got.Report.Output == nil || got.Report.Output.Classes == 0 {
		t.Errorf("report lacks output summary: %s", text)
	}
	if _, err := os.Stat(filepath.Join(out, emit.ModelYAML)); err != nil {
		t.Errorf("model not written: %v", err)
	}

	read, _, err := s.handleReadModel(context.Background(), nil, ReadModelInput{Dir: out, Format: "json", GeneratedOnly: true})
	text = resultText(t, "read_model", read, err)
	var m emit.Model
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(m.Types) == 0 {
		t.Fatal("no generated types")
	}
	for _, te := range m.Types {
		if !te.Generated {
			t.Errorf("%s is not generated", te.Name)
		}
		for _, me := range te.Methods {
			if me.Body != "" {
				t.Errorf("%s has a body without with_bodies", me.Signature)
			}
		}
	}
}

func TestHandleGenerateModelNoInput(t *testing.T) {
	s, _ := newTestServer(t)
	result, _, err := s.handleGenerateModel(context.Background(), nil, GenerateInput{
		UniverseInput: UniverseInput{Paths: []string{t.TempDir()}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("expected a tool error for an empty directory")
	}
}

func TestHandleReadModelRequiresDir(t *testing.T) {
	s, _ := newTestServer(t)
	result, _, _ := s.handleReadModel(context.Background(), nil, ReadModelInput{})
	if !result.IsError {
		t.Error("expected a tool error without dir")
	}
}

func TestHandleClassifyTypes(t *testing.T) {
	s, src := newTestServer(t)
	result, _, err := s.handleClassifyTypes(context.Background(), nil, ClassifyInput{
		UniverseInput: UniverseInput{Paths: []string{src}, Format: "json"},
		Names:         []string{"app.Task", "java.lang.Thread"},
	})
	text := resultText(t, "classify_types", result, err)

	var got []synthesis.Classification
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Provenance != "application" || got[1].Provenance != "library" {
		t.Errorf("unexpected classification: %+v", got)
	}
}

func TestHandleSubtypesOf(t *testing.T) {
	s, src := newTestServer(t)
	result, _, err := s.handleSubtypesOf(context.Background(), nil, TypeInput{
		UniverseInput: UniverseInput{Paths: []string{src}, Format: "json"},
		Class:         "java.lang.Runnable",
	})
	text := resultText(t, "subtypes_of", result, err)
	if !strings.Contains(text, `"app.Task"`) {
		t.Errorf("app.Task missing from subtypes:\n%s", text)
	}

	result, _, _ = s.handleSubtypesOf(context.Background(), nil, TypeInput{
		UniverseInput: UniverseInput{Paths: []string{src}},
		Class:         "no.Such",
	})
	if !result.IsError {
		t.Error("expected a tool error for an unknown class")
	}
}

func TestHandleSupertypesOf(t *testing.T) {
	s, src := newTestServer(t)
	result, _, err := s.handleSupertypesOf(context.Background(), nil, TypeInput{
		UniverseInput: UniverseInput{Paths: []string{src}, Format: "json"},
		Class:         "app.Task",
	})
	text := resultText(t, "supertypes_of", result, err)
	if !strings.Contains(text, `"java.lang.Runnable"`) {
		t.Errorf("java.lang.Runnable missing from supertypes:\n%s", text)
	}
}

func TestHandleEntryPoints(t *testing.T) {
	s, src := newTestServer(t)
	result, _, err := s.handleEntryPoints(context.Background(), nil, UniverseInput{Paths: []string{src}, Format: "json"})
	text := resultText(t, "entry_points", result, err)

	var got []synthesis.EntryPoint
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Class != "app.Task" || got[0].Tag != "subtyping" {
		t.Errorf("unexpected entry points: %+v", got)
	}
}

func TestSplitFrontmatter(t *testing.T) {
	meta, body, err := splitFrontmatter([]byte("---\ndescription: hello\narguments:\n  - name: class\n    required: true\n---\nbody text\n"))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Description != "hello" || body != "body text\n" {
		t.Errorf("splitFrontmatter() = %+v, %q", meta, body)
	}
	if len(meta.Arguments) != 1 || meta.Arguments[0].Name != "class" || !meta.Arguments[0].Required {
		t.Errorf("arguments = %+v", meta.Arguments)
	}

	meta, body, err = splitFrontmatter([]byte("no frontmatter"))
	if err != nil || meta.Description != "" || body != "no frontmatter" {
		t.Errorf("splitFrontmatter() = %+v, %q, %v", meta, body, err)
	}
	if _, _, err := splitFrontmatter([]byte("---\ndescription: open\n")); err == nil {
		t.Error("unterminated frontmatter should fail")
	}
}

func TestLoadPrompts(t *testing.T) {
	defs, err := loadPrompts()
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) == 0 {
		t.Fatal("no prompts embedded")
	}
	for _, d := range defs {
		if d.meta.Description == "" {
			t.Errorf("%s has no description", d.name)
		}
	}
}

func getPrompt(t *testing.T, s *Server, name string, args map[string]string) (string, error) {
	t.Helper()
	defs, err := loadPrompts()
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range defs {
		if d.name != name {
			continue
		}
		res, err := s.promptHandler(d)(context.Background(), &mcp.GetPromptRequest{
			Params: &mcp.GetPromptParams{Name: name, Arguments: args},
		})
		if err != nil {
			return "", err
		}
		if res.Description == "" || len(res.Messages) != 1 || res.Messages[0].Role != "user" {
			t.Fatalf("unexpected prompt result: %+v", res)
		}
		return res.Messages[0].Content.(*mcp.TextContent).Text, nil
	}
	t.Fatalf("prompt %s not found", name)
	return "", nil
}

func TestExplainEntryPointPrompt(t *testing.T) {
	s, src := newTestServer(t)

	text, err := getPrompt(t, s, "explain-entry-point", map[string]string{"class": "app.Task", "paths": src})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"`app.Task`: application class.",
		"`java.lang.Runnable`",
		"Detected by subtyping against `java.lang.Runnable`",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q:\n%s", want, text)
		}
	}

	text, err = getPrompt(t, s, "explain-entry-point", map[string]string{"class": "java.lang.Thread", "paths": src})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Not detected as an entry point") || !strings.Contains(text, "Library classes are never entry points") {
		t.Errorf("unexpected library class prompt:\n%s", text)
	}

	text, err = getPrompt(t, s, "explain-entry-point", map[string]string{"class": "no.Such", "paths": src})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "unknown type") || !strings.Contains(text, "Call `classify_types` with `no.Such`") {
		t.Errorf("unknown class should fall back to tool steps:\n%s", text)
	}

	if _, err := getPrompt(t, s, "explain-entry-point", nil); err == nil {
		t.Error("missing class argument should fail")
	}
}

func TestModelLibrariesPrompt(t *testing.T) {
	s, _ := newTestServer(t)
	text, err := getPrompt(t, s, "model-libraries", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "the current directory") || !strings.Contains(text, "`libmodel-out`") {
		t.Errorf("defaults not applied:\n%s", text)
	}

	text, err = getPrompt(t, s, "model-libraries", map[string]string{"paths": "src", "output_dir": "out"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "`src`") || !strings.Contains(text, "`out`") {
		t.Errorf("arguments not applied:\n%s", text)
	}
}

func TestSplitPaths(t *testing.T) {
	if got := splitPaths(""); len(got) != 1 || got[0] != "." {
		t.Errorf("splitPaths(\"\") = %v", got)
	}
	if got := splitPaths(" a, ,b "); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitPaths() = %v", got)
	}
}

func TestServerRegistersCatalog(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	serverT, clientT := mcp.NewInMemoryTransports()
	ss, err := s.server.Connect(ctx, serverT, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer ss.Close()
	cs, err := mcp.NewClient(&mcp.Implementation{Name: "test"}, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, tool := range tools.Tools {
		got = append(got, tool.Name)
	}
	for _, e := range toolCatalog {
		if !slices.Contains(got, e.name) {
			t.Errorf("tool %s not registered, got %v", e.name, got)
		}
	}

	prompts, err := cs.ListPrompts(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	var explain *mcp.Prompt
	for _, p := range prompts.Prompts {
		if p.Name == "explain-entry-point" {
			explain = p
		}
	}
	if explain == nil || len(explain.Arguments) == 0 || explain.Arguments[0].Name != "class" || !explain.Arguments[0].Required {
		t.Errorf("explain-entry-point should declare a required class argument: %+v", explain)
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Name != "io.github.panbanda/libmodel" || m.Version != "1.2.3" {
		t.Errorf("unexpected manifest: %+v", m)
	}
	if m.Packages[0].Identifier != "ghcr.io/panbanda/libmodel:1.2.3" {
		t.Errorf("identifier = %q", m.Packages[0].Identifier)
	}
	if m.Packages[0].EnvironmentVariables[0].Name != "LIBMODEL_CONFIG" {
		t.Errorf("env = %+v", m.Packages[0].EnvironmentVariables)
	}

	caps := m.Meta[publisherMeta]
	if len(caps.Tools) != len(toolCatalog) {
		t.Fatalf("tools = %d, want %d", len(caps.Tools), len(toolCatalog))
	}
	for i, e := range toolCatalog {
		if caps.Tools[i].Name != e.name || caps.Tools[i].Description == "" || strings.Contains(caps.Tools[i].Description, "\n") {
			t.Errorf("tool %d = %+v", i, caps.Tools[i])
		}
	}
	var explain *Capability
	for i := range caps.Prompts {
		if caps.Prompts[i].Name == "explain-entry-point" {
			explain = &caps.Prompts[i]
		}
	}
	if explain == nil || !slices.Contains(explain.Arguments, "class") {
		t.Errorf("prompts = %+v", caps.Prompts)
	}
}
