package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/libmodel/internal/service/synthesis"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptArg is one argument declared in a prompt's frontmatter.
type promptArg struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

type promptMeta struct {
	Description string      `yaml:"description"`
	Arguments   []promptArg `yaml:"arguments"`
}

// promptDef is a parsed prompt file. Its body is a text/template rendered
// with the request arguments under .Args and, for prompts taking a class,
// what the loaded universe says about it under .Class.
type promptDef struct {
	name string
	meta promptMeta
	body *template.Template
}

// promptData is the template input.
type promptData struct {
	Args  map[string]string
	Class *synthesis.ClassReport
	// Lookup holds the reason Class is nil when a class was asked for.
	Lookup string
}

var promptFuncs = template.FuncMap{
	"names": func(ts []synthesis.TypeInfo) string {
		out := make([]string, len(ts))
		for i, t := range ts {
			out[i] = "`" + t.Name + "`"
		}
		return strings.Join(out, ", ")
	},
}

// loadPrompts parses every embedded prompt, in file name order.
func loadPrompts() ([]promptDef, error) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, err
	}
	var defs []promptDef
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		content, err := promptFiles.ReadFile(path.Join("prompts", entry.Name()))
		if err != nil {
			return nil, err
		}
		meta, body, err := splitFrontmatter(content)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		tmpl, err := template.New(name).Funcs(promptFuncs).Option("missingkey=zero").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		defs = append(defs, promptDef{name: name, meta: meta, body: tmpl})
	}
	return defs, nil
}

// splitFrontmatter separates YAML frontmatter from the body. Content without
// frontmatter is all body.
func splitFrontmatter(content []byte) (promptMeta, string, error) {
	var meta promptMeta
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return meta, string(content), nil
	}
	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return meta, "", fmt.Errorf("unterminated frontmatter")
	}
	if err := yaml.Unmarshal(rest[:end], &meta); err != nil {
		return meta, "", fmt.Errorf("frontmatter: %w", err)
	}
	return meta, strings.TrimPrefix(string(rest[end+5:]), "\n"), nil
}

func (s *Server) registerPrompts() {
	defs, err := loadPrompts()
	if err != nil {
		log.WithError(err).Warn("prompts not registered")
		return
	}
	for _, d := range defs {
		p := &mcp.Prompt{Name: d.name, Description: d.meta.Description}
		for _, a := range d.meta.Arguments {
			p.Arguments = append(p.Arguments, &mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.server.AddPrompt(p, s.promptHandler(d))
	}
}

func (s *Server) promptHandler(d promptDef) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		data := promptData{Args: map[string]string{}}
		if req != nil && req.Params != nil {
			for k, v := range req.Params.Arguments {
				data.Args[k] = strings.TrimSpace(v)
			}
		}
		for _, a := range d.meta.Arguments {
			if a.Required && data.Args[a.Name] == "" {
				return nil, fmt.Errorf("prompt %s: missing argument %q", d.name, a.Name)
			}
		}

		if class := data.Args["class"]; class != "" {
			rep, err := s.svc.Describe(ctx, splitPaths(data.Args["paths"]), class)
			if err != nil {
				data.Lookup = err.Error()
			}
			data.Class = rep
		}

		var buf bytes.Buffer
		if err := d.body.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("prompt %s: %w", d.name, err)
		}
		return &mcp.GetPromptResult{
			Description: d.meta.Description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: buf.String()}},
			},
		}, nil
	}
}

// splitPaths reads the comma-separated paths argument. Empty means the
// current directory.
func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"."}
	}
	return out
}
