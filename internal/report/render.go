package report

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/panbanda/libmodel/pkg/emit"
)

//go:embed template.html
var templateFS embed.FS

// RenderData is what the HTML template sees.
type RenderData struct {
	Dir       string
	Model     *emit.Model
	Generated []emit.TypeEntry
	Library   []emit.TypeEntry
	Methods   int
	Bodies    int
}

// Renderer renders an emitted model directory as a single HTML page.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer creates a renderer with the embedded template.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"num": func(n int) string {
			return printer.Sprintf("%d", n)
		},
		"title": titler.String,
		"lower": strings.ToLower,
		"short": func(s string) string {
			if len(s) > 12 {
				return s[:12]
			}
			return s
		},
		"anchor": func(s string) string {
			return strings.NewReplacer(".", "-", "$", "_").Replace(s)
		},
	}

	content, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("model").Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render reads the model in dir and writes the HTML page to w.
func (r *Renderer) Render(dir string, w io.Writer) error {
	data, err := LoadModel(dir)
	if err != nil {
		return err
	}
	return r.tmpl.Execute(w, data)
}

// RenderToFile writes the HTML page for dir to path.
func (r *Renderer) RenderToFile(dir, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.Render(dir, f)
}

// LoadModel reads model.json or model.yaml from an output directory.
func LoadModel(dir string) (*RenderData, error) {
	m := &emit.Model{}
	if data, err := os.ReadFile(filepath.Join(dir, emit.ModelJSON)); err == nil {
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%s: %w", emit.ModelJSON, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		data, err := os.ReadFile(filepath.Join(dir, emit.ModelYAML))
		if err != nil {
			return nil, fmt.Errorf("no model in %s: %w", dir, err)
		}
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%s: %w", emit.ModelYAML, err)
		}
	} else {
		return nil, err
	}

	rd := &RenderData{Dir: dir, Model: m}
	for _, t := range m.Types {
		if t.Generated {
			rd.Generated = append(rd.Generated, t)
		} else {
			rd.Library = append(rd.Library, t)
		}
		rd.Methods += len(t.Methods)
		for _, me := range t.Methods {
			if me.Body != "" {
				rd.Bodies++
			}
		}
	}
	return rd, nil
}
