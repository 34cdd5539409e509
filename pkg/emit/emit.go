// Package emit writes a generated library model to disk.
//
// The output directory holds the model summary (model.yaml or model.json),
// a universe document describing the emitted library types (library.yaml),
// one .ir file per emitted class with its synthesized bodies, and the run's
// diagnostics (diagnostics.yaml).
package emit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/synth"
	"github.com/panbanda/libmodel/pkg/universe"
)

// File names inside the output directory.
const (
	ModelYAML   = "model.yaml"
	ModelJSON   = "model.json"
	LibraryFile = "library.yaml"
	ClassesDir  = "classes"
	// DiagnosticsFile lists every skipped or failed item of the run.
	DiagnosticsFile = "diagnostics.yaml"
)

// Options control what is emitted.
type Options struct {
	// IncludePlatform keeps library classes of the platform runtime.
	IncludePlatform bool
	// IsPlatform reports whether a class belongs to the platform runtime.
	// Nil means no class does.
	IsPlatform func(name string) bool
	// Format selects model.yaml or model.json.
	Format universe.Format
}

// Model is the emitted summary of a run.
type Model struct {
	Fingerprint string          `yaml:"fingerprint" json:"fingerprint"`
	Root        string          `yaml:"root" json:"root"`
	Library     string          `yaml:"library" json:"library"`
	DoItAll     string          `yaml:"do_it_all" json:"do_it_all"`
	Main        string          `yaml:"main" json:"main"`
	Stats       synth.Stats     `yaml:"stats" json:"stats"`
	Failed      []string        `yaml:"failed,omitempty" json:"failed,omitempty"`
	Application []AppEntry      `yaml:"application,omitempty" json:"application,omitempty"`
	Types       []TypeEntry     `yaml:"types" json:"types"`
	Hierarchy   hierarchy.Stats `yaml:"-" json:"-"`
}

// AppEntry records the generated interfaces an application class was given.
type AppEntry struct {
	Name       string   `yaml:"name" json:"name"`
	Interfaces []string `yaml:"interfaces" json:"interfaces"`
}

// TypeEntry is one emitted library type.
type TypeEntry struct {
	Name       string        `yaml:"name" json:"name"`
	Kind       string        `yaml:"kind" json:"kind"`
	Modifiers  []string      `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Super      string        `yaml:"super,omitempty" json:"super,omitempty"`
	Interfaces []string      `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	Generated  bool          `yaml:"generated,omitempty" json:"generated,omitempty"`
	Phantom    bool          `yaml:"phantom,omitempty" json:"phantom,omitempty"`
	Fields     []string      `yaml:"fields,omitempty" json:"fields,omitempty"`
	Methods    []MethodEntry `yaml:"methods,omitempty" json:"methods,omitempty"`
}

// MethodEntry is one emitted method with its body as IR text.
type MethodEntry struct {
	Signature string   `yaml:"signature" json:"signature"`
	Modifiers []string `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	ChainTo   string   `yaml:"chain_to,omitempty" json:"chain_to,omitempty"`
	Body      string   `yaml:"body,omitempty" json:"body,omitempty"`
}

// Summary describes what Write produced.
type Summary struct {
	Dir         string
	Files       []string
	Classes     int
	Fingerprint string
}

// Select returns the library types to emit, in hierarchy order. Generated
// types are always emitted; platform classes only when requested.
func Select(h *hierarchy.Hierarchy, opts Options) []*jvm.Type {
	var out []*jvm.Type
	for _, t := range h.LibraryTypes() {
		if !t.Generated && !opts.IncludePlatform && opts.IsPlatform != nil && opts.IsPlatform(t.Name) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Build assembles the model of a generation result and fingerprints it.
func Build(h *hierarchy.Hierarchy, res *synth.Result, opts Options) (*Model, error) {
	m := &Model{
		Stats:     res.Stats,
		Hierarchy: h.Stats(),
	}
	if res.Root != nil {
		m.Root = res.Root.Name
	}
	if res.Library != nil {
		m.Library = res.Library.Name
	}
	if res.DoItAll != nil {
		m.DoItAll = res.DoItAll.Signature()
	}
	if res.Main != nil {
		m.Main = res.Main.Signature()
	}
	for _, f := range res.Failed {
		m.Failed = append(m.Failed, f.Signature())
	}

	for _, t := range h.ApplicationTypes() {
		var generated []string
		for _, name := range t.Interfaces {
			if it := h.Type(name); it != nil && it.Generated {
				generated = append(generated, name)
			}
		}
		if len(generated) > 0 {
			m.Application = append(m.Application, AppEntry{Name: t.Name, Interfaces: generated})
		}
	}

	for _, t := range Select(h, opts) {
		m.Types = append(m.Types, typeEntry(t))
	}

	fp, err := fingerprint(m)
	if err != nil {
		return nil, err
	}
	m.Fingerprint = fp
	return m, nil
}

func typeEntry(t *jvm.Type) TypeEntry {
	e := TypeEntry{
		Name:       t.Name,
		Kind:       t.Kind.String(),
		Modifiers:  t.Modifiers.Strings(),
		Super:      t.Super,
		Interfaces: t.Interfaces,
		Generated:  t.Generated,
		Phantom:    t.Phantom,
	}
	for _, f := range t.Fields {
		e.Fields = append(e.Fields, f.Signature())
	}
	for _, m := range t.Methods {
		me := MethodEntry{Signature: m.Signature(), Modifiers: m.Modifiers.Strings()}
		if m.ChainTo != nil {
			me.ChainTo = m.ChainTo.Signature()
		}
		if m.Body != nil {
			me.Body = m.Body.String()
		}
		e.Methods = append(e.Methods, me)
	}
	return e
}

// fingerprint hashes the model with an empty fingerprint field.
func fingerprint(m *Model) (string, error) {
	cp := *m
	cp.Fingerprint = ""
	data, err := json.Marshal(&cp)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Write emits the model of res into dir, creating it if needed.
func Write(dir string, h *hierarchy.Hierarchy, res *synth.Result, opts Options) (*Summary, error) {
	m, err := Build(h, res, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, ClassesDir), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	sum := &Summary{Dir: dir, Fingerprint: m.Fingerprint}
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		sum.Files = append(sum.Files, path)
		return nil
	}

	data, name, err := encodeModel(m, opts.Format)
	if err != nil {
		return nil, err
	}
	if err := write(name, data); err != nil {
		return nil, err
	}

	types := Select(h, opts)
	doc := universe.FromTypes(types)
	doc.Provenance = jvm.Library.String()
	lib, err := universe.Encode(doc, universe.YAML)
	if err != nil {
		return nil, fmt.Errorf("encode library document: %w", err)
	}
	if err := write(LibraryFile, lib); err != nil {
		return nil, err
	}

	for _, t := range types {
		if err := write(filepath.Join(ClassesDir, FileName(t.Name)), []byte(ClassText(t))); err != nil {
			return nil, err
		}
		sum.Classes++
	}

	log.WithFields(log.Fields{
		"dir":         dir,
		"classes":     sum.Classes,
		"fingerprint": shortHash(m.Fingerprint),
	}).Info("model written")
	return sum, nil
}

// WriteDiagnostics writes ds, unabridged, to diagnostics.yaml in dir and
// returns the file path. An empty run writes an empty list.
func WriteDiagnostics(dir string, ds []diag.Diagnostic) (string, error) {
	if ds == nil {
		ds = []diag.Diagnostic{}
	}
	data, err := yaml.Marshal(struct {
		Diagnostics []diag.Diagnostic `yaml:"diagnostics"`
	}{ds})
	if err != nil {
		return "", fmt.Errorf("encode diagnostics: %w", err)
	}
	path := filepath.Join(dir, DiagnosticsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", DiagnosticsFile, err)
	}
	return path, nil
}

func encodeModel(m *Model, f universe.Format) ([]byte, string, error) {
	if f == universe.JSON {
		data, err := json.MarshalIndent(m, "", "  ")
		return data, ModelJSON, err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, "", fmt.Errorf("encode model: %w", err)
	}
	return data, ModelYAML, nil
}

// FileName maps a class name to its .ir file name.
func FileName(class string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(class) + ".ir"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// ClassText renders a type with its fields and method bodies.
func ClassText(t *jvm.Type) string {
	var sb strings.Builder
	if mods := t.Modifiers.String(); mods != "" {
		sb.WriteString(mods + " ")
	}
	fmt.Fprintf(&sb, "%s %s", t.Kind, t.Name)
	if t.Super != "" && !t.IsInterface() {
		fmt.Fprintf(&sb, " extends %s", t.Super)
	}
	if len(t.Interfaces) > 0 {
		word := "implements"
		if t.IsInterface() {
			word = "extends"
		}
		fmt.Fprintf(&sb, " %s %s", word, strings.Join(t.Interfaces, ", "))
	}
	sb.WriteString("\n{\n")

	for _, f := range t.Fields {
		if mods := f.Modifiers.String(); mods != "" {
			fmt.Fprintf(&sb, "    %s %s %s;\n", mods, f.Type, f.Name)
		} else {
			fmt.Fprintf(&sb, "    %s %s;\n", f.Type, f.Name)
		}
	}
	for _, m := range t.Methods {
		sb.WriteString("\n")
		if m.Body != nil {
			sb.WriteString(m.Body.String())
			continue
		}
		params := make([]string, len(m.Params))
		for i, p := range m.Params {
			params[i] = p.String()
		}
		if mods := m.Modifiers.String(); mods != "" {
			sb.WriteString("    " + mods + " ")
		} else {
			sb.WriteString("    ")
		}
		fmt.Fprintf(&sb, "%s %s(%s);\n", m.Return, m.Name, strings.Join(params, ", "))
	}
	sb.WriteString("}\n")
	return sb.String()
}
