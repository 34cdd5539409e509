// Package universe reads the type universe from YAML or JSON documents.
//
// A document lists types with their members and the raw cross-references of
// application method bodies. Every document is validated against an embedded
// JSON Schema before it is decoded.
package universe

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Document is one decoded universe file.
type Document struct {
	// Provenance applies to every type without its own; empty means library.
	Provenance string    `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	Types      []TypeDoc `yaml:"types" json:"types"`
}

// TypeDoc declares a class or interface.
type TypeDoc struct {
	Name        string      `yaml:"name" json:"name"`
	Kind        string      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Modifiers   []string    `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Super       string      `yaml:"super,omitempty" json:"super,omitempty"`
	Interfaces  []string    `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	Annotations []string    `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	Provenance  string      `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	Fields      []FieldDoc  `yaml:"fields,omitempty" json:"fields,omitempty"`
	Methods     []MethodDoc `yaml:"methods,omitempty" json:"methods,omitempty"`
}

// FieldDoc declares a field.
type FieldDoc struct {
	Name        string   `yaml:"name" json:"name"`
	Type        string   `yaml:"type" json:"type"`
	Modifiers   []string `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Annotations []string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// MethodDoc declares a method. An empty Returns means void.
type MethodDoc struct {
	Name        string   `yaml:"name" json:"name"`
	Params      []string `yaml:"params,omitempty" json:"params,omitempty"`
	Returns     string   `yaml:"returns,omitempty" json:"returns,omitempty"`
	Modifiers   []string `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Annotations []string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	Refs        []RefDoc `yaml:"refs,omitempty" json:"refs,omitempty"`
}

// RefDoc is a cross-reference from a method body. Owner "*" means the
// receiver type is unknown; an empty Descriptor matches every overload.
type RefDoc struct {
	Kind       string `yaml:"kind" json:"kind"`
	Owner      string `yaml:"owner" json:"owner"`
	Name       string `yaml:"name" json:"name"`
	Descriptor string `yaml:"descriptor,omitempty" json:"descriptor,omitempty"`
}

// Format is the encoding of a document.
type Format int

const (
	YAML Format = iota
	JSON
)

// FormatOf picks the format from the file extension. Unknown extensions
// decode as YAML, which also accepts JSON.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

//go:embed universe.schema.json
var schemaJSON []byte

const schemaURL = "universe.schema.json"

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// Decode validates data against the universe schema and decodes it.
func Decode(data []byte, f Format) (*Document, error) {
	sch, err := compiled()
	if err != nil {
		return nil, fmt.Errorf("compile universe schema: %w", err)
	}

	var inst any
	switch f {
	case JSON:
		inst, err = jsonschema.UnmarshalJSON(bytes.NewReader(data))
	default:
		err = yaml.Unmarshal(data, &inst)
	}
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	doc := &Document{}
	switch f {
	case JSON:
		err = json.Unmarshal(data, doc)
	default:
		err = yaml.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

// Encode writes doc in format f.
func Encode(doc *Document, f Format) ([]byte, error) {
	if f == JSON {
		return json.MarshalIndent(doc, "", "  ")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
