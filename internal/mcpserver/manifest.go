package mcpserver

import (
	"encoding/json"
	"strings"
)

const (
	manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	// publisherMeta is the _meta key the registry keeps verbatim.
	publisherMeta = "io.modelcontextprotocol.registry/publisher-provided"
)

// Manifest is the registry entry (server.json) of the libmodel MCP server.
type Manifest struct {
	Schema      string                  `json:"$schema"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Version     string                  `json:"version"`
	Repository  *Repository             `json:"repository,omitempty"`
	Packages    []Package               `json:"packages,omitempty"`
	Meta        map[string]Capabilities `json:"_meta,omitempty"`
}

// Repository contains source repository information.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes how to run the server from its container image.
type Package struct {
	RegistryType         string        `json:"registryType"`
	Identifier           string        `json:"identifier"`
	PackageArguments     []Argument    `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVariable `json:"environmentVariables,omitempty"`
	Transport            Transport     `json:"transport"`
}

// Argument represents a command-line argument.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVariable is an environment variable the server reads.
type EnvVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// Transport describes the communication method.
type Transport struct {
	Type string `json:"type"`
}

// Capabilities lists the tools and prompts a client will find.
type Capabilities struct {
	Tools   []Capability `json:"tools"`
	Prompts []Capability `json:"prompts"`
}

// Capability is one tool or prompt with the first line of its description.
type Capability struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Arguments   []string `json:"arguments,omitempty"`
}

// GenerateManifest builds the manifest from the registered tool catalog and
// the embedded prompts.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}

	var caps Capabilities
	for _, e := range toolCatalog {
		caps.Tools = append(caps.Tools, Capability{Name: e.name, Description: firstLine(e.describe())})
	}
	prompts, err := loadPrompts()
	if err != nil {
		return nil, err
	}
	for _, p := range prompts {
		c := Capability{Name: p.name, Description: p.meta.Description}
		for _, a := range p.meta.Arguments {
			c.Arguments = append(c.Arguments, a.Name)
		}
		caps.Prompts = append(caps.Prompts, c)
	}

	manifest := Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/libmodel",
		Description: "Library model generation and class hierarchy queries for Java applications",
		Version:     version,
		Repository: &Repository{
			URL:    "https://github.com/panbanda/libmodel",
			Source: "github",
		},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       "ghcr.io/panbanda/libmodel:" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			EnvironmentVariables: []EnvVariable{{
				Name:        "LIBMODEL_CONFIG",
				Description: "Path to a libmodel.toml, .yaml or .json configuration file",
			}},
			Transport: Transport{Type: "stdio"},
		}},
		Meta: map[string]Capabilities{publisherMeta: caps},
	}
	return json.MarshalIndent(manifest, "", "  ")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
