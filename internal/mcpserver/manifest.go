package mcpserver

import (
	"encoding/json"
)

const (
	// ServerName identifies the server to MCP clients.
	ServerName = "cohesion"

	manifestSchema  = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"
	registryName    = "io.github.panbanda/cohesion"
	repositoryURL   = "https://github.com/panbanda/cohesion"
	imageRepository = "ghcr.io/panbanda/cohesion"
	description     = "Python class cohesion scores and low-cohesion lint findings"
)

// Manifest is the registry's server.json document.
type Manifest struct {
	Schema      string      `json:"$schema"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Version     string      `json:"version"`
	Repository  *Repository `json:"repository,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Repository is where the server's source lives.
type Repository struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

// Package describes one way to install and launch the server.
type Package struct {
	RegistryType         string     `json:"registryType"`
	Identifier           string     `json:"identifier"`
	PackageArguments     []Argument `json:"packageArguments,omitempty"`
	EnvironmentVariables []EnvVar   `json:"environmentVariables,omitempty"`
	Transport            Transport  `json:"transport"`
}

// Argument is a command-line argument passed when launching the package.
type Argument struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// EnvVar is an environment variable the server reads.
type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsRequired  bool   `json:"isRequired"`
}

// Transport names how clients talk to the server.
type Transport struct {
	Type string `json:"type"`
}

// NewManifest describes the stdio server started by `cohesion mcp`.
func NewManifest(version string) Manifest {
	if version == "" || version == "dev" {
		version = "0.0.0"
	}
	return Manifest{
		Schema:      manifestSchema,
		Name:        registryName,
		Description: description,
		Version:     version,
		Repository:  &Repository{URL: repositoryURL, Source: "github"},
		Packages: []Package{{
			RegistryType:     "oci",
			Identifier:       imageRepository + ":" + version,
			PackageArguments: []Argument{{Type: "positional", Value: "mcp"}},
			EnvironmentVariables: []EnvVar{{
				Name:        "COHESION_CONFIG",
				Description: "Path to a cohesion config file (TOML, YAML or JSON)",
			}},
			Transport: Transport{Type: "stdio"},
		}},
	}
}

// GenerateManifest renders NewManifest as indented JSON.
func GenerateManifest(version string) ([]byte, error) {
	data, err := json.MarshalIndent(NewManifest(version), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
