// Package openapi embeds the User Management API contract.
package openapi

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FileName is the name the contract is published under.
const FileName = "user-management-api.yaml"

//go:embed user-management-api.yaml
var document []byte

// Document is the subset of an OpenAPI 3 document the service relies on.
type Document struct {
	OpenAPI    string              `yaml:"openapi"`
	Info       Info                `yaml:"info"`
	Servers    []Server            `yaml:"servers"`
	Paths      map[string]PathItem `yaml:"paths"`
	Components Components          `yaml:"components"`
}

type Info struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

type PathItem struct {
	Get  *Operation `yaml:"get"`
	Post *Operation `yaml:"post"`
}

type Operation struct {
	OperationID string              `yaml:"operationId"`
	Summary     string              `yaml:"summary"`
	Tags        []string            `yaml:"tags"`
	RequestBody *RequestBody        `yaml:"requestBody"`
	Responses   map[string]Response `yaml:"responses"`
}

type RequestBody struct {
	Required bool                 `yaml:"required"`
	Content  map[string]MediaType `yaml:"content"`
}

type Response struct {
	Description string               `yaml:"description"`
	Content     map[string]MediaType `yaml:"content"`
}

type MediaType struct {
	Schema Schema `yaml:"schema"`
}

type Components struct {
	Schemas map[string]Schema `yaml:"schemas"`
}

// Schema is a JSON schema node. Refs are left unresolved.
type Schema struct {
	Ref        string            `yaml:"$ref"`
	Type       string            `yaml:"type"`
	Format     string            `yaml:"format"`
	Required   []string          `yaml:"required"`
	Properties map[string]Schema `yaml:"properties"`
	Items      *Schema           `yaml:"items"`
	ReadOnly   bool              `yaml:"readOnly"`
	MinLength  *int              `yaml:"minLength"`
	MaxLength  *int              `yaml:"maxLength"`
	Pattern    string            `yaml:"pattern"`
}

// YAML returns the raw contract.
func YAML() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}

// Load parses the embedded contract.
func Load() (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(document, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	return &doc, nil
}

// JSON renders the contract as JSON for Swagger UI.
func JSON() ([]byte, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(document, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode openapi document: %w", err)
	}
	return data, nil
}
