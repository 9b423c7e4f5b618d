package api

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

//go:embed default_template.json
var defaultTemplate []byte

// Definition is a single entity definition as written in a project template.
type Definition = map[string]any

// ProjectTemplate is the declarative document describing the entities to provision.
// Sections are listed in creation order.
type ProjectTemplate struct {
	Title       string `yaml:"title"`
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`

	Roles     map[string]Definition `yaml:"roles"`
	Resources map[string]Definition `yaml:"resources"`
	Forms     map[string]Definition `yaml:"forms"`
	Actions   map[string]Definition `yaml:"actions"`
}

// ParseTemplate decodes a project template from YAML, JSON or JSON with comments.
func ParseTemplate(data []byte) (*ProjectTemplate, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '/') {
		data = jsonc.ToJSON(trimmed)
	}

	var t ProjectTemplate
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing project template: %w", err)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("validating project template: %w", err)
	}
	return &t, nil
}

// LoadTemplate reads and parses a project template file.
func LoadTemplate(filename string) (*ProjectTemplate, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading project template: %w", err)
	}
	return ParseTemplate(data)
}

// DefaultTemplate returns the built-in form manager project.
func DefaultTemplate() (*ProjectTemplate, error) {
	return ParseTemplate(defaultTemplate)
}

// Validate checks that every entity carries a definition. Cross-references are
// checked during import, where creation order is known.
func (t *ProjectTemplate) Validate() error {
	sections := []struct {
		name string
		defs map[string]Definition
	}{
		{"roles", t.Roles},
		{"resources", t.Resources},
		{"forms", t.Forms},
		{"actions", t.Actions},
	}
	for _, s := range sections {
		for name, def := range s.defs {
			if name == "" {
				return fmt.Errorf("%s: entity name is required", s.name)
			}
			if def == nil {
				return fmt.Errorf("%s: %q has no definition", s.name, name)
			}
		}
	}
	return nil
}
