package api

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads an installer YAML file over the defaults. An empty
// filename yields the defaults alone.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// Resolve fills in bundle defaults and anchors relative paths at workDir.
func (c *Config) Resolve(workDir string) error {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return fmt.Errorf("resolving work directory: %w", err)
	}
	c.WorkDir = absDir

	if c.Domain == "" {
		c.Domain = DefaultDomain
	}
	c.App = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(c.App), githubPrefix), "/")

	c.Client.Name = BundleClient
	setDefault(&c.Client.SourceURL, DefaultClientURL)
	setDefault(&c.Client.ArchivePath, DefaultClientArchive)
	setDefault(&c.Client.ExtractedDir, DefaultClientExtractedDir)
	setDefault(&c.Client.TargetDir, DefaultClientTargetDir)
	c.Client.anchor(absDir)

	if c.App == "" {
		return nil
	}

	c.AppSpec.Name = BundleApp
	data := map[string]any{"app": c.App}
	for _, f := range []struct {
		field *string
		def   string
	}{
		{&c.AppSpec.SourceURL, DefaultAppURL},
		{&c.AppSpec.ArchivePath, DefaultAppArchive},
		{&c.AppSpec.ExtractedDir, DefaultAppExtractedDir},
		{&c.AppSpec.TargetDir, DefaultAppTargetDir},
	} {
		setDefault(f.field, f.def)
		rendered, err := renderValue(*f.field, data)
		if err != nil {
			return fmt.Errorf("app bundle: %w", err)
		}
		*f.field = rendered
	}
	c.AppSpec.anchor(absDir)

	return nil
}

// Bundles returns the configured bundles keyed by name.
func (c *Config) Bundles() map[string]BundleSpec {
	bundles := map[string]BundleSpec{BundleClient: c.Client}
	if c.App != "" {
		bundles[BundleApp] = c.AppSpec
	}
	return bundles
}

// Placeholders returns the values substituted into bundle config templates.
func (c *Config) Placeholders() map[string]string {
	vars := make(map[string]string, len(c.Context)+1)
	maps.Copy(vars, c.Context)
	vars["domain"] = c.Domain
	return vars
}

func (b *BundleSpec) anchor(dir string) {
	if !filepath.IsAbs(b.ArchivePath) {
		b.ArchivePath = filepath.Join(dir, b.ArchivePath)
	}
	if !filepath.IsAbs(b.TargetDir) {
		b.TargetDir = filepath.Join(dir, b.TargetDir)
	}
}

func setDefault(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

// renderValue expands operator-supplied defaults; bundle contents never pass through here.
func renderValue(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("value").Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", text, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %q: %w", text, err)
	}
	return buf.String(), nil
}
