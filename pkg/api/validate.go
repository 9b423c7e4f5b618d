package api

import (
	"fmt"
	"strings"
)

// Validate checks the resolved configuration for errors.
func (c *Config) Validate() error {
	if c.App != "" {
		parts := strings.Split(c.App, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("app %q must be of the form owner/repo", c.App)
		}
	}

	for name, b := range c.Bundles() {
		if err := validateBundle(b); err != nil {
			return fmt.Errorf("bundle %q: %w", name, err)
		}
	}

	if err := c.validateTemplateSource(); err != nil {
		return err
	}

	if c.Steps.User {
		if c.Root.Email == "" {
			return fmt.Errorf("root.email is required when the user step is enabled")
		}
		if !strings.Contains(c.Root.Email, "@") {
			return fmt.Errorf("root.email %q is not an email address", c.Root.Email)
		}
		if c.Root.Password == "" {
			return fmt.Errorf("root.password is required when the user step is enabled")
		}
	}

	return nil
}

func validateBundle(b BundleSpec) error {
	if b.SourceURL == "" {
		return fmt.Errorf("url is required")
	}
	if b.ArchivePath == "" {
		return fmt.Errorf("archive is required")
	}
	if b.ExtractedDir == "" {
		return fmt.Errorf("extractedDir is required")
	}
	if b.TargetDir == "" {
		return fmt.Errorf("targetDir is required")
	}
	if b.ArchivePath == b.TargetDir {
		return fmt.Errorf("archive and targetDir must differ")
	}
	return nil
}

func (c *Config) validateTemplateSource() error {
	if c.Template == TemplateSourceApp && c.App == "" {
		return fmt.Errorf("template %q requires app to be set", TemplateSourceApp)
	}
	return nil
}
