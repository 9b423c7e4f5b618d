package steps

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/systemstart/formio-install/pkg/api"
	"github.com/systemstart/formio-install/pkg/bundle"
)

type selectTemplateStep struct {
	name string
}

// NewSelectTemplateStep creates the step that loads the project template to import.
func NewSelectTemplateStep(name string) Step {
	return &selectTemplateStep{name: name}
}

func (s *selectTemplateStep) Name() string { return s.name }

// Satisfied also holds once a project has been imported, so a later run does
// not need the template source any more.
func (s *selectTemplateStep) Satisfied(ctx context.Context, state *State) (bool, error) {
	if state.Template != nil || !state.Config.Steps.Import {
		return true, nil
	}
	return loadSavedProject(ctx, state)
}

func (s *selectTemplateStep) Run(_ context.Context, state *State) error {
	source := templateSource(state.Config)
	slog.Info("selecting project template", "source", sourceLabel(source))

	t, err := loadTemplate(state.Config, source)
	if err != nil {
		return err
	}

	slog.Info("project template loaded", "title", t.Title,
		"roles", len(t.Roles), "resources", len(t.Resources), "forms", len(t.Forms), "actions", len(t.Actions))
	state.Template = t
	return nil
}

// templateSource prefers the app's own project when an app is installed.
func templateSource(cfg *api.Config) string {
	if cfg.Template == api.TemplateSourceDefault && cfg.App != "" {
		return api.TemplateSourceApp
	}
	return cfg.Template
}

func sourceLabel(source string) string {
	if source == api.TemplateSourceDefault {
		return "built-in"
	}
	return source
}

func loadTemplate(cfg *api.Config, source string) (*api.ProjectTemplate, error) {
	switch source {
	case api.TemplateSourceDefault:
		return api.DefaultTemplate()
	case api.TemplateSourceClient, api.TemplateSourceApp:
		b, ok := cfg.Bundles()[source]
		if !ok {
			return nil, fmt.Errorf("template source %q: bundle is not configured", source)
		}
		root, err := bundle.DocumentRoot(b.TargetDir)
		if err != nil {
			return nil, fmt.Errorf("template source %q: %w", source, err)
		}
		return api.LoadTemplate(filepath.Join(root, api.ProjectTemplateFilename))
	default:
		path := source
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.WorkDir, path)
		}
		return api.LoadTemplate(path)
	}
}
