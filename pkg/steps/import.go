package steps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/systemstart/formio-install/pkg/importer"
)

type importStep struct {
	name string
}

// NewImportStep creates the step that materializes the selected template.
func NewImportStep(name string) Step {
	return &importStep{name: name}
}

func (s *importStep) Name() string { return s.name }

// Satisfied adopts a previously saved project into state.
func (s *importStep) Satisfied(ctx context.Context, state *State) (bool, error) {
	if !state.Config.Steps.Import {
		return true, nil
	}
	return loadSavedProject(ctx, state)
}

func (s *importStep) Run(ctx context.Context, state *State) error {
	if state.Template == nil {
		return fmt.Errorf("no project template selected")
	}

	project, err := importer.New(state.Platform).Import(ctx, state.Template)
	if err != nil {
		return err
	}
	state.Project = project

	if err := state.Platform.SaveProject(ctx, project); err != nil {
		return fmt.Errorf("saving imported project: %w", err)
	}
	return nil
}

func loadSavedProject(ctx context.Context, state *State) (bool, error) {
	if state.Project != nil {
		return true, nil
	}

	project, found, err := state.Platform.LoadProject(ctx)
	if err != nil {
		return false, fmt.Errorf("loading saved project: %w", err)
	}
	if !found {
		return false, nil
	}

	slog.Info("project already imported", "project", project.Name, "entities", project.Count())
	state.Project = project
	return true, nil
}
