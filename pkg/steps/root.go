package steps

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/systemstart/formio-install/pkg/importer"
	"github.com/systemstart/formio-install/pkg/provision"
)

type rootUserStep struct {
	name string
}

// NewRootUserStep creates the step that provisions the root account.
func NewRootUserStep(name string) Step {
	return &rootUserStep{name: name}
}

func (s *rootUserStep) Name() string { return s.name }

func (s *rootUserStep) Satisfied(ctx context.Context, state *State) (bool, error) {
	if !state.Config.Steps.User {
		return true, nil
	}

	found, err := loadSavedProject(ctx, state)
	if err != nil || !found {
		return false, err
	}
	admin, ok := state.Project.Lookup(importer.SectionResources, provision.AdminResource)
	if !ok {
		return false, nil
	}

	exists, err := state.Platform.SubmissionExists(ctx, admin.ID, "email", state.Config.Root.Email)
	if err != nil {
		return false, fmt.Errorf("checking for root account: %w", err)
	}
	if exists {
		slog.Info("root account already exists", "email", state.Config.Root.Email)
	}
	return exists, nil
}

func (s *rootUserStep) Run(ctx context.Context, state *State) error {
	if state.Project == nil {
		return fmt.Errorf("no imported project; enable the import step first")
	}

	root := state.Config.Root
	ref, err := provision.ProvisionRoot(ctx, state.Platform, state.Project, root.Email, root.Password)
	if err != nil {
		return err
	}

	slog.Info("root account created", "email", ref.Email, "id", ref.ID)
	state.Account = &ref
	return nil
}
