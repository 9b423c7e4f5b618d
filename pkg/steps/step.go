package steps

import (
	"context"

	"github.com/systemstart/formio-install/pkg/api"
	"github.com/systemstart/formio-install/pkg/bundle"
	"github.com/systemstart/formio-install/pkg/importer"
	"github.com/systemstart/formio-install/pkg/provision"
)

// Platform is the data platform a pipeline provisions.
type Platform interface {
	importer.Creator
	provision.Platform

	SaveProject(ctx context.Context, project *importer.Project) error
	LoadProject(ctx context.Context) (*importer.Project, bool, error)
	SubmissionExists(ctx context.Context, formID, field, value string) (bool, error)
}

// State is threaded through every step of one pipeline run. Steps read what
// earlier steps produced and write only their own outputs.
type State struct {
	Config    *api.Config
	Platform  Platform
	Fetcher   *bundle.Fetcher
	Installer *bundle.Installer

	// Placeholders are substituted into bundle config templates.
	Placeholders map[string]string

	Template *api.ProjectTemplate  // set by select-template
	Project  *importer.Project     // set by import-template
	Account  *provision.AccountRef // set by create-root-user
}

// Step is the interface all pipeline steps implement.
type Step interface {
	Name() string
	// Satisfied reports whether the step's work is already done or was not requested.
	Satisfied(ctx context.Context, state *State) (bool, error)
	Run(ctx context.Context, state *State) error
}
