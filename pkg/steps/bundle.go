package steps

import (
	"context"
	"fmt"

	"github.com/systemstart/formio-install/pkg/api"
	"github.com/systemstart/formio-install/pkg/bundle"
)

type downloadStep struct {
	name    string
	bundle  string
	enabled func(*api.Config) bool
}

// NewDownloadStep creates a step fetching the named bundle.
func NewDownloadStep(name, bundleName string, enabled func(*api.Config) bool) Step {
	return &downloadStep{name: name, bundle: bundleName, enabled: enabled}
}

func (s *downloadStep) Name() string { return s.name }

// Satisfied also holds once the bundle is installed, since a successful
// install removes the archive.
func (s *downloadStep) Satisfied(_ context.Context, state *State) (bool, error) {
	if !s.enabled(state.Config) {
		return true, nil
	}
	b, err := lookupBundle(state, s.bundle)
	if err != nil {
		return false, err
	}
	return bundle.Fetched(b) || bundle.Installed(b), nil
}

func (s *downloadStep) Run(ctx context.Context, state *State) error {
	b, err := lookupBundle(state, s.bundle)
	if err != nil {
		return err
	}
	return state.Fetcher.Fetch(ctx, b)
}

type extractStep struct {
	name    string
	bundle  string
	enabled func(*api.Config) bool
}

// NewExtractStep creates a step installing the named bundle.
func NewExtractStep(name, bundleName string, enabled func(*api.Config) bool) Step {
	return &extractStep{name: name, bundle: bundleName, enabled: enabled}
}

func (s *extractStep) Name() string { return s.name }

func (s *extractStep) Satisfied(_ context.Context, state *State) (bool, error) {
	if !s.enabled(state.Config) {
		return true, nil
	}
	b, err := lookupBundle(state, s.bundle)
	if err != nil {
		return false, err
	}
	return bundle.Installed(b), nil
}

func (s *extractStep) Run(ctx context.Context, state *State) error {
	b, err := lookupBundle(state, s.bundle)
	if err != nil {
		return err
	}
	return state.Installer.Install(ctx, b, state.Placeholders)
}

func lookupBundle(state *State, name string) (api.BundleSpec, error) {
	b, ok := state.Config.Bundles()[name]
	if !ok {
		return api.BundleSpec{}, fmt.Errorf("bundle %q is not configured", name)
	}
	return b, nil
}

func appConfigured(cfg *api.Config) bool { return cfg.App != "" }
func downloadEnabled(cfg *api.Config) bool { return cfg.Steps.Download }
func extractEnabled(cfg *api.Config) bool { return cfg.Steps.Extract }
