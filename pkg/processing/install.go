package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/systemstart/formio-install/pkg/api"
	"github.com/systemstart/formio-install/pkg/bundle"
	"github.com/systemstart/formio-install/pkg/steps"
)

// ErrInvalidConfig is returned by Install before any step runs.
var ErrInvalidConfig = errors.New("invalid configuration")

// Install runs the standard installation pipeline for cfg against platform.
// extra placeholders are merged under the ones derived from cfg.
func Install(ctx context.Context, cfg *api.Config, platform steps.Platform, extra map[string]string, observer Observer) Outcome {
	if err := cfg.Validate(); err != nil {
		return Outcome{Err: fmt.Errorf("%w: %w", ErrInvalidConfig, err)}
	}

	state := &steps.State{
		Config:       cfg,
		Platform:     platform,
		Fetcher:      bundle.NewFetcher(),
		Installer:    bundle.NewInstaller(),
		Placeholders: MergeContext(extra, cfg.Placeholders()),
	}

	return NewEngine(steps.Pipeline(), observer).Run(ctx, state)
}
