package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/systemstart/formio-install/pkg/importer"
	"github.com/systemstart/formio-install/pkg/provision"
	"github.com/systemstart/formio-install/pkg/steps"
)

// Status is the lifecycle state of an Engine.
type Status int

const (
	Pending Status = iota
	Running
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// StepError reports the step that stopped the pipeline.
type StepError struct {
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// StepReport records how a step finished.
type StepReport struct {
	Name     string
	Skipped  bool
	Duration time.Duration
}

// Outcome is the terminal result of a pipeline run. Err is nil on success.
type Outcome struct {
	Project *importer.Project
	Account *provision.AccountRef
	Steps   []StepReport
	Err     error
}

// FailedStep returns the name of the failing step, or "" on success.
func (o Outcome) FailedStep() string {
	var se *StepError
	if errors.As(o.Err, &se) {
		return se.Step
	}
	return ""
}

// Observer receives step lifecycle callbacks.
type Observer interface {
	StepStarted(index int, name string)
	StepFinished(index int, name string, skipped bool, err error)
}

// Engine runs a fixed list of steps sequentially, stopping at the first error.
// Completed steps are never undone.
type Engine struct {
	steps    []steps.Step
	observer Observer

	status  Status
	current int
}

// NewEngine creates an Engine for the given steps. observer may be nil.
func NewEngine(pipeline []steps.Step, observer Observer) *Engine {
	return &Engine{steps: pipeline, observer: observer, current: -1}
}

// Status returns the engine state.
func (e *Engine) Status() Status { return e.status }

// Current returns the index of the running or failed step, -1 before the first step.
func (e *Engine) Current() int { return e.current }

// Run executes every step in order against state.
func (e *Engine) Run(ctx context.Context, state *steps.State) Outcome {
	e.status = Running
	var out Outcome

	for i, step := range e.steps {
		e.current = i
		slog.Info("running step", "step", step.Name(), "index", i)
		e.notifyStarted(i, step.Name())

		report, err := runStep(ctx, step, state)
		e.notifyFinished(i, step.Name(), report.Skipped, err)
		if err != nil {
			e.status = Failed
			out.Err = &StepError{Step: step.Name(), Index: i, Err: err}
			slog.Error("step failed", "step", step.Name(), "index", i, "error", err)
			break
		}
		out.Steps = append(out.Steps, report)
	}

	if out.Err == nil {
		e.status = Succeeded
	}
	out.Project = state.Project
	out.Account = state.Account
	return out
}

func runStep(ctx context.Context, step steps.Step, state *steps.State) (StepReport, error) {
	start := time.Now()
	report := StepReport{Name: step.Name()}

	done, err := step.Satisfied(ctx, state)
	if err != nil {
		return report, fmt.Errorf("checking precondition: %w", err)
	}
	if done {
		report.Skipped = true
		report.Duration = time.Since(start)
		slog.Info("step skipped", "step", step.Name())
		return report, nil
	}

	if err := step.Run(ctx, state); err != nil {
		return report, err
	}
	report.Duration = time.Since(start)
	slog.Info("step completed", "step", step.Name(), "duration", report.Duration)
	return report, nil
}

func (e *Engine) notifyStarted(i int, name string) {
	if e.observer != nil {
		e.observer.StepStarted(i, name)
	}
}

func (e *Engine) notifyFinished(i int, name string, skipped bool, err error) {
	if e.observer != nil {
		e.observer.StepFinished(i, name, skipped, err)
	}
}
