// File: internal/orchestrator/orchestrator.go
// Description: Runs one user command through observe, plan and execute, and
// summarizes the outcome. Components are injected as interfaces.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// NoActionsMessage is reported when the planner returns an empty list.
const NoActionsMessage = "No actions to perform."

var (
	// ErrBusy is returned when a command is submitted while another is still running.
	ErrBusy = errors.New("another command is still running")
	// ErrEmptyCommand is returned for blank input.
	ErrEmptyCommand = errors.New("command must not be empty")
)

// Stage names the pipeline step a RunError came from.
type Stage string

const (
	StageObserve Stage = "observe"
	StagePlan    Stage = "plan"
)

// RunError is a pipeline fault. Nothing was executed when it is returned.
type RunError struct {
	Stage Stage
	Err   error
}

func (e *RunError) Error() string {
	switch e.Stage {
	case StageObserve:
		return fmt.Sprintf("Could not read the page: %v", e.Err)
	case StagePlan:
		return fmt.Sprintf("Could not plan the command: %v", e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	}
}

func (e *RunError) Unwrap() error { return e.Err }

// Screenshotter captures the current page. A nil Screenshotter plans without an image.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Orchestrator runs one command at a time.
type Orchestrator struct {
	logger   *zap.Logger
	observer schemas.Observer
	planner  schemas.Planner
	executor schemas.Executor
	shots    Screenshotter

	mu sync.Mutex
}

// New creates an Orchestrator. shots may be nil.
func New(logger *zap.Logger, observer schemas.Observer, planner schemas.Planner, executor schemas.Executor, shots Screenshotter) (*Orchestrator, error) {
	if logger == nil || observer == nil || planner == nil || executor == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		logger:   logger.Named("orchestrator"),
		observer: observer,
		planner:  planner,
		executor: executor,
		shots:    shots,
	}, nil
}

// Run observes the page, plans command against it and executes the plan.
// Pipeline faults come back as *RunError and nothing is executed. Action failures
// are not errors; they are reported in the Summary.
func (o *Orchestrator) Run(ctx context.Context, command string) (*schemas.Summary, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}
	if !o.mu.TryLock() {
		return nil, ErrBusy
	}
	defer o.mu.Unlock()

	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID))
	start := time.Now()
	logger.Info("Command received.", zap.String("command", command))

	snapshot, err := o.observer.Observe(ctx)
	if err != nil {
		logger.Warn("Observation failed.", zap.Error(err))
		return nil, &RunError{Stage: StageObserve, Err: err}
	}

	screenshot := o.captureScreenshot(ctx, logger)

	actions, err := o.planner.Plan(ctx, snapshot, screenshot, command)
	if err != nil {
		logger.Warn("Planning failed.", zap.Error(err))
		return nil, &RunError{Stage: StagePlan, Err: err}
	}

	summary := &schemas.Summary{RunID: runID, Command: command, Planned: actions}
	if len(actions) == 0 {
		summary.Results = []schemas.ActionResult{}
		summary.Message = NoActionsMessage
		logger.Info("Planner found nothing to do.")
		return summary, nil
	}

	summary.Results = o.executor.Execute(ctx, actions)
	for _, r := range summary.Results {
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Message = Summarize(summary)

	logger.Info("Command finished.",
		zap.Int("planned", len(actions)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

// captureScreenshot returns nil when capture is unavailable; planning goes ahead without an image.
func (o *Orchestrator) captureScreenshot(ctx context.Context, logger *zap.Logger) []byte {
	if o.shots == nil {
		return nil
	}
	shot, err := o.shots.Screenshot(ctx)
	if err != nil {
		if errors.Is(err, schemas.ErrScreenshotUnsupported) {
			logger.Debug("Page backend has no screenshots.")
		} else {
			logger.Warn("Screenshot failed; planning without it.", zap.Error(err))
		}
		return nil
	}
	return shot
}

// Summarize renders the counts and one line per failed action.
func Summarize(s *schemas.Summary) string {
	if len(s.Planned) == 0 {
		return NoActionsMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Executed %d action(s): %d succeeded, %d failed", len(s.Results), s.Succeeded, s.Failed)
	if skipped := len(s.Planned) - len(s.Results); skipped > 0 {
		fmt.Fprintf(&b, "; %d not attempted", skipped)
	}
	for _, r := range s.Results {
		if !r.Success {
			fmt.Fprintf(&b, "\n- %s: %s", describeAction(r.Action), r.Error)
		}
	}
	return b.String()
}

func describeAction(a schemas.Action) string {
	if a.Description != "" {
		return a.Description
	}
	if a.Selector != "" {
		return fmt.Sprintf("%s %s", a.Type, a.Selector)
	}
	return string(a.Type)
}
