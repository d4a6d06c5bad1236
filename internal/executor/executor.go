// Package executor applies a planned action batch to a page, in order, stopping at
// the first failure.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

const (
	DefaultWaitDuration = time.Second
	DefaultActionDelay  = 500 * time.Millisecond
)

// SleepFunc pauses for d and returns ctx.Err() when woken early by cancellation.
// It is swappable so tests do not have to wait in real time.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor implements schemas.Executor.
type Executor struct {
	page         schemas.Page
	logger       *zap.Logger
	waitDuration time.Duration
	actionDelay  time.Duration
	sleep        SleepFunc
}

var _ schemas.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithWaitDuration sets how long a wait action pauses.
func WithWaitDuration(d time.Duration) Option {
	return func(e *Executor) { e.waitDuration = d }
}

// WithActionDelay sets the pause between consecutive successful actions.
func WithActionDelay(d time.Duration) Option {
	return func(e *Executor) { e.actionDelay = d }
}

// WithSleep replaces the pause implementation.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) { e.sleep = fn }
}

// New creates an Executor for page.
func New(page schemas.Page, logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		page:         page,
		logger:       logger.Named("executor"),
		waitDuration: DefaultWaitDuration,
		actionDelay:  DefaultActionDelay,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs actions in list order. The result list ends at the first failure;
// actions after it are never attempted and produce no result.
func (e *Executor) Execute(ctx context.Context, actions []schemas.Action) []schemas.ActionResult {
	results := make([]schemas.ActionResult, 0, len(actions))

	for i, action := range actions {
		result := e.apply(ctx, action)
		results = append(results, result)

		if !result.Success {
			e.logger.Info("Action failed; stopping batch.",
				zap.Int("index", i),
				zap.String("type", string(action.Type)),
				zap.String("selector", action.Selector),
				zap.String("error", result.Error),
				zap.Int("skipped", len(actions)-i-1),
			)
			break
		}

		e.logger.Debug("Action succeeded.", zap.Int("index", i), zap.String("type", string(action.Type)), zap.String("selector", action.Selector))
		if i < len(actions)-1 {
			// A cancelled delay surfaces as the next action's failure.
			_ = e.sleep(ctx, e.actionDelay)
		}
	}
	return results
}

// apply runs one action and converts every outcome, including a panic, into a result.
func (e *Executor) apply(ctx context.Context, action schemas.Action) (result schemas.ActionResult) {
	result.Action = action

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Recovered from panic while applying action.", zap.Any("panic", r), zap.String("type", string(action.Type)))
			result.Success = false
			result.Error = fmt.Sprint(r)
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result
	}

	var err error
	switch action.Type {
	case schemas.ActionWait:
		err = e.sleep(ctx, e.waitDuration)
	case schemas.ActionClick:
		err = e.page.Click(ctx, action.Selector)
	case schemas.ActionFill:
		err = e.page.Fill(ctx, action.Selector, action.FillValue())
	default:
		result.Error = fmt.Sprintf("Unknown action type: %s", action.Type)
		return result
	}

	if err != nil {
		result.Error = describeError(err, action.Selector)
		return result
	}
	result.Success = true
	return result
}

// describeError turns a page fault into the message reported for the action.
func describeError(err error, selector string) string {
	switch {
	case errors.Is(err, schemas.ErrElementNotFound):
		return "Element not found: " + selector
	case errors.Is(err, schemas.ErrElementNotFillable):
		return "Element is not fillable: " + selector
	default:
		return err.Error()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
