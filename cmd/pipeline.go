package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser/dom"
	"github.com/xkilldash9x/pagepilot/internal/browser/session"
	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/executor"
	"github.com/xkilldash9x/pagepilot/internal/observer"
	"github.com/xkilldash9x/pagepilot/internal/orchestrator"
	"github.com/xkilldash9x/pagepilot/internal/planner/providers"
)

// newPlanner is swapped out in tests to avoid real AI backends.
var newPlanner = func(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.Planner, error) {
	gw, err := providers.NewPlanner(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return gw, nil
}

// pageFlags selects the page a command works on.
type pageFlags struct {
	url  string
	html string
}

func (f *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "open this URL in Chrome")
	cmd.Flags().StringVar(&f.html, "html", "", "load this HTML file into the in-memory page instead of a browser")
}

// target is an opened page plus whatever is needed to release it.
type target struct {
	page  schemas.Page
	label string
	close func()
}

// openTarget loads the page chosen by flags: a parsed HTML file or a live Chrome tab.
func openTarget(ctx context.Context, cfg *config.Config, flags pageFlags, logger *zap.Logger) (*target, error) {
	switch {
	case flags.url != "" && flags.html != "":
		return nil, fmt.Errorf("use either --url or --html, not both")

	case flags.html != "":
		abs, err := filepath.Abs(flags.html)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", flags.html, err)
		}
		f, err := os.Open(abs)
		if err != nil {
			return nil, fmt.Errorf("open html file: %w", err)
		}
		defer f.Close()

		page, err := dom.NewPage("file://"+filepath.ToSlash(abs), f, dom.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &target{page: page, label: abs, close: func() {}}, nil

	case flags.url != "":
		mgr, err := session.NewManager(ctx, logger, cfg.Browser)
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		shutdown := func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := mgr.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Error during browser manager shutdown", zap.Error(err))
			}
		}

		sess, err := mgr.NewSession(ctx)
		if err != nil {
			shutdown()
			return nil, fmt.Errorf("failed to open browser tab: %w", err)
		}
		if err := sess.Navigate(ctx, flags.url); err != nil {
			_ = sess.Close()
			shutdown()
			return nil, err
		}
		return &target{page: sess, label: flags.url, close: func() {
			if err := sess.Close(); err != nil {
				logger.Debug("Closing browser tab failed.", zap.Error(err))
			}
			shutdown()
		}}, nil

	default:
		return nil, fmt.Errorf("no page given: pass --url or --html")
	}
}

// buildOrchestrator wires observer, planner and executor around one page.
func buildOrchestrator(ctx context.Context, cfg *config.Config, page schemas.Page, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	pl, err := newPlanner(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize planner: %w", err)
	}

	obs := observer.New(page, logger, cfg.Observer.MaxElements)
	exec := executor.New(page, logger,
		executor.WithWaitDuration(cfg.Executor.WaitDuration),
		executor.WithActionDelay(cfg.Executor.ActionDelay),
	)
	return orchestrator.New(logger, obs, pl, exec, page)
}
