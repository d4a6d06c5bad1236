// internal/browser/session/manager.go
package session

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
)

const livenessTimeout = 30 * time.Second

// Manager owns the browser process (or the connection to a remote one) and hands out tabs.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// allocatorCtx manages the entire browser process. All session contexts are derived from this.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// wg tracks open sessions for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager launches Chrome, or attaches to cfg.RemoteURL when set, and checks that it responds.
func NewManager(ctx context.Context, logger *zap.Logger, cfg config.BrowserConfig) (*Manager, error) {
	m := &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}

	if cfg.RemoteURL != "" {
		m.logger.Info("Attaching to remote browser.", zap.String("url", cfg.RemoteURL))
		m.allocatorCtx, m.allocatorCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		m.logger.Info("Initializing browser allocator...", zap.Bool("headless", cfg.Headless))
		m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, m.buildAllocatorOptions()...)
	}

	if err := m.probe(); err != nil {
		m.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser is responsive.")
	return m, nil
}

// probe opens a throwaway tab on about:blank.
func (m *Manager) probe() error {
	testCtx, cancelTest := context.WithTimeout(m.allocatorCtx, livenessTimeout)
	defer cancelTest()
	testCtx, cancelTab := chromedp.NewContext(testCtx)
	defer cancelTab()

	return chromedp.Run(testCtx, chromedp.Navigate("about:blank"))
}

// buildAllocatorOptions starts from chromedp's defaults and layers the configured flags on top.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),
	)

	if w, h := m.cfg.Viewport["width"], m.cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	// Custom arguments from the config file, with or without a leading "--".
	for _, arg := range m.cfg.Args {
		name, value, hasValue := strings.Cut(arg, "=")
		name = strings.TrimPrefix(name, "--")
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Containers (Docker on Linux) need the sandbox off.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	return opts
}

// NewSession opens a new tab.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(m.allocatorCtx)

	// The first Run on a fresh context creates the target.
	initCtx, cancelInit := CombineContext(tabCtx, ctx)
	defer cancelInit()
	if err := chromedp.Run(initCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	m.wg.Add(1)
	s := &Session{
		ctx:     tabCtx,
		cancel:  tabCancel,
		cfg:     m.cfg,
		logger:  m.logger.Named("session"),
		onClose: m.wg.Done,
	}
	return s, nil
}

// Shutdown waits for open sessions to close, up to ctx's deadline, then stops the browser.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated.")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timed out waiting for sessions to close; forcing browser shutdown.")
		err = ctx.Err()
	}

	m.allocatorCancel()
	return err
}
