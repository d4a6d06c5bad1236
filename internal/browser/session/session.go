// internal/browser/session/session.go
package session

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -- Embedded JavaScript Assets --

//go:embed scripts/query.js
var queryScript string

//go:embed scripts/click.js
var clickScript string

//go:embed scripts/fill.js
var fillScript string

const countScript = `(function (selector) {
    try { return document.querySelectorAll(selector).length; } catch (e) { return -1; }
})`

// Session is one browser tab. It implements schemas.Page.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger

	onClose   func()
	closeOnce sync.Once
}

var _ schemas.Page = (*Session)(nil)

type queryResult struct {
	Error    string               `json:"error"`
	Elements []schemas.RawElement `json:"elements"`
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.run(ctx, s.cfg.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// URL returns the tab's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read page location: %w", err)
	}
	if browser.IsRestrictedURL(loc) {
		return "", fmt.Errorf("%w: %s", schemas.ErrRestrictedPage, loc)
	}
	return loc, nil
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// QueryElements runs the observation script for selector.
func (s *Session) QueryElements(ctx context.Context, selector string) ([]schemas.RawElement, error) {
	if _, err := s.URL(ctx); err != nil {
		return nil, err
	}

	var res queryResult
	if err := s.evaluate(ctx, invoke(queryScript, selector), &res); err != nil {
		return nil, fmt.Errorf("element query failed: %w", err)
	}
	if res.Error != "" {
		return nil, errors.New(res.Error)
	}
	return res.Elements, nil
}

// CountMatches returns how many elements selector resolves to in the live document.
func (s *Session) CountMatches(ctx context.Context, selector string) (int, error) {
	var n int
	if err := s.evaluate(ctx, invoke(countScript, selector), &n); err != nil {
		return 0, fmt.Errorf("selector count failed: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid selector %q", selector)
	}
	return n, nil
}

// Click activates the first element matching selector via el.click().
func (s *Session) Click(ctx context.Context, selector string) error {
	var status string
	if err := s.evaluate(ctx, invoke(clickScript, selector), &status); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return statusError(status, selector)
}

// Fill sets the value of the first element matching selector and dispatches input and change.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	var status string
	if err := s.evaluate(ctx, invoke(fillScript, selector, value, browser.FillableInputTypes), &status); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	return statusError(status, selector)
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// Close closes the tab. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// -- Internal Helpers --

// run executes actions under the tab context, the caller's context and timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		opCtx, cancelTimeout = context.WithTimeout(opCtx, timeout)
		defer cancelTimeout()
	}

	err := chromedp.Run(opCtx, actions...)
	if err != nil && opCtx.Err() != nil && ctx.Err() == nil && s.ctx.Err() == nil {
		return fmt.Errorf("browser operation timed out after %s: %w", timeout, opCtx.Err())
	}
	return err
}

func (s *Session) evaluate(ctx context.Context, expr string, out interface{}) error {
	var raw []byte
	err := s.run(ctx, s.cfg.ActionTimeout,
		chromedp.Evaluate(expr, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unexpected script result %q: %w", truncate(string(raw), 200), err)
	}
	return nil
}

// invoke renders script(args...) with every argument JSON-encoded.
func invoke(script string, args ...interface{}) string {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			b = []byte("null")
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("(%s\n)(%s)", strings.TrimSpace(script), strings.Join(encoded, ", "))
}

func statusError(status, selector string) error {
	switch status {
	case "ok":
		return nil
	case "not_found":
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	case "not_fillable":
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFillable, selector)
	default:
		return errors.New(status)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
