// Package observer scans a page for interactive, visible elements and produces a
// bounded snapshot for the planner.
package observer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/selector"
)

// InteractiveSelector matches every element kind the planner may act on.
const InteractiveSelector = `input:not([type="hidden"]), textarea, button, select, a[href], [role="button"], [onclick], [contenteditable="true"]`

const (
	// MaxElements is the hard cap on snapshot size.
	MaxElements = 100
	// MaxTextLength bounds element text, counted in runes.
	MaxTextLength = 100
)

// ObservationError reports that the page could not be scanned. Nothing partial is returned with it.
type ObservationError struct {
	URL string
	Err error
}

func (e *ObservationError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("cannot observe page %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("cannot observe page: %v", e.Err)
}

func (e *ObservationError) Unwrap() error { return e.Err }

// Observer implements schemas.Observer over a schemas.Page.
type Observer struct {
	page        schemas.Page
	logger      *zap.Logger
	maxElements int
	now         func() time.Time
}

var _ schemas.Observer = (*Observer)(nil)

// New creates an Observer. maxElements outside 1..MaxElements falls back to MaxElements.
func New(page schemas.Page, logger *zap.Logger, maxElements int) *Observer {
	if maxElements <= 0 || maxElements > MaxElements {
		maxElements = MaxElements
	}
	return &Observer{
		page:        page,
		logger:      logger.Named("observer"),
		maxElements: maxElements,
		now:         time.Now,
	}
}

// Observe scans the page. The returned snapshot carries no screenshot; the caller attaches it.
func (o *Observer) Observe(ctx context.Context) (*schemas.PageSnapshot, error) {
	url, err := o.page.URL(ctx)
	if err != nil {
		return nil, &ObservationError{Err: err}
	}
	title, err := o.page.Title(ctx)
	if err != nil {
		return nil, &ObservationError{URL: url, Err: err}
	}

	raw, err := o.page.QueryElements(ctx, InteractiveSelector)
	if err != nil {
		return nil, &ObservationError{URL: url, Err: err}
	}

	elements := make([]schemas.ElementDescriptor, 0, min(len(raw), o.maxElements))
	hidden := 0
	for _, el := range raw {
		if len(elements) == o.maxElements {
			break
		}
		if !IsVisible(el) {
			hidden++
			continue
		}
		elements = append(elements, o.describe(ctx, el))
	}

	o.logger.Debug("Page observed.",
		zap.String("url", url),
		zap.Int("matched", len(raw)),
		zap.Int("hidden", hidden),
		zap.Int("kept", len(elements)),
	)

	return &schemas.PageSnapshot{
		URL:      url,
		Title:    title,
		Elements: elements,
		TakenAt:  o.now(),
	}, nil
}

func (o *Observer) describe(ctx context.Context, el schemas.RawElement) schemas.ElementDescriptor {
	tag := strings.ToLower(el.Tag)
	d := schemas.ElementDescriptor{
		Selector:    selector.Synthesize(ctx, el, o.page),
		Tag:         tag,
		ElementType: el.Type,
		ID:          el.ID,
		ClassName:   strings.Join(strings.Fields(strings.Join(el.Classes, " ")), " "),
		Text:        Truncate(strings.TrimSpace(el.Text), MaxTextLength),
		Placeholder: el.Placeholder,
		Name:        el.Name,
	}

	switch tag {
	case "input", "textarea", "select":
		d.Value = el.Value
		d.Disabled = el.Disabled
		if tag == "input" && (el.Type == "checkbox" || el.Type == "radio") {
			d.Checked = el.Checked
		}
	}
	return d
}

// IsVisible reports whether the computed style leaves el rendered.
func IsVisible(el schemas.RawElement) bool {
	if strings.EqualFold(strings.TrimSpace(el.Display), "none") {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(el.Visibility), "hidden") {
		return false
	}
	if op := strings.TrimSpace(el.Opacity); op != "" {
		if f, err := strconv.ParseFloat(op, 64); err == nil && f == 0 {
			return false
		}
	}
	return true
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
