package schemas

import (
	"errors"
	"time"
)

// -- Page Observation Schemas --

// RawElement is what a page backend reports for one element matched by a query.
// It carries the raw facts the observer and the selector synthesizer work from;
// nothing in it has been filtered or truncated yet.
type RawElement struct {
	Tag            string   `json:"tag"`
	ID             string   `json:"id,omitempty"`
	Classes        []string `json:"classes,omitempty"`
	Name           string   `json:"name,omitempty"`
	HasName        bool     `json:"hasName,omitempty"`
	Placeholder    string   `json:"placeholder,omitempty"`
	HasPlaceholder bool     `json:"hasPlaceholder,omitempty"`
	Type           string   `json:"type,omitempty"`
	Text           string   `json:"text,omitempty"`
	Value          string   `json:"value,omitempty"`
	Checked        bool     `json:"checked,omitempty"`
	Disabled       bool     `json:"disabled,omitempty"`

	// Computed style, as reported by the backend.
	Display    string `json:"display,omitempty"`
	Visibility string `json:"visibility,omitempty"`
	Opacity    string `json:"opacity,omitempty"`

	// SiblingIndex is the 1-based ordinal among same-tag siblings under the parent.
	SiblingIndex int `json:"siblingIndex"`
}

// ElementDescriptor is a snapshot of one interactive element at observation time.
type ElementDescriptor struct {
	Selector    string `json:"selector"`
	Tag         string `json:"tag"`
	ElementType string `json:"type,omitempty"`
	ID          string `json:"id,omitempty"`
	ClassName   string `json:"className,omitempty"`
	Text        string `json:"text,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
	Value       string `json:"value,omitempty"`
	Checked     bool   `json:"checked,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

// PageSnapshot is the bounded, serializable description of a page's interactive
// elements at one point in time. The screenshot is attached by the caller.
type PageSnapshot struct {
	URL        string              `json:"url"`
	Title      string              `json:"title"`
	Elements   []ElementDescriptor `json:"elements"`
	Screenshot []byte              `json:"-"`
	TakenAt    time.Time           `json:"takenAt"`
}

// -- Page Backend Errors --

var (
	// ErrElementNotFound is returned when a selector resolves to no element.
	ErrElementNotFound = errors.New("element not found")
	// ErrElementNotFillable is returned when a fill targets something other than a text input or textarea.
	ErrElementNotFillable = errors.New("element is not fillable")
	// ErrRestrictedPage is returned when the page cannot be scripted (browser-internal pages, web store).
	ErrRestrictedPage = errors.New("page is restricted")
	// ErrScreenshotUnsupported is returned by backends that cannot render pixels.
	ErrScreenshotUnsupported = errors.New("screenshot not supported by this page backend")
)
