package schemas

import "context"

// -- Page Interface --

// Page is the single request/response channel between the pipeline and a live
// (or in-memory) document. Implementations must be safe to call sequentially
// from one goroutine; the pipeline never issues concurrent calls.
type Page interface {
	// URL returns the address of the current document.
	URL(ctx context.Context) (string, error)
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
	// QueryElements returns every element matching selector, in document order.
	QueryElements(ctx context.Context, selector string) ([]RawElement, error)
	// CountMatches returns how many elements selector currently resolves to.
	CountMatches(ctx context.Context, selector string) (int, error)
	// Click activates the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Fill sets the value of the first element matching selector and notifies page listeners.
	Fill(ctx context.Context, selector, value string) error
	// Screenshot renders the visible viewport as an encoded image.
	Screenshot(ctx context.Context) ([]byte, error)
}

// -- Planner Interface --

// Planner turns a page snapshot and a free-text command into an ordered action list.
// screenshot may be nil.
type Planner interface {
	Plan(ctx context.Context, snapshot *PageSnapshot, screenshot []byte, command string) ([]Action, error)
}

// Observer produces a snapshot of the current page.
type Observer interface {
	Observe(ctx context.Context) (*PageSnapshot, error)
}

// Executor applies an action batch to the page.
type Executor interface {
	Execute(ctx context.Context, actions []Action) []ActionResult
}
