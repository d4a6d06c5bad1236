// browser/dom/page.go
package dom

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/browser"
)

// -- Structs and Types --

// Event is one notification the page emitted in response to an action.
type Event struct {
	Type     string // "click", "input" or "change"
	Selector string
	Value    string
}

// ClickHook runs after a click on an element matching its selector has been applied.
// It may mutate the document freely through the page's exported helpers.
type ClickHook func(p *Page)

type clickHook struct {
	selector cascadia.Selector
	raw      string
	fn       ClickHook
}

// Page is a schemas.Page over a parsed HTML document. It has no layout engine and
// no script runtime; computed style is approximated from inline declarations.
type Page struct {
	mu     sync.Mutex
	url    string
	doc    *html.Node
	hooks  []clickHook
	events []Event
	logger *zap.Logger
}

// Option configures a Page.
type Option func(*Page)

// WithLogger attaches a logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Page) {
		p.logger = logger.Named("dom_page")
	}
}

var _ schemas.Page = (*Page)(nil)

// -- Constructor --

// NewPage parses r as an HTML document served from url.
func NewPage(url string, r io.Reader, opts ...Option) (*Page, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html document: %w", err)
	}
	p := &Page{
		url:    url,
		doc:    doc,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewPageFromString is a convenience wrapper around NewPage.
func NewPageFromString(url, document string, opts ...Option) (*Page, error) {
	return NewPage(url, strings.NewReader(document), opts...)
}

// -- schemas.Page --

// URL returns the document address, or ErrRestrictedPage for pages automation may not touch.
func (p *Page) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if browser.IsRestrictedURL(p.url) {
		return "", fmt.Errorf("%w: %s", schemas.ErrRestrictedPage, p.url)
	}
	return p.url, nil
}

// Title returns the trimmed text of the first <title> element.
func (p *Page) Title(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if node := htmlquery.FindOne(p.doc, "//title"); node != nil {
		return strings.TrimSpace(htmlquery.InnerText(node)), nil
	}
	return "", nil
}

// QueryElements returns a RawElement for every match of selector in document order.
func (p *Page) QueryElements(ctx context.Context, selector string) ([]schemas.RawElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if browser.IsRestrictedURL(p.url) {
		return nil, fmt.Errorf("%w: %s", schemas.ErrRestrictedPage, p.url)
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	nodes := sel.MatchAll(p.doc)
	out := make([]schemas.RawElement, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, describeNode(n))
	}
	return out, nil
}

// CountMatches returns how many elements selector resolves to.
func (p *Page) CountMatches(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	sel, err := cascadia.Compile(selector)
	if err != nil {
		return 0, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return len(sel.MatchAll(p.doc)), nil
}

// Click activates the first element matching selector. Checkboxes toggle, radios
// select themselves within their group. Matching click hooks run afterwards.
func (p *Page) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	node, err := p.resolve(selector)
	if err != nil {
		p.mu.Unlock()
		return err
	}

	// A disabled form control swallows the click: no state change, no handlers.
	if isFormControl(node.Data) && htmlquery.ExistsAttr(node, "disabled") {
		p.mu.Unlock()
		p.logger.Debug("Click on disabled control ignored.", zap.String("selector", selector))
		return nil
	}

	if node.Data == "input" {
		switch strings.ToLower(htmlquery.SelectAttr(node, "type")) {
		case "checkbox":
			setBoolAttr(node, "checked", !htmlquery.ExistsAttr(node, "checked"))
		case "radio":
			p.selectRadio(node)
		}
	}
	p.events = append(p.events, Event{Type: "click", Selector: selector})

	// Hooks may call back into the page, so they run unlocked.
	var pending []ClickHook
	for _, h := range p.hooks {
		if h.selector.Match(node) {
			pending = append(pending, h.fn)
		}
	}
	p.mu.Unlock()

	p.logger.Debug("Clicked element.", zap.String("selector", selector), zap.Int("hooks", len(pending)))
	for _, fn := range pending {
		fn(p)
	}
	return nil
}

// Fill sets the value of the first text input or textarea matching selector and
// records the input and change notifications a browser would dispatch.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	node, err := p.resolve(selector)
	if err != nil {
		return err
	}
	if !browser.IsFillable(node.Data, htmlquery.SelectAttr(node, "type")) {
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFillable, selector)
	}

	if node.Data == "textarea" {
		for c := node.FirstChild; c != nil; {
			next := c.NextSibling
			node.RemoveChild(c)
			c = next
		}
		node.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	} else {
		setAttr(node, "value", value)
	}

	p.events = append(p.events,
		Event{Type: "input", Selector: selector, Value: value},
		Event{Type: "change", Selector: selector, Value: value},
	)
	p.logger.Debug("Filled element.", zap.String("selector", selector), zap.Int("length", len(value)))
	return nil
}

// Screenshot is not available without a renderer.
func (p *Page) Screenshot(_ context.Context) ([]byte, error) {
	return nil, schemas.ErrScreenshotUnsupported
}

// -- Test and Offline Helpers --

// OnClick registers fn to run after any click on an element matching selector.
func (p *Page) OnClick(selector string, fn ClickHook) error {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, clickHook{selector: sel, raw: selector, fn: fn})
	return nil
}

// Remove detaches every element matching selector and returns how many were removed.
func (p *Page) Remove(selector string) (int, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return 0, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	nodes := sel.MatchAll(p.doc)
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return len(nodes), nil
}

// SetURL simulates a navigation without changing the document.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// IsChecked reports the checked state of the first element matching selector.
func (p *Page) IsChecked(selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, err := p.resolve(selector)
	if err != nil {
		return false, err
	}
	return htmlquery.ExistsAttr(node, "checked"), nil
}

// ValueOf returns the current value of the first element matching selector.
func (p *Page) ValueOf(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	node, err := p.resolve(selector)
	if err != nil {
		return "", err
	}
	return valueOf(node), nil
}

// Events returns a copy of the notifications recorded so far.
func (p *Page) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// HTML renders the current document.
func (p *Page) HTML() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return htmlquery.OutputHTML(p.doc, true)
}

// -- Internal Helpers --

// resolve returns the first match in document order. Callers must hold p.mu.
func (p *Page) resolve(selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	node := sel.MatchFirst(p.doc)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	return node, nil
}

// selectRadio checks node and unchecks the other radios sharing its name within the same form.
func (p *Page) selectRadio(node *html.Node) {
	name := htmlquery.SelectAttr(node, "name")
	if name != "" {
		scope := p.doc
		for a := node.Parent; a != nil; a = a.Parent {
			if a.Type == html.ElementNode && a.Data == "form" {
				scope = a
				break
			}
		}
		group := cascadia.MustCompile(fmt.Sprintf(`input[type="radio"][name=%q]`, name))
		for _, other := range group.MatchAll(scope) {
			setBoolAttr(other, "checked", false)
		}
	}
	setBoolAttr(node, "checked", true)
}

func describeNode(n *html.Node) schemas.RawElement {
	el := schemas.RawElement{
		Tag:          strings.ToLower(n.Data),
		ID:           htmlquery.SelectAttr(n, "id"),
		Classes:      strings.Fields(htmlquery.SelectAttr(n, "class")),
		Type:         strings.ToLower(htmlquery.SelectAttr(n, "type")),
		Text:         strings.TrimSpace(htmlquery.InnerText(n)),
		Value:        valueOf(n),
		Checked:      htmlquery.ExistsAttr(n, "checked"),
		Disabled:     htmlquery.ExistsAttr(n, "disabled"),
		SiblingIndex: siblingIndex(n),
	}
	if htmlquery.ExistsAttr(n, "name") {
		el.Name, el.HasName = htmlquery.SelectAttr(n, "name"), true
	}
	if htmlquery.ExistsAttr(n, "placeholder") {
		el.Placeholder, el.HasPlaceholder = htmlquery.SelectAttr(n, "placeholder"), true
	}

	st := computeStyle(n)
	el.Display, el.Visibility, el.Opacity = st.display, st.visibility, st.opacity
	return el
}

// isFormControl reports whether tag honours the disabled attribute.
func isFormControl(tag string) bool {
	switch tag {
	case "input", "button", "select", "textarea":
		return true
	}
	return false
}

func valueOf(n *html.Node) string {
	switch n.Data {
	case "textarea":
		return htmlquery.InnerText(n)
	case "select":
		// A select without an explicitly selected option shows its first option.
		options := htmlquery.Find(n, ".//option")
		if len(options) == 0 {
			return ""
		}
		current := options[0]
		for _, opt := range options {
			if htmlquery.ExistsAttr(opt, "selected") {
				current = opt
				break
			}
		}
		if htmlquery.ExistsAttr(current, "value") {
			return htmlquery.SelectAttr(current, "value")
		}
		return strings.TrimSpace(htmlquery.InnerText(current))
	default:
		return htmlquery.SelectAttr(n, "value")
	}
}

// siblingIndex is the 1-based position of n among element siblings with the same tag.
func siblingIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			idx++
		}
	}
	return idx
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func setBoolAttr(n *html.Node, key string, on bool) {
	if on {
		setAttr(n, key, "")
		return
	}
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}
