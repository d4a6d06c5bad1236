package dom

import (
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// computedStyle is the subset of style the observer filters on.
type computedStyle struct {
	display    string
	visibility string
	opacity    string
}

// computeStyle approximates the computed display, visibility and opacity of n from
// inline style declarations and the hidden attribute on n and its ancestors.
//
// display:none on any ancestor hides the subtree. visibility inherits from the
// nearest element that declares it. Opacity multiplies down the tree.
func computeStyle(n *html.Node) computedStyle {
	st := computedStyle{display: defaultDisplay(n.Data), visibility: "visible", opacity: "1"}

	own := parseInlineStyle(htmlquery.SelectAttr(n, "style"))
	if d, ok := own["display"]; ok {
		st.display = d
	}

	visibilityResolved := false
	opacity := 1.0
	for a := n; a != nil; a = a.Parent {
		if a.Type != html.ElementNode {
			continue
		}
		decl := own
		if a != n {
			decl = parseInlineStyle(htmlquery.SelectAttr(a, "style"))
		}

		if htmlquery.ExistsAttr(a, "hidden") && decl["display"] == "" {
			st.display = "none"
		}
		if a != n && decl["display"] == "none" {
			st.display = "none"
		}
		if v, ok := decl["visibility"]; ok && !visibilityResolved {
			st.visibility = v
			visibilityResolved = true
		}
		if o, ok := decl["opacity"]; ok {
			if f, err := strconv.ParseFloat(strings.TrimSuffix(o, "%"), 64); err == nil {
				if strings.HasSuffix(o, "%") {
					f /= 100
				}
				opacity *= f
			}
		}
	}
	st.opacity = strconv.FormatFloat(opacity, 'f', -1, 64)
	return st
}

// parseInlineStyle splits a style attribute into lower-cased property/value pairs.
// !important markers are dropped; later declarations win.
func parseInlineStyle(style string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(val))
		val = strings.TrimSpace(strings.TrimSuffix(val, "!important"))
		if prop == "" || val == "" {
			continue
		}
		out[prop] = val
	}
	return out
}

func defaultDisplay(tag string) string {
	switch tag {
	case "a", "span", "button", "input", "select", "textarea", "label", "img":
		return "inline"
	case "head", "script", "style", "template", "title", "meta", "link":
		return "none"
	default:
		return "block"
	}
}
