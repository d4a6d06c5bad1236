// internal/browser/pagerules.go
package browser

import (
	"net/url"
	"strings"
)

// restrictedSchemes are documents a page script is not allowed to inspect or drive.
var restrictedSchemes = map[string]bool{
	"chrome":           true,
	"chrome-extension": true,
	"chrome-search":    true,
	"chrome-untrusted": true,
	"devtools":         true,
	"edge":             true,
	"view-source":      true,
	"about":            true,
}

// restrictedHosts are web pages browsers refuse to let extensions and automation script.
var restrictedHosts = []string{
	"chrome.google.com/webstore",
	"chromewebstore.google.com",
	"microsoftedge.microsoft.com/addons",
}

// IsRestrictedURL reports whether rawURL points at a page that cannot be observed or driven.
// about:blank is allowed; it is where a fresh tab starts.
func IsRestrictedURL(rawURL string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(rawURL))
	if trimmed == "" || trimmed == "about:blank" {
		return false
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	if restrictedSchemes[u.Scheme] {
		return true
	}

	hostPath := u.Host + u.Path
	for _, prefix := range restrictedHosts {
		if strings.HasPrefix(hostPath, prefix) {
			return true
		}
	}
	return false
}

// FillableInputTypes lists the input types that accept free text. Inputs of any other
// type (checkbox, file, submit...) are rejected by fill, as are non-form elements.
var FillableInputTypes = []string{
	"", "text", "email", "password", "search", "tel", "url", "number",
	"date", "datetime-local", "month", "time", "week",
}

// IsFillable reports whether an element with the given tag and type attribute accepts fill.
func IsFillable(tag, inputType string) bool {
	switch strings.ToLower(tag) {
	case "textarea":
		return true
	case "input":
		t := strings.ToLower(strings.TrimSpace(inputType))
		for _, allowed := range FillableInputTypes {
			if t == allowed {
				return true
			}
		}
	}
	return false
}
