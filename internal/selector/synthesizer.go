// Package selector derives CSS selectors that should re-identify an observed element.
//
// Synthesis is a priority list and the first applicable rule wins:
//
//  1. #id when the element has a non-empty id
//  2. [name="..."] when it has a name attribute
//  3. tag.class1.class2 when that resolves to exactly one element on the page
//  4. tag[placeholder="..."] when that resolves to exactly one element
//  5. tag:nth-of-type(n) among same-tag siblings under the parent
//
// Rules 1 and 2 trust the page to keep ids and names unique; nothing checks it.
package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// Matcher counts how many elements a selector resolves to right now.
// schemas.Page satisfies it.
type Matcher interface {
	CountMatches(ctx context.Context, selector string) (int, error)
}

// Synthesize returns the selector for el. It is deterministic for a given element and
// page state. Matcher errors (for example a class name that makes the selector
// invalid) are treated as "not unique" and synthesis moves on to the next rule.
func Synthesize(ctx context.Context, el schemas.RawElement, m Matcher) string {
	tag := strings.ToLower(el.Tag)

	if el.ID != "" {
		return "#" + el.ID
	}

	if el.HasName {
		return fmt.Sprintf(`[name="%s"]`, el.Name)
	}

	if classes := cleanClasses(el.Classes); len(classes) > 0 {
		candidate := tag + "." + strings.Join(classes, ".")
		if isUnique(ctx, m, candidate) {
			return candidate
		}
	}

	if el.HasPlaceholder {
		candidate := fmt.Sprintf(`%s[placeholder="%s"]`, tag, el.Placeholder)
		if isUnique(ctx, m, candidate) {
			return candidate
		}
	}

	return NthOfType(tag, el.SiblingIndex)
}

// NthOfType renders the positional fallback. Ordinals below 1 are clamped to 1.
func NthOfType(tag string, ordinal int) string {
	if ordinal < 1 {
		ordinal = 1
	}
	return fmt.Sprintf("%s:nth-of-type(%d)", strings.ToLower(tag), ordinal)
}

func isUnique(ctx context.Context, m Matcher, candidate string) bool {
	if m == nil {
		return false
	}
	n, err := m.CountMatches(ctx, candidate)
	return err == nil && n == 1
}

// cleanClasses splits any whitespace-joined entries and drops empties, keeping order.
func cleanClasses(classes []string) []string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		out = append(out, strings.Fields(c)...)
	}
	return out
}
