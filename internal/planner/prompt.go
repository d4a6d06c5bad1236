package planner

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// SystemPolicy is sent as the system instruction with every planning request.
const SystemPolicy = `You are a browser automation assistant. You receive the interactive elements of a web page and a user command, and you reply with the actions that carry out the command.

Allowed actions:
- click: activate an element. Requires "selector".
- fill: type text into an input or textarea. Requires "selector" and "value".
- wait: pause briefly, for example after a click that loads content.

Rules:
- Use only selectors that appear in the element list. Copy them exactly.
- Reply with a JSON array and nothing else, in this shape:
  [{"type": "click", "selector": "#submit", "description": "Submit the form"},
   {"type": "fill", "selector": "#email", "value": "user@example.com", "description": "Enter the email"}]
- If the command cannot be carried out on this page, reply with [].`

// RenderElements lists elements one per line: index, tag, then every present field, pipe separated.
func RenderElements(elements []schemas.ElementDescriptor) string {
	var b strings.Builder
	for i, el := range elements {
		fields := []string{fmt.Sprintf("[%d] %s", i, el.Tag)}
		add := func(label, v string) {
			if v != "" {
				fields = append(fields, label+": "+v)
			}
		}
		add("type", el.ElementType)
		add("id", el.ID)
		add("class", el.ClassName)
		add("name", el.Name)
		add("placeholder", el.Placeholder)
		if el.Text != "" {
			fields = append(fields, fmt.Sprintf("text: %q", el.Text))
		}
		if el.Value != "" {
			fields = append(fields, fmt.Sprintf("value: %q", el.Value))
		}
		if el.Checked {
			fields = append(fields, "checked")
		}
		if el.Disabled {
			fields = append(fields, "disabled")
		}
		add("selector", el.Selector)

		b.WriteString(strings.Join(fields, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderPrompt builds the user message for one planning request.
func RenderPrompt(snapshot *schemas.PageSnapshot, command string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page URL: %s\n", snapshot.URL)
	fmt.Fprintf(&b, "Page title: %s\n\n", snapshot.Title)
	b.WriteString("Interactive elements:\n")
	if len(snapshot.Elements) == 0 {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(RenderElements(snapshot.Elements))
	}
	fmt.Fprintf(&b, "\nUser command: %s\n", command)
	return b.String()
}
