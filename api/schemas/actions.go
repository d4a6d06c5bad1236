package schemas

import "time"

// ActionType enumerates the primitive page operations a plan may contain.
type ActionType string

const (
	ActionClick ActionType = "click" // Activates an element.
	ActionFill  ActionType = "fill"  // Sets the value of a text input or textarea.
	ActionWait  ActionType = "wait"  // Pauses for the executor's fixed wait interval.
)

// IsKnown reports whether t is one of the supported action types.
func (t ActionType) IsKnown() bool {
	switch t {
	case ActionClick, ActionFill, ActionWait:
		return true
	}
	return false
}

// NeedsSelector reports whether actions of this type must carry a selector.
func (t ActionType) NeedsSelector() bool {
	return t == ActionClick || t == ActionFill
}

// Action is one planned instruction. It carries the selector directly and never
// refers to an element by its index in the snapshot.
type Action struct {
	Type        ActionType `json:"type"`
	Selector    string     `json:"selector,omitempty"`
	Value       *string    `json:"value,omitempty"`
	Description string     `json:"description,omitempty"`
}

// FillValue returns the text to fill, or the empty string when no value was planned.
func (a Action) FillValue() string {
	if a.Value == nil {
		return ""
	}
	return *a.Value
}

// ActionResult is the outcome of one attempted action.
type ActionResult struct {
	Action  Action `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one entry in the front-end transcript. The pipeline itself never reads these.
type ChatMessage struct {
	Role      Role      `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// StringPtr returns a pointer to s; handy for building fill actions.
func StringPtr(s string) *string { return &s }

// Summary is what one command produced, ready for display.
type Summary struct {
	RunID     string         `json:"runId"`
	Command   string         `json:"command"`
	Planned   []Action       `json:"planned"`
	Results   []ActionResult `json:"results"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Message   string         `json:"message"`
}
