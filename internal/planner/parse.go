package planner

import (
	"fmt"
	"regexp"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// arrayRegex spans from the first '[' to the last ']' in the reply.
var arrayRegex = regexp.MustCompile(`(?s)\[.*\]`)

// ParseActions recovers the action list from a free-form model reply. It never
// repairs what the model sent: anything that does not decode into the action
// shape is a *PlanningError.
func ParseActions(reply string) ([]schemas.Action, error) {
	span := arrayRegex.FindString(reply)
	if span == "" {
		return nil, &PlanningError{Reason: "no JSON array found", Reply: reply}
	}

	var actions []schemas.Action
	if err := json.UnmarshalFromString(span, &actions); err != nil {
		return nil, &PlanningError{Reason: "malformed action list", Reply: reply, Err: err}
	}

	for i, a := range actions {
		if err := validateAction(a); err != nil {
			return nil, &PlanningError{Reason: fmt.Sprintf("action %d", i), Reply: reply, Err: err}
		}
	}
	if actions == nil {
		actions = []schemas.Action{}
	}
	return actions, nil
}

// validateAction checks required fields. Unknown types are left for the executor to report.
func validateAction(a schemas.Action) error {
	if a.Type == "" {
		return fmt.Errorf("missing type")
	}
	if a.Type.NeedsSelector() && a.Selector == "" {
		return fmt.Errorf("%s action without a selector", a.Type)
	}
	if a.Type == schemas.ActionFill && a.Value == nil {
		return fmt.Errorf("fill action on %s without a value", a.Selector)
	}
	return nil
}
