package planner

import "fmt"

// PlanningError reports a model reply that could not be turned into an action list.
type PlanningError struct {
	Reason string
	Reply  string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not parse the planner reply: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("could not parse the planner reply: %s", e.Reason)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// TransportError is a network, authentication or rate-limit fault from a backend.
// Message is the provider's own text, passed through as is.
type TransportError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }
