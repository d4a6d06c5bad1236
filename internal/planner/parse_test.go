package planner

import (
	"errors"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

func TestParseActions(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []schemas.Action
	}{
		{
			name:  "bare array",
			reply: `[{"type":"click","selector":"#go"}]`,
			want:  []schemas.Action{{Type: schemas.ActionClick, Selector: "#go"}},
		},
		{
			name: "prose around the array",
			reply: "Sure! Here is the plan:\n```json\n" +
				`[{"type":"fill","selector":"#email","value":"a@b.c","description":"Enter email"},{"type":"wait"}]` +
				"\n```\nLet me know if you need anything else.",
			want: []schemas.Action{
				{Type: schemas.ActionFill, Selector: "#email", Value: schemas.StringPtr("a@b.c"), Description: "Enter email"},
				{Type: schemas.ActionWait},
			},
		},
		{
			name:  "empty plan",
			reply: "Nothing to do here: []",
			want:  []schemas.Action{},
		},
		{
			name:  "fill with an empty value is kept",
			reply: `[{"type":"fill","selector":"#q","value":""}]`,
			want:  []schemas.Action{{Type: schemas.ActionFill, Selector: "#q", Value: schemas.StringPtr("")}},
		},
		{
			name:  "unknown types pass through",
			reply: `[{"type":"scroll","selector":"body"}]`,
			want:  []schemas.Action{{Type: "scroll", Selector: "body"}},
		},
		{
			name:  "extra fields are ignored",
			reply: `[{"type":"wait","duration":5000}]`,
			want:  []schemas.Action{{Type: schemas.ActionWait}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseActions(tc.reply)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseActions_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		reason string
	}{
		{"no array", "I cannot help with that.", "no JSON array found"},
		{"object instead of array", `{"type":"click","selector":"#a"}`, "no JSON array found"},
		{"truncated json", `[{"type":"click","selector":"#a"]`, "malformed action list"},
		{"two arrays with prose between", `[{"type":"wait"}] and also [{"type":"wait"}]`, "malformed action list"},
		{"wrong field type", `[{"type":"fill","selector":"#a","value":42}]`, "malformed action list"},
		{"missing type", `[{"selector":"#a"}]`, "action 0"},
		{"click without selector", `[{"type":"wait"},{"type":"click"}]`, "action 1"},
		{"fill without value", `[{"type":"fill","selector":"#a"}]`, "action 0"},
		{"null entry", `[null]`, "action 0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseActions(tc.reply)
			assert.Nil(t, got)

			var pe *PlanningError
			require.True(t, errors.As(err, &pe), "expected *PlanningError, got %T", err)
			assert.Equal(t, tc.reason, pe.Reason)
			assert.Equal(t, tc.reply, pe.Reply)
		})
	}
}

// FuzzParseActions checks that arbitrary replies either parse into valid actions or fail with a PlanningError.
func FuzzParseActions(f *testing.F) {
	f.Add([]byte(`[{"type":"click","selector":"#a"}]`))
	f.Add([]byte("prose [ ] more prose"))

	f.Fuzz(func(t *testing.T, data []byte) {
		consumer := fuzz.NewConsumer(data)
		prefix, err := consumer.GetString()
		if err != nil {
			return
		}
		body, err := consumer.GetString()
		if err != nil {
			return
		}
		reply := prefix + "[" + body + "]"

		actions, err := ParseActions(reply)
		if err != nil {
			var pe *PlanningError
			require.ErrorAs(t, err, &pe)
			return
		}
		for _, a := range actions {
			require.NotEmpty(t, a.Type)
			if a.Type.NeedsSelector() {
				require.NotEmpty(t, a.Selector)
			}
			if a.Type == schemas.ActionFill {
				require.NotNil(t, a.Value)
			}
		}
	})
}
