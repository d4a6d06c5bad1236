package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/history"
)

type fakeRunner struct {
	summary  *schemas.Summary
	err      error
	commands []string
}

func (f *fakeRunner) Run(_ context.Context, command string) (*schemas.Summary, error) {
	f.commands = append(f.commands, command)
	return f.summary, f.err
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, string) (*schemas.Summary, error) { panic("boom") }

func newTestModel(t *testing.T, runner Runner, path string) Model {
	t.Helper()
	tr, err := history.New(path, 10)
	require.NoError(t, err)
	m := New(context.Background(), runner, tr, zaptest.NewLogger(t), "https://example.com")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func typeAndSubmit(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func TestSubmitRunsCommandAndRendersSummary(t *testing.T) {
	runner := &fakeRunner{summary: &schemas.Summary{Message: "Executed 1 action(s): 1 succeeded, 0 failed", Succeeded: 1}}
	m := newTestModel(t, runner, "")

	m, cmd := typeAndSubmit(t, m, "  click login ")
	require.NotNil(t, cmd)
	assert.True(t, m.inflight)
	assert.Empty(t, m.input.Value(), "input is cleared after submit")

	// Run the command synchronously the way the program would.
	msg := m.runCommand("click login")()
	done, ok := msg.(runDoneMsg)
	require.True(t, ok)

	next, _ := m.Update(done)
	m = next.(Model)
	assert.False(t, m.inflight)
	assert.Equal(t, []string{"click login"}, runner.commands)

	msgs := m.transcript.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, schemas.RoleUser, msgs[0].Role)
	assert.Equal(t, "click login", msgs[0].Content)
	assert.Equal(t, schemas.RoleAssistant, msgs[1].Role)
	assert.Equal(t, runner.summary.Message, msgs[1].Content)
	assert.Contains(t, m.View(), "Executed 1 action(s)")
}

func TestSubmitBlockedWhileInflight(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, "")

	m, cmd := typeAndSubmit(t, m, "first")
	require.NotNil(t, cmd)

	m, cmd = typeAndSubmit(t, m, "second")
	assert.Nil(t, cmd)
	assert.Equal(t, 1, m.transcript.Len(), "second submission is ignored")
	assert.Equal(t, "second", m.input.Value(), "the pending line is kept for later")
	assert.Contains(t, m.status, "still working")
}

func TestEmptySubmitIsIgnored(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, "")
	m, cmd := typeAndSubmit(t, m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.inflight)
	assert.Zero(t, m.transcript.Len())
}

func TestRunErrorShownAsSystemMessage(t *testing.T) {
	m := newTestModel(t, &fakeRunner{err: errors.New("Could not read the page: page is restricted")}, "")
	m, _ = typeAndSubmit(t, m, "do it")

	next, _ := m.Update(m.runCommand("do it")())
	m = next.(Model)

	msgs := m.transcript.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, schemas.RoleSystem, msgs[1].Role)
	assert.Equal(t, "Could not read the page: page is restricted", msgs[1].Content)
	assert.Equal(t, "command failed", m.status)
}

func TestRunnerPanicBecomesError(t *testing.T) {
	m := newTestModel(t, panicRunner{}, "")
	done, ok := m.runCommand("x")().(runDoneMsg)
	require.True(t, ok)
	assert.ErrorContains(t, done.err, "command panicked: boom")
}

func TestClearCommand(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, "")
	m.transcript.Add(schemas.RoleUser, "old")

	m, cmd := typeAndSubmit(t, m, "/clear")
	assert.Nil(t, cmd)
	assert.Zero(t, m.transcript.Len())
}

func TestQuitSavesTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.yaml")
	m := newTestModel(t, &fakeRunner{}, path)
	m.transcript.Add(schemas.RoleUser, "remember me")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	reloaded, err := history.Open(path, 10)
	require.NoError(t, err)
	msgs := reloaded.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "remember me", msgs[0].Content)
}

func TestViewShowsTitleAndSpinnerState(t *testing.T) {
	m := newTestModel(t, &fakeRunner{}, "")
	view := m.View()
	assert.Contains(t, view, "https://example.com")
	assert.Contains(t, view, "ready")

	m, _ = typeAndSubmit(t, m, "go")
	assert.True(t, strings.Contains(m.View(), "working"))
}
