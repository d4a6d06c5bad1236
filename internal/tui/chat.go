// Package tui is the interactive chat front-end. Each submitted line is handed to
// a Runner and the resulting summary is appended to a bounded transcript.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/history"
)

// Runner executes one command against the page. The orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, command string) (*schemas.Summary, error)
}

const (
	clearCommand = "/clear"
	inputHeight  = 3
	headerHeight = 2
	footerHeight = 1
)

type theme struct {
	root     lipgloss.Style
	header   lipgloss.Style
	footer   lipgloss.Style
	status   lipgloss.Style
	errorMsg lipgloss.Style
	input    lipgloss.Style
	roles    map[schemas.Role]lipgloss.Style
}

func newTheme() theme {
	mint := lipgloss.Color("#05ffa1")
	blue := lipgloss.Color("#7aa2f7")
	pink := lipgloss.Color("#ff71ce")
	muted := lipgloss.Color("#6c7086")

	return theme{
		root:     lipgloss.NewStyle().Padding(0, 1),
		header:   lipgloss.NewStyle().Bold(true).Foreground(blue).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(muted),
		footer:   lipgloss.NewStyle().Foreground(muted),
		status:   lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorMsg: lipgloss.NewStyle().Foreground(pink),
		input:    lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
		roles: map[schemas.Role]lipgloss.Style{
			schemas.RoleUser:      lipgloss.NewStyle().Foreground(mint).Bold(true),
			schemas.RoleAssistant: lipgloss.NewStyle().Foreground(blue).Bold(true),
			schemas.RoleSystem:    lipgloss.NewStyle().Foreground(pink).Bold(true),
		},
	}
}

// runDoneMsg carries the outcome of one command back into the update loop.
type runDoneMsg struct {
	summary *schemas.Summary
	err     error
}

// Model is the bubbletea model for the chat screen.
type Model struct {
	ctx        context.Context
	runner     Runner
	transcript *history.Transcript
	logger     *zap.Logger
	title      string

	inflight bool
	status   string
	width    int
	height   int

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	theme    theme
}

// New builds the chat model. title is shown in the header, usually the page URL.
func New(ctx context.Context, runner Runner, transcript *history.Transcript, logger *zap.Logger, title string) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Placeholder = `Tell the page what to do, e.g. "log in as demo / demo". /clear resets the transcript.`
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true

	m := Model{
		ctx:        ctx,
		runner:     runner,
		transcript: transcript,
		logger:     logger.Named("tui"),
		title:      title,
		status:     "ready",
		input:      input,
		timeline:   timeline,
		spinner:    sp,
		theme:      newTheme(),
	}
	m.renderTimeline()
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-8)
		m.timeline.Width = max(10, msg.Width-2)
		m.timeline.Height = max(3, msg.Height-headerHeight-inputHeight-footerHeight-1)
		m.renderTimeline()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.saveTranscript()
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		}

	case runDoneMsg:
		m.inflight = false
		if msg.err != nil {
			m.transcript.Add(schemas.RoleSystem, msg.err.Error())
			m.status = "command failed"
		} else {
			m.transcript.Add(schemas.RoleAssistant, msg.summary.Message)
			m.status = fmt.Sprintf("done: %d succeeded, %d failed", msg.summary.Succeeded, msg.summary.Failed)
		}
		m.renderTimeline()
		return m, nil

	case spinner.TickMsg:
		if !m.inflight {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line to the runner. Input is ignored while a command is in flight.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.inflight {
		m.status = "still working on the previous command"
		return m, nil
	}
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.Reset()

	if line == clearCommand {
		m.transcript.Clear()
		m.status = "transcript cleared"
		m.renderTimeline()
		return m, nil
	}

	m.transcript.Add(schemas.RoleUser, line)
	m.inflight = true
	m.status = "working"
	m.renderTimeline()
	return m, tea.Batch(m.runCommand(line), m.spinner.Tick)
}

func (m Model) runCommand(line string) tea.Cmd {
	runner, ctx, logger := m.runner, m.ctx, m.logger
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Command panicked.", zap.Any("panic", r))
				msg = runDoneMsg{err: fmt.Errorf("command panicked: %v", r)}
			}
		}()
		summary, err := runner.Run(ctx, line)
		return runDoneMsg{summary: summary, err: err}
	}
}

func (m Model) saveTranscript() {
	if err := m.transcript.Save(); err != nil {
		m.logger.Warn("Could not save chat transcript.", zap.Error(err))
	}
}

func (m *Model) renderTimeline() {
	width := m.timeline.Width
	var b strings.Builder
	for i, msg := range m.transcript.Messages() {
		if i > 0 {
			b.WriteString("\n")
		}
		style, ok := m.theme.roles[msg.Role]
		if !ok {
			style = m.theme.footer
		}
		b.WriteString(style.Render(string(msg.Role)))
		b.WriteString(m.theme.footer.Render(" " + msg.Timestamp.Format("15:04:05")))
		b.WriteString("\n")
		body := lipgloss.NewStyle()
		if width > 0 {
			body = body.Width(width)
		}
		if msg.Role == schemas.RoleSystem {
			body = body.Inherit(m.theme.errorMsg)
		}
		b.WriteString(body.Render(msg.Content))
		b.WriteString("\n")
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m Model) View() string {
	header := m.theme.header.Render("pagepilot · " + m.title)

	status := m.theme.status.Render(m.status)
	if m.inflight {
		status = m.spinner.View() + " " + status
	}
	footer := m.theme.footer.Render("enter send · pgup/pgdn scroll · esc quit") + "  " + status

	return m.theme.root.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.timeline.View(),
		m.theme.input.Render(m.input.View()),
		footer,
	))
}

// Run starts the program on the alternate screen and blocks until the user quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok && err != nil {
		fm.saveTranscript()
	}
	if err != nil {
		return fmt.Errorf("chat front-end: %w", err)
	}
	return nil
}
