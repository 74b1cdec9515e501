package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelect modelState = iota
	stateInputShots
	stateShowResult
)

type interactiveModel struct {
	ctx      context.Context
	err      error
	r        *runner
	result   string
	qasm     string
	sources  []source
	shots    textinput.Model
	selected int
	state    modelState
	showQASM bool
}

type runResultMsg struct {
	err    error
	result string
	qasm   string
}

func newInteractiveModel(ctx context.Context, r *runner) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "shots: "
	ti.Placeholder = strconv.Itoa(r.cfg.Shots)
	ti.Width = 12
	return &interactiveModel{
		ctx:     ctx,
		r:       r,
		sources: r.sources(),
		shots:   ti,
		state:   stateSelect,
	}
}

func (m *interactiveModel) Init() tea.Cmd { return nil }

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(m.sources)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if len(m.sources) == 0 {
					return m, nil
				}
				m.shots.SetValue("")
				m.shots.Focus()
				m.state = stateInputShots
				return m, textinput.Blink

			case stateInputShots:
				return m, m.runSelected

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateShowResult {
				m.showQASM = !m.showQASM
			}

		case "esc":
			if m.state != stateSelect {
				m.reset()
			}
		}

	case runResultMsg:
		m.result = msg.result
		m.qasm = msg.qasm
		m.err = msg.err
		m.state = stateShowResult
		m.shots.Blur()
	}

	if m.state == stateInputShots {
		var cmd tea.Cmd
		m.shots, cmd = m.shots.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) reset() {
	m.state = stateSelect
	m.result = ""
	m.qasm = ""
	m.err = nil
	m.showQASM = false
	m.shots.Blur()
}

func (m *interactiveModel) runSelected() tea.Msg {
	s := m.sources[m.selected]

	shots := m.r.cfg.Shots
	if v := strings.TrimSpace(m.shots.Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return runResultMsg{err: fmt.Errorf("shots must be a positive integer, got %q", v)}
		}
		shots = n
	}

	inst, err := m.r.open(m.ctx, s.Name)
	if err != nil {
		return runResultMsg{err: err}
	}

	prev := m.r.cfg.Shots
	m.r.cfg.Shots = shots
	rep, err := m.r.run(m.ctx, inst)
	m.r.cfg.Shots = prev
	if err != nil {
		return runResultMsg{err: err}
	}

	var b bytes.Buffer
	if err := writeText(&b, rep); err != nil {
		return runResultMsg{err: err}
	}
	return runResultMsg{result: b.String(), qasm: rep.Program.QASM()}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Circuit Runner"))
	if m.r.cfg.PluginDir != "" {
		b.WriteString(" ")
		b.WriteString(m.r.cfg.PluginDir)
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelect:
		if len(m.sources) == 0 {
			b.WriteString("No modules available.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a module to run:\n\n")
		for i, s := range m.sources {
			line := formatSource(s)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputShots:
		s := m.sources[m.selected]
		b.WriteString(fmt.Sprintf("Running %s\n\n", nameStyle.Render(s.Name)))
		b.WriteString(m.shots.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter run • esc back"))

	case stateShowResult:
		s := m.sources[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", nameStyle.Render(s.Name)))
		switch {
		case m.err != nil:
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		case m.showQASM:
			b.WriteString(m.qasm)
		default:
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("tab program/result • enter continue • q quit"))
	}

	return b.String()
}

func formatSource(s source) string {
	line := nameStyle.Render(s.Name) + " " + kindStyle.Render(s.Kind)
	if len(s.Requires) > 0 {
		line += " requires " + strings.Join(s.Requires, ", ")
	}
	return line
}

func runInteractive(ctx context.Context, r *runner) error {
	p := tea.NewProgram(newInteractiveModel(ctx, r), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
