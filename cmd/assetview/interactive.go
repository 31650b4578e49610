package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/assetcache/config"
	"github.com/wippyai/assetcache/resource"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateInputPath
	stateInputExport
)

type frameMsg time.Time

// interactiveModel drives the engine from the bubbletea event loop. Every
// engine call happens in Update, so the engine is only touched by one
// goroutine.
type interactiveModel struct {
	ctx      context.Context
	err      error
	fatalErr error
	s        *session
	types    table.Model
	input    textinput.Model
	status   string
	last     resource.SweepStats
	interval time.Duration
	root     string
	selected int
	state    modelState
}

func newInteractiveModel(ctx context.Context, s *session, cfg *config.Config) *interactiveModel {
	cols := []table.Column{
		{Title: "Type", Width: 36},
		{Title: "Resources", Width: 10},
		{Title: "Pending", Width: 8},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(6))

	ti := textinput.New()
	ti.Width = 48

	return &interactiveModel{
		ctx:      ctx,
		s:        s,
		types:    t,
		input:    ti,
		interval: cfg.FrameInterval,
		root:     cfg.AssetRoot,
		state:    stateBrowse,
	}
}

func (m *interactiveModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.tick()
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		if m.fatalErr != nil {
			return m, nil
		}
		stats, err := m.s.frame()
		if err != nil {
			m.fatalErr = err
			return m, nil
		}
		if stats.Drained > 0 {
			m.last = stats
		}
		m.refreshTypes()
		return m, m.tick()

	case tea.KeyMsg:
		if m.fatalErr != nil {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}
			return m, nil
		}
		if m.state != stateBrowse {
			return m.updateInput(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.selected < len(m.s.held)-1 {
				m.selected++
			}

		case "l":
			m.prompt(stateInputPath, "load: ", "path below "+m.root)
			return m, textinput.Blink

		case "r":
			m.prompt(stateInputExport, "call: ", "export name")
			return m, textinput.Blink

		case "c":
			m.report(m.s.clone(m.selected), "cloned")

		case "d":
			m.report(m.s.drop(m.selected), "dropped")
			if m.selected >= len(m.s.held) && m.selected > 0 {
				m.selected--
			}
		}
	}

	return m, nil
}

func (m *interactiveModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.state = stateBrowse
		m.input.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.input.Value())
		state := m.state
		m.state = stateBrowse
		m.input.Blur()
		if value == "" {
			return m, nil
		}

		switch state {
		case stateInputPath:
			if _, err := m.s.load(m.ctx, value); err != nil {
				m.report(err, "")
				return m, nil
			}
			m.selected = len(m.s.held) - 1
			m.report(nil, "loaded "+value)

		case stateInputExport:
			results, err := m.s.call(m.ctx, m.selected, value)
			m.report(err, fmt.Sprintf("%s() -> %v", value, results))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) prompt(state modelState, prompt, placeholder string) {
	m.state = state
	m.input.Prompt = prompt
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
}

func (m *interactiveModel) report(err error, ok string) {
	m.err = err
	if err == nil {
		m.status = ok
	} else {
		m.status = ""
	}
}

func (m *interactiveModel) refreshTypes() {
	types := m.s.engine.Types()
	rows := make([]table.Row, 0, len(types))
	for _, t := range types {
		rows = append(rows, table.Row{
			t.Tag.String(),
			strconv.Itoa(t.Resources),
			strconv.Itoa(t.Pending),
		})
	}
	m.types.SetRows(rows)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Asset Cache"))
	b.WriteString(" ")
	b.WriteString(m.root)
	b.WriteString("\n\n")

	b.WriteString(m.types.View())
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("frame %d • live %d • last sweep drained %d freed %d\n\n",
		m.s.engine.Frames(), m.s.engine.TotalCount(), m.last.Drained, m.last.Freed))

	if len(m.s.held) == 0 {
		b.WriteString(helpStyle.Render("No handles held. Press l to load an asset."))
		b.WriteString("\n")
	}
	for i, h := range m.s.held {
		line := fmt.Sprintf("%s %s %s", h.handle, pathStyle.Render(h.path), kindStyle.Render(h.kind))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.fatalErr != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Sweep failed, frame loop stopped: %v", m.fatalErr)))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q quit"))
		return b.String()
	}

	if m.state != stateBrowse {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter confirm • esc cancel"))
		return b.String()
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("↑/↓ select • l load • c clone • d drop • r call export • q quit"))
	return b.String()
}

func runInteractive(ctx context.Context, s *session, cfg *config.Config, paths []string) error {
	for _, p := range paths {
		if _, err := s.load(ctx, p); err != nil {
			return err
		}
	}

	m := newInteractiveModel(ctx, s, cfg)
	m.refreshTypes()
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.fatalErr
}
