package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/refbox/box"
	"github.com/wippyai/refbox/internal/shell"
)

const maxLogLines = 200

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	blockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

type interactiveModel struct {
	err       error
	store     *box.Store
	sess      *shell.Session
	buf       *bytes.Buffer
	allocName string
	log       []string
	input     textinput.Model
}

func newInteractiveModel(store *box.Store, allocName string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "new a 16"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Width = 48
	ti.Focus()

	buf := &bytes.Buffer{}
	return &interactiveModel{
		store:     store,
		sess:      shell.New(store, buf),
		buf:       buf,
		allocName: allocName,
		input:     ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()
		case "q":
			if m.input.Value() == "" {
				return m, m.quit()
			}
		case "esc":
			m.input.SetValue("")
			return m, nil
		case "enter":
			m.exec(m.input.Value())
			m.input.SetValue("")
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) quit() tea.Cmd {
	m.err = m.sess.Close()
	return tea.Quit
}

func (m *interactiveModel) exec(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	m.append(commandStyle.Render("> " + line))

	m.buf.Reset()
	err := m.sess.Exec(line)
	for _, out := range strings.Split(strings.TrimRight(m.buf.String(), "\n"), "\n") {
		if out != "" {
			m.append(resultStyle.Render(out))
		}
	}
	if err != nil {
		m.append(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
	}
}

func (m *interactiveModel) append(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("refbox · " + m.allocName))
	b.WriteString("\n\n")

	var blocks strings.Builder
	blocks.WriteString(fmt.Sprintf("Live blocks (%d)\n", m.store.Len()))
	m.store.Each(func(info box.Info) bool {
		blocks.WriteString(blockStyle.Render(fmt.Sprintf("#%-4d refs %-3d %5d B @ %#x",
			info.ID, info.Refs, info.Size, info.Addr)))
		blocks.WriteString("\n")
		return true
	})
	if names := m.sess.Names(); len(names) > 0 {
		blocks.WriteString("\nHandles: " + strings.Join(names, ", "))
	}

	logView := m.log
	if len(logView) > 20 {
		logView = logView[len(logView)-20:]
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(strings.Join(logView, "\n")),
		" ",
		panelStyle.Render(blocks.String()),
	))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run • esc clear • help commands • q quit"))

	return b.String()
}

func runInteractive(store *box.Store, allocName string) error {
	m := newInteractiveModel(store, allocName)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	if m.err != nil {
		return fmt.Errorf("close session: %w", m.err)
	}
	return nil
}
