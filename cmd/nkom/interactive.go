package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	nkom "github.com/noriko-engine/nkom-runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	originStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type inspectorModel struct {
	err      error
	host     *host
	classes  []classEntry
	selected int
	state    inspectorState

	obj      nkom.Object
	objClass classEntry
	held     int32
	events   []string

	input textinput.Model
}

type inspectorState int

const (
	stateBrowse inspectorState = iota
	stateInstance
	stateQueryInput
)

func newInspectorModel(h *host) (*inspectorModel, error) {
	classes, err := h.classEntries()
	if err != nil {
		return nil, err
	}
	return &inspectorModel{host: h, classes: classes, state: stateBrowse}, nil
}

type createdMsg struct {
	err error
	obj nkom.Object
}

type queriedMsg struct {
	err error
	iid nkom.IID
}

func (m *inspectorModel) Init() tea.Cmd {
	return nil
}

func (m *inspectorModel) createInstance() tea.Msg {
	e := m.classes[m.selected]
	obj, err := m.host.rt.CreateInstance(context.Background(), e.id, nil, nkom.IIDObject, nil)
	if err != nil {
		return createdMsg{err: err}
	}
	return createdMsg{obj: obj}
}

func (m *inspectorModel) queryInterface() tea.Msg {
	iid, err := nkom.ParseUUID(strings.TrimSpace(m.input.Value()))
	if err != nil {
		return queriedMsg{err: err}
	}
	view, err := m.obj.QueryInterface(iid)
	if err != nil {
		return queriedMsg{err: err, iid: iid}
	}
	view.Release()
	return queriedMsg{iid: iid}
}

func (m *inspectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" || (key == "q" && m.state != stateQueryInput) {
			m.releaseInstance()
			return m, tea.Quit
		}

		switch m.state {
		case stateBrowse:
			switch key {
			case "up", "k":
				if m.selected > 0 {
					m.selected--
				}
			case "down", "j":
				if m.selected < len(m.classes)-1 {
					m.selected++
				}
			case "enter":
				if len(m.classes) > 0 {
					return m, m.createInstance
				}
			}

		case stateInstance:
			switch key {
			case "a":
				m.obj.AddRef()
				m.held++
				m.logf("AddRef, holding %d", m.held)
			case "r":
				m.obj.Release()
				m.held--
				m.logf("Release, holding %d", m.held)
				if m.held == 0 {
					m.obj = nil
					m.state = stateBrowse
				}
			case "i":
				m.input = textinput.New()
				m.input.Placeholder = nkom.IIDObject.String()
				m.input.Prompt = "iid: "
				m.input.Width = 40
				m.input.Focus()
				m.state = stateQueryInput
			case "esc":
				m.releaseInstance()
				m.state = stateBrowse
			}

		case stateQueryInput:
			switch key {
			case "enter":
				m.state = stateInstance
				return m, m.queryInterface
			case "esc":
				m.state = stateInstance
			}
		}

	case createdMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.obj = msg.obj
		m.objClass = m.classes[m.selected]
		m.held = 1
		m.events = nil
		m.logf("created, holding 1")
		m.state = stateInstance

	case queriedMsg:
		if msg.err != nil {
			m.logf("%s", errorStyle.Render(fmt.Sprintf("query: %v", msg.err)))
		} else {
			m.logf("%s", okStyle.Render(nkom.DescribeIID(msg.iid)+" implemented"))
		}
	}

	if m.state == stateQueryInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

// releaseInstance drops exactly the references the inspector holds; the
// held ledger, not Release's returned count, decides how many it owes.
func (m *inspectorModel) releaseInstance() {
	if m.obj == nil {
		return
	}
	for ; m.held > 0; m.held-- {
		m.obj.Release()
	}
	m.obj = nil
}

func (m *inspectorModel) logf(format string, args ...any) {
	m.events = append(m.events, fmt.Sprintf(format, args...))
	if len(m.events) > 12 {
		m.events = m.events[len(m.events)-12:]
	}
}

func (m *inspectorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("NkOM Inspector"))
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		if len(m.classes) == 0 {
			b.WriteString("No classes registered. Start with -demo or a manifest.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			return b.String()
		}
		b.WriteString("Select a class to instantiate:\n\n")
		for i, e := range m.classes {
			line := m.formatClass(e)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter create • q quit"))

	case stateInstance, stateQueryInput:
		name := m.objClass.name
		if name == "" {
			name = m.objClass.id.String()
		}
		b.WriteString("Instance of " + classStyle.Render(name))
		b.WriteString(originStyle.Render("  [" + m.objClass.origin + "]"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("References held: %d\n\n", m.held))
		for _, e := range m.events {
			b.WriteString("  " + e + "\n")
		}
		b.WriteString("\n")
		if m.state == stateQueryInput {
			b.WriteString(m.input.View())
			b.WriteString("\n\n")
			b.WriteString(helpStyle.Render("enter query • esc cancel"))
		} else {
			b.WriteString(helpStyle.Render("a addref • r release • i query • esc drop • q quit"))
		}
	}

	return b.String()
}

func (m *inspectorModel) formatClass(e classEntry) string {
	name := e.name
	if name == "" {
		name = "(unnamed)"
	}
	return classStyle.Render(name) + " " + e.id.String() + " " + originStyle.Render(e.origin)
}

func runInteractive(h *host) error {
	m, err := newInspectorModel(h)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
