package progress

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case pollTickMsg:
		if m.done {
			return m, nil
		}
		return m, m.fetchCmd()

	case pollResultMsg:
		m.plan = msg.plan
		m.state = msg.state
		m.err = msg.err
		if msg.err == nil && isTerminal(msg.state) {
			m.done = true
			return m, nil
		}
		return m, m.pollCmd()

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}
