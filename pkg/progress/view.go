package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lustrefs/manager/pkg/commandplan"
)

var (
	styleCompleted = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleErrored   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleCancelled = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	styleRunning   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	stylePending   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleJobName   = lipgloss.NewStyle().Bold(true)
)

func glyph(state commandplan.State) string {
	switch state {
	case commandplan.Completed:
		return styleCompleted.Render("✓")
	case commandplan.Errored:
		return styleErrored.Render("✗")
	case commandplan.Cancelled:
		return styleCancelled.Render("-")
	case commandplan.Running:
		return styleRunning.Render("●")
	default:
		return stylePending.Render("·")
	}
}

func (m Model) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "command %d: %s\n\n", m.commandID, m.state)

	if m.err != nil {
		fmt.Fprintf(&b, "error fetching plan: %v\n", m.err)
		return b.String()
	}

	for _, jobName := range orderedJobNames(m.plan) {
		graph := m.plan[jobName]
		fmt.Fprintf(&b, "%s\n", styleJobName.Render(jobName))
		for _, node := range graph.Nodes {
			fmt.Fprintf(&b, "  %s %s (%s)\n", glyph(node.State), node.ID, node.Action)
		}
	}

	if !m.done {
		fmt.Fprintf(&b, "\n%s refreshing\n", m.spinner.View())
	} else {
		b.WriteString("\ndone — press q to exit\n")
	}

	return b.String()
}
