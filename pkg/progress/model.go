// Package progress renders a running command's plan as a live-updating
// tree of jobs and steps (spec.md names a progress renderer but leaves
// its presentation unspecified; this package supplements it). Grounded
// on the dashboard model in alexisbeaulieu97-Streamy's
// internal/tui/dashboard — the only example repo with a full
// bubbletea/bubbles/lipgloss stack — adapted from "poll a pipeline
// registry" into "poll one command's persisted plan".
package progress

import (
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lustrefs/manager/pkg/commandplan"
)

// planGetter narrows commandplan.PlanStore to what this package polls: a
// closure over (ctx, commandID) so the model itself stays free of a
// context import and easy to drive from tests.
type planGetter func() (commandplan.Plan, commandplan.State, error)

// Model is the bubbletea model for one command's live progress view.
type Model struct {
	commandID    int64
	fetch        planGetter
	pollInterval time.Duration

	plan  commandplan.Plan
	state commandplan.State
	err   error

	spinner spinner.Model
	done    bool
}

// NewModel constructs a progress Model that polls fetch every
// pollInterval until the command's rolled-up state is terminal
// (Completed, Cancelled, or Errored).
func NewModel(commandID int64, pollInterval time.Duration, fetch planGetter) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		commandID:    commandID,
		fetch:        fetch,
		pollInterval: pollInterval,
		spinner:      s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollCmd())
}

type pollResultMsg struct {
	plan  commandplan.Plan
	state commandplan.State
	err   error
}

type pollTickMsg struct{}

func (m Model) pollCmd() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m Model) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		plan, state, err := m.fetch()
		return pollResultMsg{plan: plan, state: state, err: err}
	}
}

func isTerminal(s commandplan.State) bool {
	return s == commandplan.Completed || s == commandplan.Cancelled || s == commandplan.Errored
}

// orderedJobNames returns the plan's job names sorted for stable
// rendering — the persisted plan is a map, with no declaration order to
// lean on once it round-trips through JSON.
func orderedJobNames(plan commandplan.Plan) []string {
	names := make([]string, 0, len(plan))
	for name := range plan {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
