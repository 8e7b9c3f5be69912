// Package console implements the tracker's operator console: a
// target list, current tracking state, a Sun-lockout banner, and manual
// bias keys, built as a bubbletea Elm-architecture model.
package console

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unklstewy/nexplane/pkg/controller"
	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/target"
)

const biasStepDeg = 0.1

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	trackingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	slewingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	lockoutStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")).Bold(true)
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// TargetsFunc returns a snapshot of currently tracked targets.
type TargetsFunc func() []*target.Target

// StateFunc returns the controller's current state.
type StateFunc func() controller.State

// SelectFunc tells the controller which target to track, or "" to idle.
type SelectFunc func(id string)

// BiasFunc applies a manual pointing bias in degrees.
type BiasFunc func(azDeg, elDeg float64)

// Model is the console's Elm-architecture state.
type Model struct {
	observer coordinates.Observer
	targets  TargetsFunc
	state    StateFunc
	selectFn SelectFunc
	biasFn   BiasFunc

	snapshot []*target.Target
	selected int
	current  controller.State
	err      error
}

// New builds a console Model wired to the running tracker task.
func New(observer coordinates.Observer, targets TargetsFunc, state StateFunc, selectFn SelectFunc, biasFn BiasFunc) Model {
	return Model{observer: observer, targets: targets, state: state, selectFn: selectFn, biasFn: biasFn}
}

type tickMsg time.Time
type snapshotMsg struct {
	targets []*target.Target
	state   controller.State
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) poll() tea.Msg {
	return snapshotMsg{targets: m.targets(), state: m.state()}
}

// Init starts the polling tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.poll)
}

// Update handles key presses and periodic snapshot refreshes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(tick(), m.poll)

	case snapshotMsg:
		m.snapshot = sortedByID(msg.targets)
		m.current = msg.state
		if m.selected >= len(m.snapshot) {
			m.selected = 0
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down", "j":
			if m.selected < len(m.snapshot)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if m.selected < len(m.snapshot) {
				m.selectFn(m.snapshot[m.selected].ID)
			}
			return m, nil

		case "esc":
			m.selectFn("")
			return m, nil

		case "left":
			m.biasFn(-biasStepDeg, 0)
			return m, nil
		case "right":
			m.biasFn(biasStepDeg, 0)
			return m, nil
		case "shift+up", "K":
			m.biasFn(0, biasStepDeg)
			return m, nil
		case "shift+down", "J":
			m.biasFn(0, -biasStepDeg)
			return m, nil
		}
	}
	return m, nil
}

// View renders the target list, current state, and a Sun-lockout banner.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("NexPlane Tracker") + "\n")
	b.WriteString(stateLine(m.current) + "\n\n")

	if len(m.snapshot) == 0 {
		b.WriteString(idleStyle.Render("No targets") + "\n")
	}
	for i, tg := range m.snapshot {
		horiz := tg.Predict(time.Now())
		line := fmt.Sprintf("%-10s az %6.2f° el %6.2f°", tg.ID, horiz.Azimuth, horiz.Altitude)
		if tg.IsStale(time.Now(), target.DefaultSilenceTimeout) {
			line = idleStyle.Render(line)
		}
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	if m.current == controller.StateSunLockout {
		b.WriteString(lockoutStyle.Render(" SUN LOCKOUT — slewing disabled ") + "\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n↑/↓ select · enter track · esc idle · ←/→ bias az · shift ↑/↓ bias el · q quit\n")
	return b.String()
}

func stateLine(s controller.State) string {
	switch s {
	case controller.StateTracking:
		return trackingStyle.Render("TRACKING")
	case controller.StateSlewing:
		return slewingStyle.Render("SLEWING")
	case controller.StateSunLockout:
		return lockoutStyle.Render("SUN LOCKOUT")
	default:
		return idleStyle.Render("IDLE")
	}
}

func sortedByID(targets []*target.Target) []*target.Target {
	out := make([]*target.Target, len(targets))
	copy(out, targets)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
