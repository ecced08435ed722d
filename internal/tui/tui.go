// Terminal dashboard consuming state snapshots
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"robodash/internal/command"
	"robodash/internal/state"
)

// commandSender is the dispatcher surface the TUI uses.
type commandSender interface {
	Send(command.Request) ([]command.Outcome, error)
}

// errorCounter exposes the receiver's decode error count.
type errorCounter interface {
	DecodeErrors() uint64
}

const refreshInterval = 500 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).Padding(0, 1)
	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusBarStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	logStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type refreshMsg struct{}

type dispatchMsg struct {
	kind     command.Kind
	outcomes []command.Outcome
	err      error
}

const maxLogLines = 6

// Model renders the robot table and dispatches broadcast commands on
// keypresses. It only reads snapshots; it never touches table internals.
type Model struct {
	robots  *state.Table
	sender  commandSender
	counter errorCounter
	logs    *LogWriter

	grid   table.Model
	log    []string
	width  int
	height int
}

// NewModel builds the dashboard model. logs may be nil when no logger is
// routed into the pane.
func NewModel(robots *state.Table, sender commandSender, counter errorCounter, logs *LogWriter) Model {
	columns := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Name", Width: 10},
		{Title: "Conn", Width: 6},
		{Title: "Game", Width: 9},
		{Title: "Pose", Width: 20},
		{Title: "Role", Width: 11},
		{Title: "Decision", Width: 14},
		{Title: "Ball", Width: 6},
		{Title: "Last Seen", Width: 10},
	}
	grid := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	return Model{robots: robots, sender: sender, counter: counter, logs: logs, grid: grid}
}

// Init schedules the first snapshot refresh.
func (m Model) Init() tea.Cmd {
	return refreshAfter()
}

func refreshAfter() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m Model) broadcast(kind command.Kind) tea.Cmd {
	sender := m.sender
	return func() tea.Msg {
		outcomes, err := sender.Send(command.NewBroadcast(kind))
		return dispatchMsg{kind: kind, outcomes: outcomes, err: err}
	}
}

// Update handles refresh ticks, key bindings, and dispatch results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.grid.SetRows(m.rows())
		if m.logs != nil {
			for _, line := range m.logs.Drain() {
				m.appendLog(line)
			}
		}
		return m, refreshAfter()

	case dispatchMsg:
		m.pushLog(describeDispatch(msg))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "b":
			return m, m.broadcast(command.KindBuild)
		case "s":
			return m, m.broadcast(command.KindStart)
		case "x":
			return m, m.broadcast(command.KindStop)
		case "e":
			return m, m.broadcast(command.KindEmergencyStop)
		}
		var cmd tea.Cmd
		m.grid, cmd = m.grid.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) pushLog(line string) {
	m.appendLog(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), line))
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func describeDispatch(msg dispatchMsg) string {
	if msg.err != nil {
		return fmt.Sprintf("%s failed: %v", msg.kind, msg.err)
	}
	ok, failed := 0, 0
	for _, o := range msg.outcomes {
		if o.OK() {
			ok++
		} else {
			failed++
		}
	}
	if failed == 0 {
		return fmt.Sprintf("%s sent to %d robots", msg.kind, ok)
	}
	var failures []string
	for _, o := range msg.outcomes {
		if !o.OK() {
			failures = append(failures, strconv.Itoa(o.RobotID))
		}
	}
	return fmt.Sprintf("%s: %d ok, %d failed (robots %s)", msg.kind, ok, failed, strings.Join(failures, ","))
}

func (m Model) rows() []table.Row {
	snap := m.robots.Snapshot()
	rows := make([]table.Row, 0, len(snap))
	for _, rec := range snap {
		conn := connectedStyle.Render("up")
		if !rec.Connected {
			conn = disconnectedStyle.Render("down")
		}
		ball := "-"
		if rec.Status.Ball.Detected {
			ball = fmt.Sprintf("%.1fm", rec.Status.Ball.Range)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(rec.Status.RobotID),
			rec.Status.RobotName,
			conn,
			rec.Status.Game.State,
			fmt.Sprintf("(%.2f, %.2f, %.2f)", rec.Status.Pose.X, rec.Status.Pose.Y, rec.Status.Pose.Theta),
			rec.Status.Collaboration.Role,
			rec.Status.Behavior.Decision,
			ball,
			rec.LastUpdate.Format("15:04:05"),
		})
	}
	return rows
}

// View renders the full dashboard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("robodash"))
	b.WriteString("\n\n")
	b.WriteString(m.grid.View())
	b.WriteString("\n")

	var decodeErrs uint64
	if m.counter != nil {
		decodeErrs = m.counter.DecodeErrors()
	}
	status := fmt.Sprintf("connected: %d  disconnected: %d  decode errors: %d",
		m.robots.ConnectedCount(), len(m.robots.DisconnectedIDs()), decodeErrs)
	b.WriteString(statusBarStyle.Render(status))
	b.WriteString("\n")

	for _, line := range m.log {
		b.WriteString(logStyle.Render(line))
		b.WriteString("\n")
	}

	help := "b: build  s: start  x: stop  e: emergency stop  q: quit"
	if m.width > 0 {
		help = wordwrap.String(help, m.width)
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

// Run blocks in the TUI until the user quits or ctx is cancelled. logs, when
// non-nil, is drained into the log pane on every refresh.
func Run(ctx context.Context, robots *state.Table, sender commandSender, counter errorCounter, logs *LogWriter) error {
	p := tea.NewProgram(NewModel(robots, sender, counter, logs), tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}
