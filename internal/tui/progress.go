// Package tui renders a live progress view of a planning run.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/tripweaver/internal/plan"
	"github.com/yubzen/tripweaver/internal/workflow"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	timerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

var nodeLabels = map[workflow.NodeID]string{
	workflow.NodeVisa:       "Checking visa requirements",
	workflow.NodeWeather:    "Analyzing the weather",
	workflow.NodeItinerary:  "Drafting the itinerary",
	workflow.NodeHotel:      "Finding hotels",
	workflow.NodeActivities: "Suggesting activities",
}

// ErrInterrupted is returned by Run when the user quits before the run ends.
var ErrInterrupted = errors.New("interrupted")

// StepMsg carries an executor step event into the program.
type StepMsg workflow.StepEvent

// DoneMsg ends the program with the run's result.
type DoneMsg struct {
	Record plan.Record
	Err    error
}

type tickMsg time.Time

type stepRow struct {
	node    workflow.NodeID
	status  workflow.StepStatus
	elapsed time.Duration
	err     error
}

// ProgressModel lists the planned steps and marks each one as the executor
// reports it.
type ProgressModel struct {
	title     string
	rows      []stepRow
	spinner   spinner.Model
	statusbar *StatusBarModel
	started   time.Time
	now       func() time.Time
	width     int

	done        bool
	interrupted bool
	result      plan.Record
	err         error
	cancel      context.CancelFunc
}

// NewProgressModel lists planned in order. Steps reported outside the plan
// are appended as they arrive.
func NewProgressModel(rec plan.Record, provider string, planned []workflow.NodeID, cancel context.CancelFunc) *ProgressModel {
	rows := make([]stepRow, 0, len(planned))
	for _, id := range planned {
		rows = append(rows, stepRow{node: id})
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return &ProgressModel{
		title:     fmt.Sprintf("Planning %s: %s to %s", rec.Destination, plan.FormatDate(rec.StartDate), plan.FormatDate(rec.EndDate)),
		rows:      rows,
		spinner:   s,
		statusbar: NewStatusBarModel(rec.Destination, provider, len(rows)),
		started:   time.Now(),
		now:       time.Now,
		cancel:    cancel,
	}
}

func (m *ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.statusbar.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.done {
			return m, nil
		}
		m.statusbar.Elapsed = m.now().Sub(m.started)
		return m, tick()

	case StepMsg:
		m.applyStep(workflow.StepEvent(msg))
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Record
		m.err = msg.Err
		m.statusbar.Elapsed = m.now().Sub(m.started)
		if msg.Err != nil {
			m.statusbar.Failed = true
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *ProgressModel) applyStep(ev workflow.StepEvent) {
	m.statusbar.RunID = ev.RunID

	idx := -1
	for i := range m.rows {
		if m.rows[i].node == ev.Node {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.rows = append(m.rows, stepRow{node: ev.Node})
		idx = len(m.rows) - 1
		m.statusbar.Total = len(m.rows)
	}

	row := &m.rows[idx]
	row.status = ev.Status
	row.elapsed = ev.Duration
	row.err = ev.Err

	finished := 0
	for _, r := range m.rows {
		if r.status == workflow.StepDone || r.status == workflow.StepFailed {
			finished++
		}
		if r.status == workflow.StepFailed {
			m.statusbar.Failed = true
		}
	}
	m.statusbar.Done = finished
}

func (m *ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	for _, r := range m.rows {
		label := nodeLabels[r.node]
		if label == "" {
			label = string(r.node)
		}
		switch r.status {
		case workflow.StepRunning:
			fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), label)
		case workflow.StepDone:
			fmt.Fprintf(&b, "%s %s %s\n", doneStyle.Render("✓"), label, timerStyle.Render(r.elapsed.Round(100*time.Millisecond).String()))
		case workflow.StepFailed:
			fmt.Fprintf(&b, "%s %s\n", failedStyle.Render("✗"), label)
			if r.err != nil {
				b.WriteString(failedStyle.Render(hangingIndent("    ", r.err.Error(), m.width)))
				b.WriteString("\n")
			}
		default:
			fmt.Fprintf(&b, "%s\n", pendingStyle.Render("· "+label))
		}
	}

	if !m.done {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("esc/ctrl+c to interrupt"))
	}
	b.WriteString("\n")
	b.WriteString(m.statusbar.View())
	b.WriteString("\n")
	return b.String()
}

// Result is the run's outcome once the program has quit.
func (m *ProgressModel) Result() (plan.Record, error) {
	if !m.done {
		if m.interrupted {
			return m.result, ErrInterrupted
		}
		return m.result, context.Canceled
	}
	return m.result, m.err
}

// RunFunc runs a plan, forwarding step events to observe.
type RunFunc func(ctx context.Context, observe workflow.Observer) (plan.Record, error)

// Run shows the progress view on out while fn runs, and returns fn's result.
func Run(ctx context.Context, out io.Writer, rec plan.Record, provider string, planned []workflow.NodeID, fn RunFunc, opts ...tea.ProgramOption) (plan.Record, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewProgressModel(rec, provider, planned, cancel)
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(out)}, opts...)...)

	var (
		result plan.Record
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		result, runErr = fn(ctx, func(ev workflow.StepEvent) { p.Send(StepMsg(ev)) })
		p.Send(DoneMsg{Record: result, Err: runErr})
	}()

	_, err := p.Run()
	cancel()
	<-finished
	if m.interrupted && !m.done {
		return result, ErrInterrupted
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return result, err
	}
	return result, runErr
}
