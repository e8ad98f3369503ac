package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/signwerk/orderprep/internal/domain/step"
	"github.com/signwerk/orderprep/internal/domain/workflow"
	"github.com/signwerk/orderprep/internal/ports"
	"github.com/signwerk/orderprep/internal/tui/ui"
)

// stepFinishedMsg is sent when a step's remote operation returns.
type stepFinishedMsg struct {
	id  step.ID
	err error
}

// refreshFinishedMsg is sent when a staleness sweep completes.
type refreshFinishedMsg struct{}

// resolveFinishedMsg is sent when submitted resolutions return.
type resolveFinishedMsg struct {
	err error
}

// cancelFinishedMsg is sent when a resolution cancel returns.
type cancelFinishedMsg struct {
	err error
}

// prepareModel is the Bubble Tea model for the interactive preparation
// screen. All workflow state lives in the coordinator; the model keeps
// only presentation state and re-reads views after every action.
type prepareModel struct {
	ctx   context.Context
	coord *workflow.Coordinator

	styles ui.Styles
	keys   ui.KeyMap
	spin   spinner.Model

	steps      []workflow.StepView
	resolution workflow.ResolutionView

	cursor     int
	itemCursor int
	choices    []int

	running   step.ID
	statusMsg string
	width     int
	height    int
	quitting  bool
}

// newPrepareModel creates a prepare model over an opened coordinator.
func newPrepareModel(ctx context.Context, coord *workflow.Coordinator) prepareModel {
	styles := ui.DefaultStyles()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	m := prepareModel{
		ctx:        ctx,
		coord:      coord,
		styles:     styles,
		keys:       ui.DefaultKeyMap(),
		spin:       s,
		resolution: workflow.ResolutionView{State: workflow.ResolutionClosed},
		width:      80,
		height:     24,
	}
	m.sync()
	return m
}

// Init initializes the model.
func (m prepareModel) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), m.spin.Tick)
}

// sync re-reads the coordinator's derived views.
func (m *prepareModel) sync() {
	m.steps = m.coord.Views()

	wasOpen := m.resolution.Open()
	m.resolution = m.coord.Resolution()
	if m.resolution.Open() && !wasOpen {
		m.itemCursor = 0
		m.choices = make([]int, len(m.resolution.Items))
		for i, item := range m.resolution.Items {
			m.choices[i] = suggestedIndex(item)
		}
	}
}

// suggestedIndex returns the candidate index of the item's suggested
// recipe, or 0 when no suggestion matches.
func suggestedIndex(item ports.AmbiguousItem) int {
	for i, c := range item.Candidates {
		if c == item.Suggested {
			return i
		}
	}
	return 0
}

// Update handles messages.
func (m prepareModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.styles = m.styles.WithWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.resolution.Open() {
			return m.updateResolutionKeys(msg)
		}
		return m.updateStepKeys(msg)

	case stepFinishedMsg:
		m.running = ""
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
		}
		m.sync()
		return m, nil

	case refreshFinishedMsg:
		m.sync()
		return m, nil

	case resolveFinishedMsg, cancelFinishedMsg:
		if err := finishedErr(msg); err != nil {
			m.statusMsg = err.Error()
		}
		m.sync()
		return m, nil
	}

	return m, nil
}

func finishedErr(msg tea.Msg) error {
	switch msg := msg.(type) {
	case resolveFinishedMsg:
		return msg.err
	case cancelFinishedMsg:
		return msg.err
	}
	return nil
}

func (m prepareModel) updateStepKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.steps)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Run):
		if m.running != "" || len(m.steps) == 0 {
			return m, nil
		}
		view := m.steps[m.cursor]
		if !view.Enabled || view.Status == step.StatusRunning {
			return m, nil
		}
		m.statusMsg = ""
		m.running = view.ID
		m.sync()
		return m, m.runStepCmd(view.ID)

	case key.Matches(msg, m.keys.Skip):
		if len(m.steps) == 0 {
			return m, nil
		}
		if err := m.coord.Skip(m.steps[m.cursor].ID); err != nil {
			m.statusMsg = err.Error()
		}
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.Undo):
		if len(m.steps) == 0 {
			return m, nil
		}
		if err := m.coord.UndoSkip(m.steps[m.cursor].ID); err != nil {
			m.statusMsg = err.Error()
		}
		m.sync()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.statusMsg = ""
		return m, m.refreshCmd()
	}

	return m, nil
}

func (m prepareModel) updateResolutionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.resolution.Items

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.itemCursor > 0 {
			m.itemCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.itemCursor < len(items)-1 {
			m.itemCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		m.cycleChoice(-1)
		return m, nil

	case key.Matches(msg, m.keys.Right):
		m.cycleChoice(1)
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		if m.resolution.State != workflow.ResolutionOpen {
			return m, nil
		}
		m.statusMsg = ""
		return m, m.resolveCmd(m.resolutions())

	case key.Matches(msg, m.keys.Cancel):
		m.statusMsg = ""
		return m, m.cancelCmd()
	}

	return m, nil
}

// cycleChoice moves the current item's recipe choice by delta, wrapping
// around the candidate list.
func (m *prepareModel) cycleChoice(delta int) {
	items := m.resolution.Items
	if m.itemCursor >= len(items) || m.itemCursor >= len(m.choices) {
		return
	}
	n := len(items[m.itemCursor].Candidates)
	if n == 0 {
		return
	}
	m.choices[m.itemCursor] = (m.choices[m.itemCursor] + delta + n) % n
}

// resolutions collects the operator's current recipe choices.
func (m prepareModel) resolutions() []ports.Resolution {
	out := make([]ports.Resolution, 0, len(m.resolution.Items))
	for i, item := range m.resolution.Items {
		if len(item.Candidates) == 0 {
			continue
		}
		choice := 0
		if i < len(m.choices) {
			choice = m.choices[i]
		}
		out = append(out, ports.Resolution{
			LineID: item.LineID,
			Recipe: item.Candidates[choice],
		})
	}
	return out
}

func (m prepareModel) runStepCmd(id step.ID) tea.Cmd {
	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		return stepFinishedMsg{id: id, err: coord.RunStep(ctx, id)}
	}
}

func (m prepareModel) refreshCmd() tea.Cmd {
	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		coord.RefreshAll(ctx)
		return refreshFinishedMsg{}
	}
}

func (m prepareModel) resolveCmd(resolutions []ports.Resolution) tea.Cmd {
	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		return resolveFinishedMsg{err: coord.Resolve(ctx, resolutions)}
	}
}

func (m prepareModel) cancelCmd() tea.Cmd {
	ctx, coord := m.ctx, m.coord
	return func() tea.Msg {
		return cancelFinishedMsg{err: coord.CancelResolution(ctx)}
	}
}

// View renders the model.
func (m prepareModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	order := m.coord.Order()
	header := fmt.Sprintf("Preparing order %s", order.Reference)
	b.WriteString(m.styles.Title.Render(header))
	b.WriteString("\n\n")

	for i, view := range m.steps {
		b.WriteString(m.renderStep(i, view))
		b.WriteString("\n")
	}

	if m.resolution.Open() {
		b.WriteString("\n")
		b.WriteString(m.renderResolution())
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m prepareModel) renderStep(i int, view workflow.StepView) string {
	cursor := "  "
	if i == m.cursor && !m.resolution.Open() {
		cursor = m.styles.ListItemActive.Render("❯ ")
	}

	line := fmt.Sprintf("%s%s %s", cursor, m.stepGlyph(view), view.Title)

	if view.Status == step.StatusFailed && view.Error != "" {
		line += "  " + m.styles.Error.Render(view.Error)
		for _, fe := range view.FieldErrors {
			line += "\n      " + m.styles.Error.Render(fmt.Sprintf("%s: %s", fe.Field, fe.Message))
		}
	} else if view.Message != "" {
		style := m.styles.Help
		if strings.HasPrefix(view.Message, "⚠") {
			style = m.styles.Warning
		}
		line += "  " + style.Render(view.Message)
	}

	if !view.Enabled && view.Status == step.StatusPending {
		line += "  " + m.styles.Help.Render("(waiting on dependencies)")
	}

	return line
}

func (m prepareModel) stepGlyph(view workflow.StepView) string {
	if view.ID == m.running || view.Status == step.StatusRunning {
		return m.spin.View()
	}
	switch view.Status {
	case step.StatusCompleted:
		return m.styles.Success.Render("✓")
	case step.StatusFailed:
		return m.styles.Error.Render("✗")
	case step.StatusSkipped:
		return m.styles.Help.Render("-")
	case step.StatusPending, step.StatusRunning:
		return m.styles.Help.Render("·")
	}
	return "·"
}

func (m prepareModel) renderResolution() string {
	var b strings.Builder

	b.WriteString(m.styles.PanelTitle.Render("Operator resolution required"))
	b.WriteString("\n")

	if m.resolution.State == workflow.ResolutionResolving {
		b.WriteString(m.styles.Info.Render(fmt.Sprintf("%s Applying resolutions…", m.spin.View())))
		return m.styles.Panel.Render(b.String())
	}

	for i, item := range m.resolution.Items {
		cursor := "  "
		if i == m.itemCursor {
			cursor = m.styles.ListItemActive.Render("❯ ")
		}
		choice := ""
		if len(item.Candidates) > 0 {
			idx := 0
			if i < len(m.choices) {
				idx = m.choices[i]
			}
			choice = m.styles.Info.Render(fmt.Sprintf("‹ %s ›", item.Candidates[idx]))
		}
		b.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, item.Description, choice))
	}

	help := fmt.Sprintf("%s choose recipe  %s submit  %s cancel",
		m.styles.HelpKey.Render("←/→"),
		m.styles.HelpKey.Render("enter"),
		m.styles.HelpKey.Render("esc"))
	b.WriteString(m.styles.Help.Render(help))

	return m.styles.Panel.Render(b.String())
}

func (m prepareModel) renderHelp() string {
	if m.resolution.Open() {
		return m.styles.Help.Render("↑/↓ item  ←/→ recipe  enter submit  esc cancel  q quit")
	}
	return m.styles.Help.Render("↑/↓ step  r run  s skip  u undo  R refresh  q quit")
}

