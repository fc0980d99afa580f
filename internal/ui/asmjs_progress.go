package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// AsmjsFuncEvent reports that one function's body has finished being
// lowered by the Expression Lowerer / Control-Flow Reconstructor, for the
// asm.js backend's own progress display — a sibling of the Surge
// compiler's buildpipeline progress model (progress.go), driven by
// function names instead of pipeline stages.
type AsmjsFuncEvent struct {
	Name  string
	Index int
	Total int
	Err   error
}

type asmjsDoneMsg struct{}
type asmjsEventMsg AsmjsFuncEvent

var asmjsNameColumn = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
var asmjsErrColumn = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)

type asmjsProgressModel struct {
	events  <-chan AsmjsFuncEvent
	spinner spinner.Model
	prog    progress.Model
	current string
	failed  string
	total   int
	done    bool
}

// NewAsmjsProgressModel returns a Bubble Tea model reporting per-function
// asm.js emission progress, for a terminal-attached CLI invocation
// (cmd/asmjsgen falls back to plain line output otherwise).
func NewAsmjsProgressModel(total int, events <-chan AsmjsFuncEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 60

	return &asmjsProgressModel{events: events, spinner: sp, prog: prog, total: total}
}

func (m *asmjsProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *asmjsProgressModel) listen() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return asmjsDoneMsg{}
		}
		return asmjsEventMsg(ev)
	}
}

func (m *asmjsProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case asmjsEventMsg:
		m.current = msg.Name
		if msg.Err != nil {
			m.failed = msg.Name
		}
		var cmd tea.Cmd
		if m.total > 0 {
			cmd = m.prog.SetPercent(float64(msg.Index) / float64(m.total))
		}
		return m, tea.Batch(cmd, m.listen())
	case asmjsDoneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		newModel, cmd := m.prog.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			m.prog = p
		}
		return m, cmd
	}
	return m, nil
}

func (m *asmjsProgressModel) View() string {
	if m.done {
		return "asm.js emission complete\n"
	}
	name := runewidth.Truncate(m.current, 40, "…")
	name = runewidth.FillRight(name, 40)
	col := asmjsNameColumn.Render(name)
	if m.failed != "" {
		col = asmjsErrColumn.Render(name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", m.spinner.View(), col, m.prog.View())
	return b.String()
}
