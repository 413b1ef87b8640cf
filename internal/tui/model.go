// Package tui is a minimal bubbletea progress view for one foreground
// download: a single progress bar, speed, and elapsed time, driven by polling an
// engine/types.ProgressState rather than by threading engine events
// directly into tea.Msg values.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/siphon-dl/siphon/internal/engine/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// Model is the bubbletea model for one download's progress view.
type Model struct {
	state *types.ProgressState

	Filename string

	downloaded int64
	total      int64
	speed      float64
	elapsed    time.Duration

	done      bool
	cancelled bool
	err       error

	bar      progress.Model
	quitting bool
}

// New builds a progress view that polls state for updates. Filename
// may be empty if it isn't known yet (e.g. the probe hasn't returned).
func New(state *types.ProgressState, filename string) Model {
	return Model{
		state:    state,
		Filename: filename,
		total:    state.TotalSize,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m Model) Init() tea.Cmd {
	return pollCmd(m.state)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.state.CancelFunc != nil {
				m.state.CancelFunc()
			}
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		width := msg.Width - 12
		if width > 60 {
			width = 60
		}
		if width > 0 {
			m.bar.Width = width
		}

	case tickMsg:
		downloaded, total, speed, elapsed := m.state.Sample()
		m.downloaded = downloaded
		m.total = total
		m.speed = speed
		m.elapsed = elapsed

		if m.state.Done.Load() {
			m.done = true
			m.cancelled = m.state.Cancelled.Load()
			m.err = m.state.GetError()
			return m, tea.Quit
		}
		return m, pollCmd(m.state)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var out string
	out += titleStyle.Render("siphon") + " " + dimStyle.Render(m.Filename) + "\n\n"

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.downloaded) / float64(m.total)
	}
	out += m.bar.ViewAs(percent) + "\n\n"

	out += dimStyle.Render(formatStats(m.downloaded, m.total, m.speed, m.elapsed)) + "\n"

	switch {
	case m.cancelled:
		out += errorStyle.Render("cancelled") + "\n"
	case m.err != nil:
		out += errorStyle.Render("error: "+m.err.Error()) + "\n"
	case m.done:
		out += okStyle.Render("done") + "\n"
	default:
		out += dimStyle.Render("press q to cancel") + "\n"
	}

	return out
}
