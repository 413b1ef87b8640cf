package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/siphon-dl/siphon/internal/engine/types"
)

// pollInterval is how often the view samples ProgressState, independent of
// how often the engine itself emits per-chunk events underneath.
const pollInterval = 150 * time.Millisecond

type tickMsg struct{}

// pollCmd schedules the next sample of state. The model re-issues this
// after every tick until the download is Done, at which point it quits
// instead of scheduling another poll.
func pollCmd(state *types.ProgressState) tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
