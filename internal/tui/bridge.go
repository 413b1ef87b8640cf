package tui

import (
	"github.com/siphon-dl/siphon/internal/engine/events"
	"github.com/siphon-dl/siphon/internal/engine/types"
)

// StateObserver adapts the chunked engine's events.Observer callbacks into
// updates on a types.ProgressState, which this package's Model polls
// instead of consuming events directly. This mirrors the hybrid
// atomic-state-plus-polling-reporter split the engine's own ProgressState
// type is shaped for.
type StateObserver struct {
	State *types.ProgressState
}

func (o *StateObserver) OnChunkProgress(events.ChunkProgress) {
	// Per-chunk motion isn't surfaced individually by this view; the
	// aggregate OverallProgress sample below is what drives the bar.
}

func (o *StateObserver) OnOverallProgress(e events.OverallProgress) {
	o.State.BytesReceived.Store(e.BytesReceived)
}

func (o *StateObserver) OnCompleted(e events.Completed) {
	if e.Err != nil {
		o.State.SetError(e.Err)
	}
	o.State.Cancelled.Store(e.Cancelled)
	o.State.Done.Store(true)
}
