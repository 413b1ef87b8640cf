package chunked

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/siphon-dl/siphon/internal/engine/events"
)

// ProgressAggregator derives an overall byte count and bytes/second rate
// from per-chunk updates. Every ChunkProgress event is forwarded and is
// followed by an OverallProgress event; the overall speed in that event is
// recomputed at most once per second and otherwise repeats the last value.
type ProgressAggregator struct {
	totalSize     int64
	bytesReceived *atomic.Int64
	observer      events.Observer

	mu                     sync.Mutex
	totalBytesAtLastSample int64
	tickAtLastSample       time.Time
	downloadSpeed          float64
}

func NewProgressAggregator(totalSize int64, bytesReceived *atomic.Int64, observer events.Observer) *ProgressAggregator {
	return &ProgressAggregator{
		totalSize:        totalSize,
		bytesReceived:    bytesReceived,
		observer:         observer,
		tickAtLastSample: time.Now(),
	}
}

// OnChunkProgress forwards the event unchanged and opportunistically
// samples overall progress alongside it.
func (p *ProgressAggregator) OnChunkProgress(e events.ChunkProgress) {
	if p.observer != nil {
		p.observer.OnChunkProgress(e)
	}
	p.sample()
}

func (p *ProgressAggregator) sample() {
	received := p.bytesReceived.Load()

	p.mu.Lock()
	deltaMs := time.Since(p.tickAtLastSample).Milliseconds() + 1
	if deltaMs >= 1000 {
		p.downloadSpeed = float64(received-p.totalBytesAtLastSample) * 1000 / float64(deltaMs)
		p.totalBytesAtLastSample = received
		p.tickAtLastSample = time.Now()
	}
	speed := p.downloadSpeed
	p.mu.Unlock()

	if p.observer != nil {
		p.observer.OnOverallProgress(events.OverallProgress{
			TotalSize:     p.totalSize,
			BytesReceived: received,
			Speed:         speed,
		})
	}
}

// Completed forwards the single terminal event.
func (p *ProgressAggregator) Completed(e events.Completed) {
	if p.observer != nil {
		p.observer.OnCompleted(e)
	}
}
