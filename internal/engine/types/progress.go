package types

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ProgressState is the shared, concurrency-safe state a running download
// exposes to observers (the TUI poller, a headless progress printer).
type ProgressState struct {
	ID            string
	BytesReceived atomic.Int64
	TotalSize     int64
	StartTime     time.Time
	ActiveChunks  atomic.Int32
	Done          atomic.Bool
	Cancelled     atomic.Bool
	Error         atomic.Pointer[error]
	CancelFunc    context.CancelFunc

	mu              sync.Mutex // guards TotalSize, StartTime, downloadSpeed, lastSampleTick
	lastSampleBytes int64
	lastSampleTick  time.Time
	downloadSpeed   float64
}

func NewProgressState(id string, totalSize int64) *ProgressState {
	return &ProgressState{
		ID:             id,
		TotalSize:      totalSize,
		StartTime:      time.Now(),
		lastSampleTick: time.Now(),
	}
}

func (ps *ProgressState) SetError(err error) {
	ps.Error.Store(&err)
}

func (ps *ProgressState) GetError() error {
	if e := ps.Error.Load(); e != nil {
		return *e
	}
	return nil
}

// Sample reports current progress, updating the rolling speed estimate at
// most once per second (see ProgressAggregator in internal/engine/chunked).
func (ps *ProgressState) Sample() (downloaded, total int64, speed float64, elapsed time.Duration) {
	downloaded = ps.BytesReceived.Load()

	ps.mu.Lock()
	defer ps.mu.Unlock()

	total = ps.TotalSize
	elapsed = time.Since(ps.StartTime)

	deltaMs := time.Since(ps.lastSampleTick).Milliseconds() + 1
	if deltaMs >= 1000 {
		ps.downloadSpeed = float64(downloaded-ps.lastSampleBytes) * 1000 / float64(deltaMs)
		ps.lastSampleBytes = downloaded
		ps.lastSampleTick = time.Now()
	}
	speed = ps.downloadSpeed
	return
}
