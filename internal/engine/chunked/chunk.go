package chunked

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Chunk is one contiguous, closed byte window [Start, End] (both
// inclusive) of the resource being downloaded. A Chunk is owned exclusively
// by one fetcher goroutine for the duration of a fetch attempt; no other
// goroutine may read or write Position, Data, or TempFile while that fetch
// is in flight.
type Chunk struct {
	ID    int
	Start int64
	End   int64

	// Position is how many bytes have been written into this chunk so far.
	Position int64

	// Data holds the in-memory backend's buffer, lazily allocated to Length
	// on first write. Nil when the on-disk backend is in use.
	Data []byte

	// TempFile is the on-disk backend's backing file path. Empty when the
	// in-memory backend is in use.
	TempFile string

	FailoverCount      int
	MaxFailover        int
	PositionCheckpoint int64

	// lastReportAt is when this chunk last reported progress, used to turn
	// a single read into an instantaneous bytes/second rate. Touched only by
	// the owning fetcher goroutine, same as Position.
	lastReportAt time.Time
}

// instantaneousSpeed returns bytes/second for n bytes just read, based on
// elapsed time since this chunk's previous report. The first report after a
// chunk starts (or restarts on failover) has no prior sample to compare
// against, so it reports 0 rather than a misleading spike.
func (c *Chunk) instantaneousSpeed(n int64) float64 {
	now := time.Now()
	defer func() { c.lastReportAt = now }()

	if c.lastReportAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(c.lastReportAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed
}

// Length returns the chunk's total byte span.
func (c *Chunk) Length() int64 {
	return c.End - c.Start + 1
}

// Complete reports whether the chunk has received every byte of its range.
func (c *Chunk) Complete() bool {
	return c.Position >= c.Length()
}

// allocateTempFile assigns the chunk a fresh temp-file path, if it doesn't
// already have one, and creates the (empty) file.
func (c *Chunk) allocateTempFile(dir, ext string) error {
	if c.TempFile != "" {
		return nil
	}
	name := fmt.Sprintf("%s%s", uuidHex(), ext)
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("allocating temp file for chunk %d: %w", c.ID, err)
	}
	f.Close()
	c.TempFile = path
	return nil
}

func uuidHex() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
