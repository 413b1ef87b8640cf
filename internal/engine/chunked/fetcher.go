package chunked

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/siphon-dl/siphon/internal/engine/events"
	"github.com/siphon-dl/siphon/internal/engine/types"
	"github.com/siphon-dl/siphon/internal/utils"
)

// checkpointBackoffStep is added to a chunk's local read timeout whenever a
// retry makes no progress since the prior checkpoint.
const checkpointBackoffStep = 200 * time.Millisecond

// Fetcher drives a single chunk to completion: it issues the ranged
// request, streams the response through a ThrottledReader, checkpoints on
// error, and retries with backoff up to the chunk's failover budget.
type Fetcher struct {
	Adapter       RequestAdapter
	Opts          *types.DownloadOptions
	BytesReceived *atomic.Int64
	OnProgress    func(events.ChunkProgress)
}

// Fetch drives chunk to completion, expressed as a loop rather than literal
// recursion so pathological retry storms don't grow the stack. It returns
// nil on success, ErrCancelled if ctx was cancelled, or a *FatalError once
// the chunk's retry budget is exhausted.
func (f *Fetcher) Fetch(ctx context.Context, chunk *Chunk) error {
	localTimeout := f.Opts.GetTimeout()

	for {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		if chunk.Complete() && f.backingStoreHoldsLength(chunk) {
			return nil
		}

		if chunk.Position > 0 && !f.backingStoreHoldsPosition(chunk) {
			chunk.Position = 0
		}

		err := f.attempt(ctx, chunk, localTimeout)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrCancelled) {
			return ErrCancelled
		}

		var readTimeoutErr *ReadTimeoutError
		if errors.As(err, &readTimeoutErr) {
			utils.Debug("chunk %d: read timeout, retrying without consuming failover budget", chunk.ID)
			continue
		}

		var transientErr *TransientTransportError
		if errors.As(err, &transientErr) {
			if chunk.FailoverCount >= chunk.MaxFailover {
				return &FatalError{ChunkID: chunk.ID, Cause: fmt.Errorf("retry budget (%d) exhausted: %w", chunk.MaxFailover, err)}
			}

			progressed := chunk.Position > chunk.PositionCheckpoint
			if !progressed {
				localTimeout += checkpointBackoffStep
			}
			chunk.PositionCheckpoint = chunk.Position
			chunk.FailoverCount++

			utils.Debug("chunk %d: transient error (failover %d/%d, progressed=%v): %v",
				chunk.ID, chunk.FailoverCount, chunk.MaxFailover, progressed, err)

			if sleepErr := sleepCancellable(ctx, localTimeout); sleepErr != nil {
				return ErrCancelled
			}
			continue
		}

		var fatalErr *FatalError
		if errors.As(err, &fatalErr) {
			return fatalErr
		}

		return &FatalError{ChunkID: chunk.ID, Cause: err}
	}
}

func (f *Fetcher) backingStoreHoldsLength(chunk *Chunk) bool {
	if f.Opts.GetOnTheFlyDownload() {
		return int64(len(chunk.Data)) == chunk.Length()
	}
	info, err := os.Stat(chunk.TempFile)
	return err == nil && info.Size() == chunk.Length()
}

func (f *Fetcher) backingStoreHoldsPosition(chunk *Chunk) bool {
	if f.Opts.GetOnTheFlyDownload() {
		return chunk.Data != nil
	}
	if chunk.TempFile == "" {
		return false
	}
	info, err := os.Stat(chunk.TempFile)
	return err == nil && info.Size() >= chunk.Position
}

// attempt performs exactly one ranged-request-and-drain cycle.
func (f *Fetcher) attempt(ctx context.Context, chunk *Chunk, timeout time.Duration) error {
	chunk.lastReportAt = time.Time{} // each attempt starts without a prior speed sample
	rangeStart := chunk.Start + chunk.Position
	body, err := f.Adapter.OpenRange(ctx, rangeStart, chunk.End)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return classifyOpenError(chunk.ID, err)
	}
	defer body.Close()

	throttled := NewThrottledReader(ctx, body, f.Opts.GetMaximumSpeedPerChunk(), f.Opts.GetBufferBlockSize())

	if f.Opts.GetOnTheFlyDownload() {
		return f.readInMemory(ctx, chunk, throttled, timeout)
	}
	return f.readOnDisk(ctx, chunk, throttled, timeout)
}

func (f *Fetcher) readInMemory(ctx context.Context, chunk *Chunk, r io.Reader, timeout time.Duration) error {
	if chunk.Data == nil {
		chunk.Data = make([]byte, chunk.Length())
	}

	blockSize := int64(f.Opts.GetBufferBlockSize())

	for chunk.Position < chunk.Length() {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		want := chunk.Length() - chunk.Position
		if want > blockSize {
			want = blockSize
		}

		n, err := readWithDeadline(ctx, r, chunk.Data[chunk.Position:chunk.Position+want], timeout)
		if n > 0 {
			chunk.Position += int64(n)
			f.reportProgress(chunk, int64(n))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ErrCancelled
			}
			if err == errReadDeadline {
				return &ReadTimeoutError{ChunkID: chunk.ID}
			}
			if err == io.EOF {
				if chunk.Position < chunk.Length() {
					return &FatalError{ChunkID: chunk.ID, Cause: fmt.Errorf("server closed stream early at %d/%d bytes", chunk.Position, chunk.Length())}
				}
				return nil
			}
			return classifyOpenError(chunk.ID, err)
		}
	}
	return nil
}

func (f *Fetcher) readOnDisk(ctx context.Context, chunk *Chunk, r io.Reader, timeout time.Duration) error {
	if err := chunk.allocateTempFile(f.Opts.GetTempDirectory(), f.Opts.GetTempFilesExtension()); err != nil {
		return &FatalError{ChunkID: chunk.ID, Cause: err}
	}

	file, err := os.OpenFile(chunk.TempFile, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return &FatalError{ChunkID: chunk.ID, Cause: fmt.Errorf("opening temp file for chunk %d: %w", chunk.ID, err)}
	}
	defer file.Close()

	buf := make([]byte, f.Opts.GetBufferBlockSize())

	for chunk.Position < chunk.Length() {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		want := chunk.Length() - chunk.Position
		if want > int64(len(buf)) {
			want = int64(len(buf))
		}

		n, err := readWithDeadline(ctx, r, buf[:want], timeout)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return &FatalError{ChunkID: chunk.ID, Cause: fmt.Errorf("writing temp file for chunk %d: %w", chunk.ID, werr)}
			}
			chunk.Position += int64(n)
			f.reportProgress(chunk, int64(n))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ErrCancelled
			}
			if err == errReadDeadline {
				return &ReadTimeoutError{ChunkID: chunk.ID}
			}
			if err == io.EOF {
				if chunk.Position < chunk.Length() {
					return &FatalError{ChunkID: chunk.ID, Cause: fmt.Errorf("server closed stream early at %d/%d bytes", chunk.Position, chunk.Length())}
				}
				return nil
			}
			return classifyOpenError(chunk.ID, err)
		}
	}
	return nil
}

// reportProgress increments the aggregate counter after the bytes have
// already been written to the backing store, never before, so no progress
// event can report bytes that aren't actually durable yet.
func (f *Fetcher) reportProgress(chunk *Chunk, n int64) {
	if f.BytesReceived != nil {
		f.BytesReceived.Add(n)
	}
	if f.OnProgress != nil {
		f.OnProgress(events.ChunkProgress{
			ChunkID:  chunk.ID,
			Length:   chunk.Length(),
			Position: chunk.Position,
			Speed:    chunk.instantaneousSpeed(n),
		})
	}
}

var errReadDeadline = errors.New("siphon: read deadline exceeded")

// readWithDeadline performs one Read bounded by timeout and ctx, returning
// errReadDeadline if the deadline elapses before any data (or EOF) arrives.
func readWithDeadline(ctx context.Context, r io.Reader, p []byte, timeout time.Duration) (int, error) {
	type result struct {
		n   int
		err error
	}

	done := make(chan result, 1)
	go func() {
		n, err := r.Read(p)
		done <- result{n, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.n, res.err
	case <-timer.C:
		return 0, errReadDeadline
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func sleepCancellable(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// classifyOpenError maps a transport-level error into the engine's error
// kinds. Only the retry allow-list — recoverable network conditions, EOF
// variants, and an explicitly rate-limited host — becomes
// TransientTransportError; everything else, including a server that won't
// honour Range, is Fatal immediately rather than burning the chunk's
// failover budget first.
func classifyOpenError(chunkID int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRangeNotHonoured) {
		return &FatalError{ChunkID: chunkID, Cause: err}
	}
	if errors.Is(err, ErrHostRateLimited) {
		return &TransientTransportError{Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientTransportError{Cause: err}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return &TransientTransportError{Cause: err}
	}
	return &FatalError{ChunkID: chunkID, Cause: err}
}
