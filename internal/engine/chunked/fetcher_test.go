package chunked

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/siphon-dl/siphon/internal/engine/events"
	"github.com/siphon-dl/siphon/internal/engine/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rangeServerAdapter serves a fixed byte payload over HTTP, honouring Range
// requests, for round-trip style tests of the fetcher.
type rangeServerAdapter struct {
	srv     *httptest.Server
	payload []byte
}

func newRangeServerAdapter(t *testing.T, payload []byte) *rangeServerAdapter {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "resource.bin", time.Time{}, bytes.NewReader(payload))
	}))
	t.Cleanup(srv.Close)
	return &rangeServerAdapter{srv: srv, payload: payload}
}

func (a *rangeServerAdapter) Address() string { return a.srv.URL }
func (a *rangeServerAdapter) FileSize(ctx context.Context) (int64, error) {
	return int64(len(a.payload)), nil
}
func (a *rangeServerAdapter) ContentDispositionFilename(ctx context.Context) (string, bool) {
	return "", false
}
func (a *rangeServerAdapter) FileName() string { return "resource.bin" }
func (a *rangeServerAdapter) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.srv.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes="+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, errors.New("server did not honour range request")
	}
	return resp.Body, nil
}

func TestFetcher_InMemoryRoundTrip(t *testing.T) {
	payload := make([]byte, 1024)
	for i := range payload {
		payload[i] = byte(i % 256)
	}
	adapter := newRangeServerAdapter(t, payload)

	chunk := &Chunk{ID: 0, Start: 0, End: int64(len(payload) - 1), MaxFailover: 3}
	opts := &types.DownloadOptions{OnTheFlyDownload: true, BufferBlockSize: 64}
	var received atomic.Int64
	f := &Fetcher{Adapter: adapter, Opts: opts, BytesReceived: &received}

	err := f.Fetch(context.Background(), chunk)
	require.NoError(t, err)
	assert.Equal(t, payload, chunk.Data)
	assert.Equal(t, int64(len(payload)), received.Load())
}

func TestFetcher_ReportsPerChunkInstantaneousSpeed(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 4096)
	adapter := newRangeServerAdapter(t, payload)

	chunk := &Chunk{ID: 0, Start: 0, End: int64(len(payload) - 1), MaxFailover: 3}
	opts := &types.DownloadOptions{OnTheFlyDownload: true, BufferBlockSize: 256}
	var received atomic.Int64
	var events []events.ChunkProgress
	f := &Fetcher{
		Adapter:       adapter,
		Opts:          opts,
		BytesReceived: &received,
		OnProgress:    func(p events.ChunkProgress) { events = append(events, p) },
	}

	err := f.Fetch(context.Background(), chunk)
	require.NoError(t, err)
	require.NotEmpty(t, events)

	// The very first report for a chunk has no prior sample, so it's 0;
	// every report after that should carry a real rate.
	assert.Equal(t, float64(0), events[0].Speed)
	sawNonZero := false
	for _, e := range events[1:] {
		if e.Speed > 0 {
			sawNonZero = true
			break
		}
	}
	assert.True(t, sawNonZero, "expected at least one chunk progress event with a nonzero instantaneous speed")
}

func TestFetcher_OnDiskRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 4096)
	adapter := newRangeServerAdapter(t, payload)

	dir := t.TempDir()
	chunk := &Chunk{ID: 0, Start: 0, End: int64(len(payload) - 1), MaxFailover: 3}
	opts := &types.DownloadOptions{OnTheFlyDownload: false, BufferBlockSize: 256, TempDirectory: dir, TempFilesExtension: ".part"}
	var received atomic.Int64
	f := &Fetcher{Adapter: adapter, Opts: opts, BytesReceived: &received}

	err := f.Fetch(context.Background(), chunk)
	require.NoError(t, err)

	data, err := os.ReadFile(chunk.TempFile)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.True(t, filepath.Dir(chunk.TempFile) == dir)
}

// flakyAdapter fails the first failCount OpenRange calls with a transient
// network error after writing partialBytes, then serves the remainder.
type flakyAdapter struct {
	payload      []byte
	failCount    int
	partialBytes int
	attempts     atomic.Int32
}

func (a *flakyAdapter) Address() string                                   { return "flaky://resource" }
func (a *flakyAdapter) FileSize(ctx context.Context) (int64, error)       { return int64(len(a.payload)), nil }
func (a *flakyAdapter) ContentDispositionFilename(context.Context) (string, bool) { return "", false }
func (a *flakyAdapter) FileName() string                                  { return "resource.bin" }

func (a *flakyAdapter) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	n := a.attempts.Add(1)
	body := a.payload[start : end+1]
	if int(n) <= a.failCount {
		limit := a.partialBytes
		if limit > len(body) {
			limit = len(body)
		}
		return &flakyBody{r: bytes.NewReader(body[:limit])}, nil
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

// flakyBody returns a net.Error once its underlying reader is drained,
// simulating a connection reset mid-stream.
type flakyBody struct {
	r *bytes.Reader
}

func (b *flakyBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		return n, &net.OpError{Op: "read", Err: errors.New("connection reset by peer")}
	}
	return n, err
}

func (b *flakyBody) Close() error { return nil }

func TestFetcher_TransientRecovery(t *testing.T) {
	payload := bytes.Repeat([]byte{0x42}, 1000)
	adapter := &flakyAdapter{payload: payload, failCount: 2, partialBytes: 100}

	chunk := &Chunk{ID: 2, Start: 0, End: int64(len(payload) - 1), MaxFailover: 3}
	opts := &types.DownloadOptions{OnTheFlyDownload: true, BufferBlockSize: 64, Timeout: 20 * time.Millisecond}
	var received atomic.Int64
	f := &Fetcher{Adapter: adapter, Opts: opts, BytesReceived: &received}

	err := f.Fetch(context.Background(), chunk)
	require.NoError(t, err)
	assert.Equal(t, payload, chunk.Data)
	assert.Equal(t, 2, chunk.FailoverCount)
}

func TestFetcher_RetryBudgetExhausted(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 500)
	adapter := &flakyAdapter{payload: payload, failCount: 10, partialBytes: 50}

	chunk := &Chunk{ID: 0, Start: 0, End: int64(len(payload) - 1), MaxFailover: 3}
	opts := &types.DownloadOptions{OnTheFlyDownload: true, BufferBlockSize: 32, Timeout: 5 * time.Millisecond}
	var received atomic.Int64
	f := &Fetcher{Adapter: adapter, Opts: opts, BytesReceived: &received}

	err := f.Fetch(context.Background(), chunk)
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 3, chunk.FailoverCount)
}

// stallAdapter returns a reader that never produces data until ctx is
// cancelled, for testing cancellation promptness.
type stallAdapter struct {
	size int64
}

func (a *stallAdapter) Address() string                             { return "stall://resource" }
func (a *stallAdapter) FileSize(context.Context) (int64, error)     { return a.size, nil }
func (a *stallAdapter) ContentDispositionFilename(context.Context) (string, bool) { return "", false }
func (a *stallAdapter) FileName() string                            { return "stall.bin" }
func (a *stallAdapter) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	return &blockingBody{ctx: ctx}, nil
}

type blockingBody struct{ ctx context.Context }

func (b *blockingBody) Read(p []byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}
func (b *blockingBody) Close() error { return nil }

// rangeRefusingAdapter always refuses range requests, the way a server with
// no Range support would.
type rangeRefusingAdapter struct{ size int64 }

func (a *rangeRefusingAdapter) Address() string                         { return "norange://resource" }
func (a *rangeRefusingAdapter) FileSize(context.Context) (int64, error) { return a.size, nil }
func (a *rangeRefusingAdapter) ContentDispositionFilename(context.Context) (string, bool) {
	return "", false
}
func (a *rangeRefusingAdapter) FileName() string { return "resource.bin" }
func (a *rangeRefusingAdapter) OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	return nil, fmt.Errorf("server did not honour range request (status %d): %w", http.StatusOK, ErrRangeNotHonoured)
}

func TestFetcher_RangeNotHonouredIsFatalImmediately(t *testing.T) {
	adapter := &rangeRefusingAdapter{size: 1024}
	chunk := &Chunk{ID: 4, Start: 0, End: 1023, MaxFailover: 3}
	opts := &types.DownloadOptions{OnTheFlyDownload: true, BufferBlockSize: 64, Timeout: time.Second}
	var received atomic.Int64
	f := &Fetcher{Adapter: adapter, Opts: opts, BytesReceived: &received}

	err := f.Fetch(context.Background(), chunk)
	require.Error(t, err)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, ErrRangeNotHonoured)
	assert.Equal(t, 0, chunk.FailoverCount, "a non-retryable error must not consume the failover budget")
}

func TestFetcher_CancellationPromptness(t *testing.T) {
	adapter := &stallAdapter{size: 1024}
	chunk := &Chunk{ID: 0, Start: 0, End: 1023, MaxFailover: 3}
	opts := &types.DownloadOptions{OnTheFlyDownload: true, BufferBlockSize: 64, Timeout: 5 * time.Second}
	var received atomic.Int64
	f := &Fetcher{Adapter: adapter, Opts: opts, BytesReceived: &received}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Fetch(ctx, chunk) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation was not honoured promptly")
	}
}
