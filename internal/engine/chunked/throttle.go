package chunked

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// ThrottledReader wraps an io.Reader and bounds its read rate to at most
// limitBytesPerSecond, sleeping (via the token bucket's wait) just long
// enough to stay within that bound. A zero limit bypasses throttling
// entirely — Read becomes a direct pass-through.
type ThrottledReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

// NewThrottledReader constructs a ThrottledReader. bufferBlockSize sizes the
// token bucket's burst so that one full read can be admitted without
// artificially fragmenting it.
func NewThrottledReader(ctx context.Context, r io.Reader, limitBytesPerSecond int64, bufferBlockSize int) *ThrottledReader {
	if limitBytesPerSecond <= 0 {
		return &ThrottledReader{r: r, ctx: ctx}
	}
	burst := bufferBlockSize
	if burst < 1 {
		burst = 1
	}
	return &ThrottledReader{
		r:       r,
		limiter: rate.NewLimiter(rate.Limit(limitBytesPerSecond), burst),
		ctx:     ctx,
	}
}

// Read satisfies io.Reader. When throttling is active, it reads first and
// then waits for the bucket to admit the bytes just read, so no data is
// ever discarded to satisfy the rate limit — only delayed.
func (t *ThrottledReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n <= 0 || t.limiter == nil {
		return n, err
	}

	if waitErr := t.waitN(n); waitErr != nil {
		return n, waitErr
	}
	return n, err
}

func (t *ThrottledReader) waitN(n int) error {
	burst := t.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := t.limiter.WaitN(t.ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
