package chunked

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by any operation that observed cancellation
// before or during its work. The orchestrator tests for it with errors.Is
// rather than inspecting a message.
var ErrCancelled = errors.New("siphon: download cancelled")

// InvalidResourceError means the resource's size could not be determined,
// or was reported as zero or negative.
type InvalidResourceError struct {
	URL    string
	Reason string
}

func (e *InvalidResourceError) Error() string {
	return fmt.Sprintf("siphon: invalid resource %q: %s", e.URL, e.Reason)
}

// InsufficientDiskSpaceError means the destination or temp-file drive does
// not have enough free space to hold the resource.
type InsufficientDiskSpaceError struct {
	Drive     string
	Needed    int64
	Available int64
}

func (e *InsufficientDiskSpaceError) Error() string {
	return fmt.Sprintf("siphon: insufficient disk space on %q: need %d bytes, have %d", e.Drive, e.Needed, e.Available)
}

// TransientTransportError wraps a recoverable transport-level failure
// (connection reset, TLS hiccup, refused mid-stream). The fetcher retries
// these up to the chunk's failover budget.
type TransientTransportError struct {
	Cause error
}

func (e *TransientTransportError) Error() string {
	return fmt.Sprintf("siphon: transient transport error: %v", e.Cause)
}

func (e *TransientTransportError) Unwrap() error { return e.Cause }

// ErrRangeNotHonoured is wrapped by a RequestAdapter when a server responds
// to a ranged request with anything other than 206 Partial Content. It is
// not in the retry allow-list: a server that can't do range requests won't
// start doing them on the next attempt.
var ErrRangeNotHonoured = errors.New("siphon: server did not honour range request")

// ErrHostRateLimited is wrapped by a RequestAdapter when a host responds
// 429. The per-host rate limiter already backs the next attempt off before
// it's issued, so this is retried like any other transient failure rather
// than treated as a permanent one.
var ErrHostRateLimited = errors.New("siphon: host rate limited")

// ReadTimeoutError means a single read exceeded its per-read deadline. It is
// retried without consuming the chunk's failover budget.
type ReadTimeoutError struct {
	ChunkID int
}

func (e *ReadTimeoutError) Error() string {
	return fmt.Sprintf("siphon: chunk %d read timeout", e.ChunkID)
}

// FatalError wraps any error a fetcher gives up on: an exhausted retry
// budget, or a failure outside the transient-error allow-list.
type FatalError struct {
	ChunkID int
	Cause   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("siphon: chunk %d failed permanently: %v", e.ChunkID, e.Cause)
}

func (e *FatalError) Unwrap() error { return e.Cause }
