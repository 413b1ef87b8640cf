package chunked

import (
	"context"
	"io"
)

// RequestAdapter is the chunked engine's sole external dependency: it turns
// a resource address into size/filename metadata and ranged byte streams.
// The engine treats the concrete transport as opaque; internal/engine
// supplies the real HTTP-backed implementation.
type RequestAdapter interface {
	// Address returns the absolute URL this adapter fetches.
	Address() string

	// FileSize returns the resource's total size in bytes, probing the
	// server if it hasn't already. Returns 0 if the size cannot be
	// determined.
	FileSize(ctx context.Context) (int64, error)

	// ContentDispositionFilename returns the filename suggested by the
	// server's Content-Disposition header, if any.
	ContentDispositionFilename(ctx context.Context) (string, bool)

	// FileName returns a URL-derived fallback filename (last path segment).
	FileName() string

	// OpenRange issues a ranged request for [start, end] (both inclusive)
	// and returns the response body stream. Implementations must honour
	// Range: bytes=start-end; a server that ignores it is a fatal error.
	OpenRange(ctx context.Context, start, end int64) (io.ReadCloser, error)
}
