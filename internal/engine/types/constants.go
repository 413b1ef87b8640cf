package types

import "time"

// Byte-size units.
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// MaxChunkBytes is the largest byte span a single chunk may cover. A chunk
// straddling this bound cannot be expressed as a single Content-Range value
// some servers treat as a 32-bit signed quantity, so the planner clamps the
// chunk count upward rather than risk it.
const MaxChunkBytes = (1 << 31) - 1

// Defaults for DownloadOptions fields left at their zero value.
const (
	DefaultChunkCount            = 4
	DefaultBufferBlockSize       = 32 * KB
	DefaultTimeout               = 10 * time.Second
	DefaultMaxTryAgainOnFailover = 5
	DefaultTempFilesExtension    = ".part"
	DefaultUserAgent             = "siphon/1.0"
)

// HTTP transport tuning, applied once by engine.InitTransport.
const (
	PerHostMax                   = 16
	DefaultMaxIdleConns          = 64
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 15 * time.Second
	DefaultExpectContinueTimeout = 1 * time.Second
	DialTimeout                  = 10 * time.Second
	KeepAliveDuration            = 30 * time.Second
	ProbeTimeout                 = 15 * time.Second
)

// ProgressChannelBuffer is a buffer size for a channel carrying progress
// events to an asynchronous consumer. The orchestrator delivers events by
// direct Observer callbacks and does not use it.
const ProgressChannelBuffer = 64
