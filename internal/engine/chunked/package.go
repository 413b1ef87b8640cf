package chunked

import (
	"sync/atomic"

	"github.com/siphon-dl/siphon/internal/engine/types"
)

// Package is the aggregate state of one download: the resource's address,
// destination path, total size, its chunk plan, the running byte counter,
// and the option set it was created with. It is created fresh for every
// DownloadFileAsync-style call and discarded (or cleared) on completion.
type Package struct {
	Address       string
	Destination   string
	TotalSize     int64
	Chunks        []*Chunk
	BytesReceived atomic.Int64
	Opts          *types.DownloadOptions
}
