package types

import "time"

// DownloadOptions configures one download. The zero value is valid: every
// numeric, duration and string Get* accessor falls back to a package default
// when its field is unset, and a nil *DownloadOptions gets the same
// defaults. The boolean accessors differ between the two: a nil
// *DownloadOptions reports ParallelDownload and
// ClearPackageAfterDownloadCompleted as true, while a non-nil value reports
// its fields as set (false on &DownloadOptions{}).
type DownloadOptions struct {
	ChunkCount                         int
	ParallelDownload                   bool
	OnTheFlyDownload                   bool
	MaximumSpeedPerChunk               int64 // bytes/second, 0 = unlimited
	BufferBlockSize                    int
	Timeout                            time.Duration
	MaxTryAgainOnFailover              int
	TempDirectory                      string
	TempFilesExtension                 string
	ClearPackageAfterDownloadCompleted bool
	UserAgent                          string
}

func (o *DownloadOptions) GetChunkCount() int {
	if o == nil || o.ChunkCount < 1 {
		return DefaultChunkCount
	}
	return o.ChunkCount
}

func (o *DownloadOptions) GetParallelDownload() bool {
	if o == nil {
		return true
	}
	return o.ParallelDownload
}

func (o *DownloadOptions) GetOnTheFlyDownload() bool {
	if o == nil {
		return false
	}
	return o.OnTheFlyDownload
}

func (o *DownloadOptions) GetMaximumSpeedPerChunk() int64 {
	if o == nil {
		return 0
	}
	return o.MaximumSpeedPerChunk
}

func (o *DownloadOptions) GetBufferBlockSize() int {
	if o == nil || o.BufferBlockSize <= 0 {
		return DefaultBufferBlockSize
	}
	return o.BufferBlockSize
}

func (o *DownloadOptions) GetTimeout() time.Duration {
	if o == nil || o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o *DownloadOptions) GetMaxTryAgainOnFailover() int {
	if o == nil || o.MaxTryAgainOnFailover <= 0 {
		return DefaultMaxTryAgainOnFailover
	}
	return o.MaxTryAgainOnFailover
}

func (o *DownloadOptions) GetTempDirectory() string {
	if o == nil || o.TempDirectory == "" {
		return ""
	}
	return o.TempDirectory
}

func (o *DownloadOptions) GetTempFilesExtension() string {
	if o == nil || o.TempFilesExtension == "" {
		return DefaultTempFilesExtension
	}
	return o.TempFilesExtension
}

func (o *DownloadOptions) GetClearPackageAfterDownloadCompleted() bool {
	if o == nil {
		return true
	}
	return o.ClearPackageAfterDownloadCompleted
}

func (o *DownloadOptions) GetUserAgent() string {
	if o == nil || o.UserAgent == "" {
		return DefaultUserAgent
	}
	return o.UserAgent
}

// ClampChunkCount raises parts, if necessary, so that totalSize split into
// parts chunks never produces a chunk larger than MaxChunkBytes.
func ClampChunkCount(totalSize int64, parts int) int {
	if parts < 1 {
		parts = 1
	}
	minParts := int((totalSize + MaxChunkBytes - 1) / MaxChunkBytes)
	if minParts > parts {
		parts = minParts
	}
	if int64(parts) > totalSize {
		parts = int(totalSize)
	}
	if parts < 1 {
		parts = 1
	}
	return parts
}
