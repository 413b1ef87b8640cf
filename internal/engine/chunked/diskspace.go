package chunked

import (
	"fmt"
	"path/filepath"
	"syscall"
)

// availableBytes reports free space on the filesystem backing path's
// directory. No third-party library in the corpus covers portable
// disk-space querying, so this uses the stdlib syscall interface directly
// (see DESIGN.md).
func availableBytes(path string) (int64, error) {
	dir := filepath.Dir(path)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %q: %w", dir, err)
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}

// statDevice returns the filesystem device ID backing path, so two paths can
// be compared for "same drive" without relying on filepath string equality
// (relevant when the temp directory and destination folder differ but sit
// on the same mount).
func statDevice(path string) (uint64, error) {
	var stat syscall.Stat_t
	if err := syscall.Stat(path, &stat); err != nil {
		return 0, fmt.Errorf("stat %q: %w", path, err)
	}
	return uint64(stat.Dev), nil
}

// checkDiskSpace verifies the drive backing path has at least needed bytes
// free, returning an *InsufficientDiskSpaceError naming the drive if not.
func checkDiskSpace(path string, needed int64) error {
	available, err := availableBytes(path)
	if err != nil {
		return nil // best-effort: an unreadable filesystem shouldn't block a download
	}
	if available < needed {
		return &InsufficientDiskSpaceError{Drive: filepath.Dir(path), Needed: needed, Available: available}
	}
	return nil
}
