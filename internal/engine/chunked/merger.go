package chunked

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/siphon-dl/siphon/internal/engine/types"
)

// Merge appends chunks, in start-offset order, into destination. Because
// chunks tile the resource contiguously with no gaps or overlap, a strict
// append suffices; no seeking is required.
func Merge(destination string, chunks []*Chunk, opts *types.DownloadOptions) error {
	sorted := make([]*Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("opening destination %q: %w", destination, err)
	}
	defer out.Close()

	onTheFly := opts.GetOnTheFlyDownload()

	for _, c := range sorted {
		if onTheFly {
			if _, err := out.Write(c.Data[:c.Length()]); err != nil {
				return fmt.Errorf("appending chunk %d: %w", c.ID, err)
			}
			continue
		}

		if err := appendTempFile(out, c.TempFile); err != nil {
			return fmt.Errorf("appending chunk %d: %w", c.ID, err)
		}
	}
	return nil
}

func appendTempFile(out *os.File, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(out, in)
	return err
}

// CleanupTempFiles removes every chunk's on-disk backing file. Callers skip
// this on cancellation, per the orchestrator's cleanup policy.
func CleanupTempFiles(chunks []*Chunk) {
	for _, c := range chunks {
		if c.TempFile != "" {
			os.Remove(c.TempFile)
		}
	}
}
