package chunked

// PlanChunks deterministically partitions [0, totalSize) into parts
// contiguous, non-overlapping chunks sorted by Start. The last chunk
// absorbs whatever remainder integer division leaves behind.
//
// Callers are expected to have already run totalSize/parts through
// types.ClampChunkCount so no chunk here exceeds the 2GiB-1 bound; PlanChunks
// itself does not re-check that bound, since it is a pure tiling function of
// its inputs (Testable Property 3: determinism).
func PlanChunks(totalSize int64, parts int, maxFailover int) []*Chunk {
	if parts < 1 {
		parts = 1
	}

	chunkSize := totalSize / int64(parts)
	if chunkSize < 1 {
		chunkSize = 1
		parts = int(totalSize)
		if parts < 1 {
			parts = 1
		}
	}

	chunks := make([]*Chunk, 0, parts)
	for i := 0; i < parts; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize - 1
		if i == parts-1 {
			end = totalSize - 1
		}
		chunks = append(chunks, &Chunk{
			ID:          i,
			Start:       start,
			End:         end,
			MaxFailover: maxFailover,
		})
	}
	return chunks
}
