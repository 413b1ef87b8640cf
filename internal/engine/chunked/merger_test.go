package chunked

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siphon-dl/siphon/internal/engine/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_InMemory(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	chunks := []*Chunk{
		{ID: 1, Start: 4, End: 7, Data: []byte("WXYZ")},
		{ID: 0, Start: 0, End: 3, Data: []byte("ABCD")},
	}
	opts := &types.DownloadOptions{OnTheFlyDownload: true}

	require.NoError(t, Merge(dest, chunks, opts))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ABCDWXYZ", string(data))
}

func TestMerge_OnDisk(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	temp0 := filepath.Join(dir, "a.part")
	temp1 := filepath.Join(dir, "b.part")
	require.NoError(t, os.WriteFile(temp0, []byte("hello "), 0644))
	require.NoError(t, os.WriteFile(temp1, []byte("world"), 0644))

	chunks := []*Chunk{
		{ID: 1, Start: 6, End: 10, TempFile: temp1},
		{ID: 0, Start: 0, End: 5, TempFile: temp0},
	}
	opts := &types.DownloadOptions{OnTheFlyDownload: false}

	require.NoError(t, Merge(dest, chunks, opts))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestMerge_FailsIfDestinationExists(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0644))

	opts := &types.DownloadOptions{OnTheFlyDownload: true}
	err := Merge(dest, []*Chunk{{ID: 0, Start: 0, End: 0, Data: []byte("x")}}, opts)
	assert.Error(t, err)
}

func TestCleanupTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk.part")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))

	CleanupTempFiles([]*Chunk{{ID: 0, TempFile: path}})

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
