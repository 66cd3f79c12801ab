package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelensdev/codelens/pkg/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenReadWrite(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testChunk(path, name, content string, vector []float32) EmbeddedChunk {
	return EmbeddedChunk{
		Chunk: types.Chunk{
			FilePath:  path,
			Name:      name,
			Kind:      types.KindFunction,
			StartLine: 1,
			EndLine:   3,
			EndByte:   len(content),
			Content:   content,
		},
		Vector: vector,
	}
}

func TestOpenReadWrite_AppliesMigrations(t *testing.T) {
	store := setupTestStore(t)

	n, err := store.FileCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, store.ReadOnly())
}

func TestOpenReadOnly_MissingDatabase(t *testing.T) {
	_, err := OpenReadOnly(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}

func TestPersistFile_RoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	file := FileRecord{Path: "pkg/a.go", Hash: "abc123", Language: "go", SizeBytes: 42}
	chunks := []EmbeddedChunk{
		testChunk("pkg/a.go", "Foo", "func Foo() {}", []float32{1, 0, 0}),
		testChunk("pkg/a.go", "Bar", "func Bar() {}", []float32{0, 1, 0}),
	}
	require.NoError(t, store.PersistFile(ctx, file, chunks))

	files, err := store.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "pkg/a.go", files[0].Path)
	assert.Equal(t, "abc123", files[0].Hash)
	assert.Equal(t, "go", files[0].Language)
	assert.False(t, files[0].IndexedAt.IsZero())

	got, err := store.AllEmbeddedChunks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Foo", got[0].Chunk.Name)
	assert.Equal(t, types.KindFunction, got[0].Chunk.Kind)
	assert.Equal(t, []float32{1, 0, 0}, got[0].Vector)
}

func TestPersistFile_SupersedesPriorChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	file := FileRecord{Path: "a.go", Hash: "v1", Language: "go"}
	require.NoError(t, store.PersistFile(ctx, file, []EmbeddedChunk{
		testChunk("a.go", "Old1", "x", []float32{1}),
		testChunk("a.go", "Old2", "y", []float32{2}),
		testChunk("a.go", "Old3", "z", []float32{3}),
	}))

	file.Hash = "v2"
	require.NoError(t, store.PersistFile(ctx, file, []EmbeddedChunk{
		testChunk("a.go", "New", "w", []float32{4}),
	}))

	chunks, err := store.ChunksByFile(ctx, "a.go")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "New", chunks[0].Chunk.Name)

	n, err := store.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	current, err := store.FileIsCurrent(ctx, "a.go", "v2")
	require.NoError(t, err)
	assert.True(t, current)
}

func TestFileIsCurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	current, err := store.FileIsCurrent(ctx, "unknown.go", "h")
	require.NoError(t, err)
	assert.False(t, current, "unknown paths are never current")

	require.NoError(t, store.PersistFile(ctx, FileRecord{Path: "a.go", Hash: "h1"}, nil))

	current, err = store.FileIsCurrent(ctx, "a.go", "h1")
	require.NoError(t, err)
	assert.True(t, current)

	current, err = store.FileIsCurrent(ctx, "a.go", "h2")
	require.NoError(t, err)
	assert.False(t, current)
}

func TestEmbeddedChunkCount(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, err := store.EmbeddedChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, store.PersistFile(ctx, FileRecord{Path: "a.go", Hash: "h"}, []EmbeddedChunk{
		testChunk("a.go", "F", "f", []float32{1, 2}),
	}))

	n, err = store.EmbeddedChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReadOnlyHandle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	rw, err := OpenReadWrite(dbPath)
	require.NoError(t, err)
	require.NoError(t, rw.PersistFile(ctx, FileRecord{Path: "a.go", Hash: "h"}, []EmbeddedChunk{
		testChunk("a.go", "F", "f", []float32{1}),
	}))

	ro, err := OpenReadOnly(dbPath)
	require.NoError(t, err)
	defer ro.Close()

	assert.True(t, ro.ReadOnly())
	require.NoError(t, ro.Probe(ctx))

	// Reads see committed writes.
	files, err := ro.ListFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	// Writes are refused before touching the database.
	err = ro.PersistFile(ctx, FileRecord{Path: "b.go", Hash: "h"}, nil)
	assert.ErrorIs(t, err, ErrReadOnly)

	require.NoError(t, rw.Close())
}

func TestReadOnly_ObservesLaterCommits(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	rw, err := OpenReadWrite(dbPath)
	require.NoError(t, err)
	defer rw.Close()

	ro, err := OpenReadOnly(dbPath)
	require.NoError(t, err)
	defer ro.Close()

	n, err := ro.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, rw.PersistFile(ctx, FileRecord{Path: "a.go", Hash: "h"}, nil))

	n, err = ro.FileCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "reader observes writes committed before its query began")
}
