// Package storage persists file records and embedded chunks in a SQLite
// database under the workspace artifact directory. WAL journaling gives the
// index one concurrent writer and any number of concurrent readers; readers
// observe writes that committed before their query began.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/codelensdev/codelens/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrReadOnly is returned when a write is attempted on a read-only
	// handle.
	ErrReadOnly = errors.New("store is read-only")
)

// FileRecord is the persisted state of one indexed source file. It is
// overwritten (hash, timestamp, chunks) whenever the file changes and never
// deleted except by overwrite.
type FileRecord struct {
	ID        int64
	Path      string // Slash-separated, relative to the workspace root
	Hash      string // xxhash64 of the file content, hex-encoded
	Language  string
	SizeBytes int64
	IndexedAt time.Time
}

// EmbeddedChunk is a chunk together with its embedding vector. Every
// embedded chunk references a file record that exists and is current; when a
// file is re-indexed its prior chunks are superseded by a fresh batch.
type EmbeddedChunk struct {
	Chunk  types.Chunk
	Vector []float32
}

// Store is the consumed persistence contract. The store is the single source
// of truth: callers never hold a second copy of file or chunk state.
type Store interface {
	// FileIsCurrent reports whether the stored hash for path equals hash.
	// Unknown paths are not current.
	FileIsCurrent(ctx context.Context, path, hash string) (bool, error)

	// ListFiles returns all persisted file records ordered by path.
	ListFiles(ctx context.Context) ([]FileRecord, error)

	// FileCount returns the number of persisted file records.
	FileCount(ctx context.Context) (int, error)

	// EmbeddedChunkCount returns the number of persisted embedded chunks.
	EmbeddedChunkCount(ctx context.Context) (int, error)

	// AllEmbeddedChunks returns every persisted chunk with its vector.
	AllEmbeddedChunks(ctx context.Context) ([]EmbeddedChunk, error)

	// ChunksByFile returns the persisted chunks owned by one file.
	ChunksByFile(ctx context.Context, path string) ([]EmbeddedChunk, error)

	// PersistFile writes one file record and its batch of embedded chunks
	// atomically, superseding any prior records for the same path.
	PersistFile(ctx context.Context, file FileRecord, chunks []EmbeddedChunk) error

	// Close releases the underlying database handle.
	Close() error
}
