package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db       *sql.DB
	readOnly bool
}

// OpenReadWrite opens (creating if absent) the database at dbPath with WAL
// journaling and applies pending migrations. Exactly one process may hold a
// read-write handle per workspace; the election lock enforces that.
func OpenReadWrite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// OpenReadOnly opens an existing database at dbPath without write access.
// It fails if the database file does not exist yet; readers poll until the
// leader has created and initialized it.
func OpenReadOnly(dbPath string) (*SQLiteStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("stat database: %w", err)
	}

	db, err := sql.Open(DriverName, "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open database read-only: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, readOnly: true}, nil
}

// Probe checks that the schema is queryable. Readers call this with backoff
// until the leader's migrations have committed.
func (s *SQLiteStore) Probe(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return fmt.Errorf("probe schema: %w", err)
	}
	return nil
}

// ReadOnly reports whether this handle was opened without write access.
func (s *SQLiteStore) ReadOnly() bool {
	return s.readOnly
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FileIsCurrent(ctx context.Context, path, hash string) (bool, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM files WHERE path = ?`, path).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query file hash: %w", err)
	}
	return stored == hash, nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, hash, language, size_bytes, indexed_at FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &f.Language, &f.SizeBytes, &f.IndexedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *SQLiteStore) FileCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) EmbeddedChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

const chunkColumns = `c.id, f.path, c.name, c.kind, c.start_line, c.end_line,
	c.start_byte, c.end_byte, c.content, c.embedding`

func (s *SQLiteStore) AllEmbeddedChunks(ctx context.Context) ([]EmbeddedChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks c JOIN files f ON c.file_id = f.id ORDER BY f.path, c.start_line`)
	if err != nil {
		return nil, fmt.Errorf("list embedded chunks: %w", err)
	}
	defer rows.Close()
	return scanEmbeddedChunks(rows)
}

func (s *SQLiteStore) ChunksByFile(ctx context.Context, path string) ([]EmbeddedChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks c JOIN files f ON c.file_id = f.id WHERE f.path = ? ORDER BY c.start_line`,
		path)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", path, err)
	}
	defer rows.Close()
	return scanEmbeddedChunks(rows)
}

func scanEmbeddedChunks(rows *sql.Rows) ([]EmbeddedChunk, error) {
	var chunks []EmbeddedChunk
	for rows.Next() {
		var ec EmbeddedChunk
		var blob []byte
		if err := rows.Scan(&ec.Chunk.ID, &ec.Chunk.FilePath, &ec.Chunk.Name,
			(*string)(&ec.Chunk.Kind), &ec.Chunk.StartLine, &ec.Chunk.EndLine,
			&ec.Chunk.StartByte, &ec.Chunk.EndByte, &ec.Chunk.Content, &blob); err != nil {
			return nil, err
		}
		ec.Vector = DeserializeVector(blob)
		chunks = append(chunks, ec)
	}
	return chunks, rows.Err()
}

// PersistFile writes one file record and its chunk batch in a single
// transaction, replacing any prior chunks for the path. This per-file
// atomicity is what readers rely on mid-scan: they may observe partial
// progress across files, never a half-written file.
func (s *SQLiteStore) PersistFile(ctx context.Context, file FileRecord, chunks []EmbeddedChunk) error {
	if s.readOnly {
		return ErrReadOnly
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var fileID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO files (path, hash, language, size_bytes, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			language = excluded.language,
			size_bytes = excluded.size_bytes,
			indexed_at = excluded.indexed_at
		RETURNING id`,
		file.Path, file.Hash, file.Language, file.SizeBytes, now).Scan(&fileID)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", file.Path, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete prior chunks for %s: %w", file.Path, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (file_id, name, kind, start_line, end_line, start_byte, end_byte, content, embedding, dimension)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, ec := range chunks {
		c := ec.Chunk
		if _, err := stmt.ExecContext(ctx, fileID, c.Name, string(c.Kind),
			c.StartLine, c.EndLine, c.StartByte, c.EndByte, c.Content,
			SerializeVector(ec.Vector), len(ec.Vector)); err != nil {
			return fmt.Errorf("insert chunk %s/%s: %w", file.Path, c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit file %s: %w", file.Path, err)
	}
	return nil
}
