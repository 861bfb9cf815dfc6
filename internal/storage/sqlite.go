package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vecgrep/vecgrep/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

const metaKeyLastIndexed = "last_indexed"

// SQLiteStore implements the Store interface using SQLite, one database file
// per project.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database for the project rooted at rootPath,
// placed under indexDir and addressed by ProjectID.
func Open(indexDir, rootPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	dbFile := filepath.Join(indexDir, ProjectID(rootPath)+".db")
	return OpenFile(dbFile)
}

// OpenFile opens a store at an explicit database path. ":memory:" is
// accepted for tests.
func OpenFile(dbFile string) (*SQLiteStore, error) {
	db, err := openDatabase(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db, path: dbFile}, nil
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL mode lets search reads interleave with indexing writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// DB exposes the underlying connection for migrations and tests.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// withTx runs fn inside a transaction. Rollback is deferred so the
// transaction handle is released on every exit path, including failures
// mid-transaction; a successful commit makes the rollback a no-op.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceFileChunks swaps a file's record and its entire chunk set in a
// single transaction: delete existing chunks, upsert the file record, insert
// the new rows. Any failure rolls back to the pre-call state, so readers
// never observe a partially replaced chunk set.
func (s *SQLiteStore) ReplaceFileChunks(ctx context.Context, path string, hash [32]byte, chunks []*types.Chunk) error {
	for _, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("invalid chunk for %s: %w", path, err)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
			return fmt.Errorf("failed to delete old chunks: %w", err)
		}

		now := time.Now()
		_, err := tx.ExecContext(ctx, `
			INSERT INTO files (path, content_hash, last_indexed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				content_hash = excluded.content_hash,
				last_indexed_at = excluded.last_indexed_at,
				updated_at = excluded.updated_at
		`, path, hash[:], now, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert file: %w", err)
		}

		for _, chunk := range chunks {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO chunks (file_path, position, content, start_line, end_line, vector, dimension, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, path, chunk.Position, chunk.Content, chunk.StartLine, chunk.EndLine,
				SerializeVector(chunk.Vector), len(chunk.Vector), now)
			if err != nil {
				return fmt.Errorf("failed to insert chunk %d: %w", chunk.Position, err)
			}

			id, err := result.LastInsertId()
			if err != nil {
				return err
			}
			chunk.ID = id
			chunk.FilePath = path
		}

		return nil
	})
}

// DeleteFile removes a file record and its chunks in one transaction. Used
// for orphan cleanup; deleting an untracked path is a no-op.
func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_path = ?`, path); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	})
}

// ListFiles returns all tracked file records ordered by path.
func (s *SQLiteStore) ListFiles(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, content_hash, last_indexed_at
		FROM files
		ORDER BY path
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]FileRecord, 0)
	for rows.Next() {
		var rec FileRecord
		var hash []byte
		var lastIndexedAt sql.NullTime
		if err := rows.Scan(&rec.Path, &hash, &lastIndexedAt); err != nil {
			return nil, err
		}
		copy(rec.ContentHash[:], hash)
		if lastIndexedAt.Valid {
			rec.LastIndexedAt = lastIndexedAt.Time
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetFile returns the record for a single path, or ErrNotFound.
func (s *SQLiteStore) GetFile(ctx context.Context, path string) (*FileRecord, error) {
	var rec FileRecord
	var hash []byte
	var lastIndexedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT path, content_hash, last_indexed_at
		FROM files
		WHERE path = ?
	`, path).Scan(&rec.Path, &hash, &lastIndexedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(rec.ContentHash[:], hash)
	if lastIndexedAt.Valid {
		rec.LastIndexedAt = lastIndexedAt.Time
	}
	return &rec, nil
}

// LoadAllVectors returns every stored chunk with its vector, ordered by
// (path, position). Called once per process to warm the embedding cache;
// queries never scan storage directly.
func (s *SQLiteStore) LoadAllVectors(ctx context.Context) ([]*types.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_path, position, content, start_line, end_line, vector
		FROM chunks
		ORDER BY file_path, position
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]*types.Chunk, 0)
	for rows.Next() {
		var chunk types.Chunk
		var blob []byte
		err := rows.Scan(&chunk.ID, &chunk.FilePath, &chunk.Position,
			&chunk.Content, &chunk.StartLine, &chunk.EndLine, &blob)
		if err != nil {
			return nil, err
		}
		chunk.Vector = DeserializeVector(blob)
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// GetStatus returns read-only summary counters for the project.
func (s *SQLiteStore) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&status.FileCount); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&status.ChunkCount); err != nil {
		return nil, err
	}

	var lastIndexed sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = ?", metaKeyLastIndexed).Scan(&lastIndexed)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastIndexed.Valid {
		if ts, perr := time.Parse(time.RFC3339Nano, lastIndexed.String); perr == nil {
			status.LastIndexedAt = ts
		}
	}

	status.Exists = status.FileCount > 0 || lastIndexed.Valid

	// Database size from page accounting
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeBytes = pageCount * pageSize
	}

	return status, nil
}

// TouchLastIndexed records the completion time of an index run.
func (s *SQLiteStore) TouchLastIndexed(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaKeyLastIndexed, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record index time: %w", err)
	}
	return nil
}
