package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/vecgrep/vecgrep/pkg/types"
)

// Store is the durable, transactional source of truth for a project's
// indexed files and chunk vectors. One store maps to exactly one project.
//
// The store guarantees per-call transaction atomicity: a file's chunk set is
// all-old or all-new across any call boundary. It does not provide
// cross-process exclusivity; callers serialize writes to the same file path
// via coordinator-level locking.
type Store interface {
	// ReplaceFileChunks atomically swaps the file record and its entire
	// chunk set. On success, chunk IDs are populated on the passed chunks.
	// Any failure rolls back fully to the pre-call state.
	ReplaceFileChunks(ctx context.Context, path string, hash [32]byte, chunks []*types.Chunk) error

	// DeleteFile removes a file record and all its chunks in one
	// transaction. Deleting an unknown path is not an error.
	DeleteFile(ctx context.Context, path string) error

	// ListFiles returns all tracked file records ordered by path.
	ListFiles(ctx context.Context) ([]FileRecord, error)

	// LoadAllVectors returns every stored chunk with its vector, ordered by
	// (path, position). Used once to warm the in-memory cache.
	LoadAllVectors(ctx context.Context) ([]*types.Chunk, error)

	// GetStatus returns read-only summary counters.
	GetStatus(ctx context.Context) (*Status, error)

	// TouchLastIndexed records the completion time of an index run.
	TouchLastIndexed(ctx context.Context) error

	Close() error
}

// FileRecord tracks one indexed file: its relative path, the content hash of
// the last committed version, and when it was indexed.
type FileRecord struct {
	Path          string
	ContentHash   [32]byte
	LastIndexedAt time.Time
}

// Status summarizes a project's index.
type Status struct {
	Exists        bool
	FileCount     int
	ChunkCount    int
	LastIndexedAt time.Time
	SizeBytes     int64
}

// ProjectID derives the stable storage address for a project root: SHA-256
// of the cleaned absolute path, truncated to 16 hex characters. Identical
// roots always map to the same database file; distinct roots never collide
// in practice.
func ProjectID(rootPath string) string {
	clean := filepath.Clean(rootPath)
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:])[:16]
}
