package types

import (
	"errors"
	"fmt"
)

// Domain errors for result validation
var (
	ErrInvalidChunkID        = errors.New("invalid chunk ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between -1 and 1")
	ErrEmptyContent          = errors.New("content cannot be empty")
)

// ValidationError reports a rejected input parameter. Only query text is ever
// rejected; out-of-range top_k values are normalized instead.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ScanError reports a per-file I/O fault during traversal. Non-fatal: the
// scan continues with remaining files.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ChunkError reports a segmentation fault on a single file. The file is
// skipped and counted; prior stored state is untouched.
type ChunkError struct {
	Path string
	Err  error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %s: %v", e.Path, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// EmbedError reports a vectorization fault for a file's chunks.
type EmbedError struct {
	Path string
	Err  error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embed %s: %v", e.Path, e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

// StoreError reports a transactional storage fault. The transaction rolls
// back fully; the file's prior stored state is preserved.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
