package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/vecgrep/vecgrep/internal/storage"
	"github.com/vecgrep/vecgrep/pkg/types"
)

// Entry is one cached chunk with its vector. Entries are treated as
// immutable once inserted.
type Entry struct {
	ChunkID   int64
	FilePath  string
	Position  int
	Content   string
	StartLine int
	EndLine   int
	Vector    []float32
}

// EmbeddingCache holds every indexed chunk vector in memory so queries
// score against RAM instead of storage. It mirrors the persisted chunk set:
// indexing updates both in the same order, and a process restart rebuilds
// the cache from storage via Warm.
type EmbeddingCache struct {
	mu      sync.RWMutex
	entries map[int64]Entry
	byFile  map[string][]int64
}

// New returns an empty cache.
func New() *EmbeddingCache {
	return &EmbeddingCache{
		entries: make(map[int64]Entry),
		byFile:  make(map[string][]int64),
	}
}

// Warm replaces the cache contents with the full chunk set from storage.
func (c *EmbeddingCache) Warm(ctx context.Context, store storage.Store) error {
	chunks, err := store.LoadAllVectors(ctx)
	if err != nil {
		return fmt.Errorf("failed to load vectors: %w", err)
	}

	entries := make(map[int64]Entry, len(chunks))
	byFile := make(map[string][]int64)
	for _, chunk := range chunks {
		entries[chunk.ID] = entryFromChunk(chunk)
		byFile[chunk.FilePath] = append(byFile[chunk.FilePath], chunk.ID)
	}

	c.mu.Lock()
	c.entries = entries
	c.byFile = byFile
	c.mu.Unlock()

	return nil
}

// SetFile replaces all cached entries for a path with the given chunks,
// mirroring the storage-level chunk replacement.
func (c *EmbeddingCache) SetFile(path string, chunks []*types.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.byFile[path] {
		delete(c.entries, id)
	}
	delete(c.byFile, path)

	ids := make([]int64, 0, len(chunks))
	for _, chunk := range chunks {
		c.entries[chunk.ID] = entryFromChunk(chunk)
		ids = append(ids, chunk.ID)
	}
	if len(ids) > 0 {
		c.byFile[path] = ids
	}
}

// RemoveFile drops all cached entries for a path. Unknown paths are a no-op.
func (c *EmbeddingCache) RemoveFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.byFile[path] {
		delete(c.entries, id)
	}
	delete(c.byFile, path)
}

// Snapshot returns the current entries. The returned slice is owned by the
// caller; entry vectors are shared and must not be mutated.
func (c *EmbeddingCache) Snapshot() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of cached chunks.
func (c *EmbeddingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func entryFromChunk(chunk *types.Chunk) Entry {
	return Entry{
		ChunkID:   chunk.ID,
		FilePath:  chunk.FilePath,
		Position:  chunk.Position,
		Content:   chunk.Content,
		StartLine: chunk.StartLine,
		EndLine:   chunk.EndLine,
		Vector:    chunk.Vector,
	}
}
