package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vecgrep/vecgrep/internal/cache"
	"github.com/vecgrep/vecgrep/internal/chunker"
	"github.com/vecgrep/vecgrep/internal/embedder"
	"github.com/vecgrep/vecgrep/internal/scanner"
	"github.com/vecgrep/vecgrep/internal/storage"
	"github.com/vecgrep/vecgrep/pkg/types"
)

// ErrIndexInProgress is returned when an index run is requested while
// another is active for the same project.
var ErrIndexInProgress = errors.New("indexing already in progress")

// DefaultWorkers bounds file-level indexing concurrency.
const DefaultWorkers = 4

// Options controls a single index run.
type Options struct {
	// Force reindexes every file regardless of stored content hashes
	Force bool
	// Workers overrides DefaultWorkers when positive
	Workers int
}

// Summary reports the outcome of an index run.
type Summary struct {
	Indexed        int
	Skipped        int
	OrphansRemoved int
	Errors         int
	ErrorMessages  []string
	Duration       time.Duration
}

// Coordinator drives incremental indexing for one project: scan, diff,
// chunk, embed, store, and clean up orphans, keeping the embedding cache in
// step with storage throughout.
type Coordinator struct {
	root     string
	store    storage.Store
	cache    *cache.EmbeddingCache
	chunker  chunker.Chunker
	embedder embedder.Embedder
	scanner  *scanner.Scanner
	locks    *pathLocks
	runLock  RunLock
	logger   zerolog.Logger
}

// New creates a Coordinator for the project rooted at root.
func New(root string, store storage.Store, c *cache.EmbeddingCache, chk chunker.Chunker, emb embedder.Embedder, scn *scanner.Scanner, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		root:     root,
		store:    store,
		cache:    c,
		chunker:  chk,
		embedder: emb,
		scanner:  scn,
		locks:    newPathLocks(),
		logger:   logger.With().Str("component", "indexer").Logger(),
	}
}

// Root returns the project root path.
func (c *Coordinator) Root() string {
	return c.root
}

// InProgress reports whether an index run is active.
func (c *Coordinator) InProgress() bool {
	return c.runLock.IsHeld()
}

// Index runs one full incremental pass over the project. Unchanged files
// are skipped via content hashes, changed files are rechunked and
// re-embedded, and files that vanished from disk are removed from both
// storage and cache. Per-file failures are recorded in the summary without
// aborting the run.
func (c *Coordinator) Index(ctx context.Context, opts Options) (*Summary, error) {
	if !c.runLock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer c.runLock.Release()

	start := time.Now()
	c.logger.Info().Str("root", c.root).Bool("force", opts.Force).Msg("index run started")

	scanned, scanErrs, err := c.scanner.Scan(c.root)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	stored, err := c.storedHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored state: %w", err)
	}

	diff := scanner.DiffFiles(scanned, stored)
	if opts.Force {
		diff.Changed = append(diff.Changed, diff.Unchanged...)
		diff.Unchanged = nil
	}

	summary := &Summary{Skipped: len(diff.Unchanged)}

	var indexed, failed atomic.Int64
	var errMu sync.Mutex
	recordError := func(err error) {
		failed.Add(1)
		errMu.Lock()
		summary.ErrorMessages = append(summary.ErrorMessages, err.Error())
		errMu.Unlock()
	}

	for _, scanErr := range scanErrs {
		recordError(scanErr)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, file := range diff.Changed {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if err := c.indexFile(gctx, file); err != nil {
				c.logger.Warn().Err(err).Str("path", file.RelPath).Msg("file indexing failed")
				recordError(err)
			} else {
				indexed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, path := range diff.Orphaned {
		if err := c.removeFile(ctx, path); err != nil {
			recordError(err)
			continue
		}
		summary.OrphansRemoved++
	}

	if err := c.store.TouchLastIndexed(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("failed to record index time")
	}

	summary.Indexed = int(indexed.Load())
	summary.Errors = int(failed.Load())
	summary.Duration = time.Since(start)

	c.logger.Info().
		Int("indexed", summary.Indexed).
		Int("skipped", summary.Skipped).
		Int("orphans_removed", summary.OrphansRemoved).
		Int("errors", summary.Errors).
		Dur("duration", summary.Duration).
		Msg("index run complete")

	return summary, nil
}

// indexFile reprocesses one file under its path lock: read, chunk, embed,
// then swap the chunk set in storage and cache.
func (c *Coordinator) indexFile(ctx context.Context, file scanner.ScannedFile) error {
	lock := c.locks.get(file.RelPath)
	lock.Lock()
	defer lock.Unlock()

	absPath := filepath.Join(c.root, filepath.FromSlash(file.RelPath))
	content, err := os.ReadFile(absPath)
	if err != nil {
		return &types.ScanError{Path: file.RelPath, Err: err}
	}

	blocks, err := c.chunker.Chunk(absPath, content)
	if err != nil {
		if errors.Is(err, chunker.ErrBinaryContent) || errors.Is(err, chunker.ErrUnsupportedFile) {
			// Content changed type since the scan; drop it from the index.
			// The path lock is already held here.
			return c.removeFileLocked(ctx, file.RelPath)
		}
		return &types.ChunkError{Path: file.RelPath, Err: err}
	}

	chunks, err := c.embedBlocks(ctx, file.RelPath, blocks)
	if err != nil {
		return err
	}

	if err := c.store.ReplaceFileChunks(ctx, file.RelPath, file.ContentHash, chunks); err != nil {
		return &types.StoreError{Op: "replace", Path: file.RelPath, Err: err}
	}
	c.cache.SetFile(file.RelPath, chunks)

	return nil
}

// embedBlocks generates vectors for a file's blocks in batches.
func (c *Coordinator) embedBlocks(ctx context.Context, path string, blocks []chunker.Block) ([]*types.Chunk, error) {
	chunks := make([]*types.Chunk, 0, len(blocks))

	for offset := 0; offset < len(blocks); offset += embedder.MaxBatchSize {
		end := min(offset+embedder.MaxBatchSize, len(blocks))
		batch := blocks[offset:end]

		texts := make([]string, len(batch))
		for i, b := range batch {
			texts[i] = b.Text
		}

		resp, err := c.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return nil, &types.EmbedError{Path: path, Err: err}
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, &types.EmbedError{Path: path,
				Err: fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings))}
		}

		for i, b := range batch {
			chunks = append(chunks, &types.Chunk{
				FilePath:  path,
				Position:  offset + i,
				Content:   b.Text,
				StartLine: b.StartLine,
				EndLine:   b.EndLine,
				Vector:    resp.Embeddings[i].Vector,
			})
		}
	}

	return chunks, nil
}

// removeFile deletes a file from storage and cache under its path lock.
func (c *Coordinator) removeFile(ctx context.Context, path string) error {
	lock := c.locks.get(path)
	lock.Lock()
	defer lock.Unlock()

	return c.removeFileLocked(ctx, path)
}

// removeFileLocked performs the deletion. The caller must hold the path
// lock; the mutexes are not reentrant.
func (c *Coordinator) removeFileLocked(ctx context.Context, path string) error {
	if err := c.store.DeleteFile(ctx, path); err != nil {
		return &types.StoreError{Op: "delete", Path: path, Err: err}
	}
	c.cache.RemoveFile(path)
	return nil
}

func (c *Coordinator) storedHashes(ctx context.Context) (map[string][32]byte, error) {
	records, err := c.store.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string][32]byte, len(records))
	for _, rec := range records {
		hashes[rec.Path] = rec.ContentHash
	}
	return hashes, nil
}
