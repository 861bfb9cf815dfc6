package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecgrep/vecgrep/internal/cache"
	"github.com/vecgrep/vecgrep/internal/chunker"
	"github.com/vecgrep/vecgrep/internal/embedder"
	"github.com/vecgrep/vecgrep/internal/scanner"
	"github.com/vecgrep/vecgrep/internal/storage"
)

func setupCoordinator(t *testing.T, root string) (*Coordinator, *cache.EmbeddingCache, storage.Store) {
	t.Helper()

	store, err := storage.OpenFile(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal, CacheSize: 100})
	require.NoError(t, err)
	t.Cleanup(func() { _ = emb.Close() })

	chk := chunker.New()
	embCache := cache.New()
	scn := scanner.New(chk, nil)

	coord := New(root, store, embCache, chk, emb, scn, zerolog.Nop())
	return coord, embCache, store
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestIndexFreshProject(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")
	writeFile(t, root, "util.go", "package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")

	coord, embCache, _ := setupCoordinator(t, root)
	summary, err := coord.Index(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Indexed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.OrphansRemoved)
	assert.Equal(t, 0, summary.Errors)
	assert.Greater(t, embCache.Len(), 0)
}

func TestIndexIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	coord, embCache, store := setupCoordinator(t, root)
	ctx := context.Background()

	first, err := coord.Index(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Indexed)

	chunksBefore, err := store.LoadAllVectors(ctx)
	require.NoError(t, err)
	cacheBefore := embCache.Len()

	// Second run over an unchanged tree skips everything
	second, err := coord.Index(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Indexed)
	assert.Equal(t, 1, second.Skipped)

	chunksAfter, err := store.LoadAllVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunksBefore), len(chunksAfter))
	assert.Equal(t, cacheBefore, embCache.Len())
}

func TestIndexDetectsChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	coord, _, store := setupCoordinator(t, root)
	ctx := context.Background()

	_, err := coord.Index(ctx, Options{})
	require.NoError(t, err)

	writeFile(t, root, "main.go", "package main\n\nfunc changed() {}\n")

	summary, err := coord.Index(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 0, summary.Skipped)

	chunks, err := store.LoadAllVectors(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "changed")
}

func TestIndexForce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	coord, _, _ := setupCoordinator(t, root)
	ctx := context.Background()

	_, err := coord.Index(ctx, Options{})
	require.NoError(t, err)

	summary, err := coord.Index(ctx, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Indexed)
	assert.Equal(t, 0, summary.Skipped)
}

func TestIndexOrphanCleanup(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package keep\n")
	writeFile(t, root, "gone.go", "package gone\n")

	coord, embCache, store := setupCoordinator(t, root)
	ctx := context.Background()

	_, err := coord.Index(ctx, Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "gone.go")))

	summary, err := coord.Index(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OrphansRemoved)

	files, err := store.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "keep.go", files[0].Path)

	for _, e := range embCache.Snapshot() {
		assert.NotEqual(t, "gone.go", e.FilePath)
	}
}

func TestIndexBinaryContentRemoved(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.go", "package good\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin.go"),
		[]byte("package bin\x00\x01\x02"), 0o644))

	coord, _, store := setupCoordinator(t, root)

	// A binary file with a supported extension passes the scan but fails
	// chunking; the run must complete rather than wedge on the path lock
	type outcome struct {
		summary *Summary
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		summary, err := coord.Index(context.Background(), Options{})
		done <- outcome{summary, err}
	}()

	var got outcome
	select {
	case got = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("index run did not complete")
	}
	require.NoError(t, got.err)
	assert.Equal(t, 0, got.summary.Errors)

	files, err := store.ListFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "good.go", files[0].Path)
}

// countingEmbedder records batch invocations while delegating to the real
// provider.
type countingEmbedder struct {
	embedder.Embedder
	batchCalls atomic.Int64
}

func (e *countingEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	e.batchCalls.Add(1)
	return e.Embedder.GenerateBatch(ctx, req)
}

func TestIndexUnchangedSkipsEmbedder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {}\n")

	store, err := storage.OpenFile(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	inner, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal})
	require.NoError(t, err)
	emb := &countingEmbedder{Embedder: inner}

	chk := chunker.New()
	coord := New(root, store, cache.New(), chk, emb, scanner.New(chk, nil), zerolog.Nop())
	ctx := context.Background()

	_, err = coord.Index(ctx, Options{})
	require.NoError(t, err)
	assert.Greater(t, emb.batchCalls.Load(), int64(0))

	// An unchanged file never reaches the embedder on the second run
	emb.batchCalls.Store(0)
	summary, err := coord.Index(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Indexed)
	assert.Equal(t, int64(0), emb.batchCalls.Load())
}

func TestIndexRunLock(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	coord, _, _ := setupCoordinator(t, root)

	require.True(t, coord.runLock.TryAcquire())
	defer coord.runLock.Release()

	_, err := coord.Index(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrIndexInProgress)
}

func TestIndexPerFileErrorsDoNotAbort(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.go", "package good\n")
	writeFile(t, root, "locked.go", "package locked\n")
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.go"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "locked.go"), 0o644) })

	if os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed when running as root")
	}

	coord, _, _ := setupCoordinator(t, root)
	summary, err := coord.Index(context.Background(), Options{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.Indexed, 1)
	assert.GreaterOrEqual(t, summary.Errors, 1)
	assert.NotEmpty(t, summary.ErrorMessages)
}

func TestIndexConcurrentRunsOneWins(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeFile(t, root, filepath.Join("pkg", string(rune('a'+i))+".go"), "package pkg\n")
	}

	coord, _, _ := setupCoordinator(t, root)

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coord.Index(context.Background(), Options{})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrIndexInProgress)
		}
	}
	assert.GreaterOrEqual(t, succeeded, 1)
}
