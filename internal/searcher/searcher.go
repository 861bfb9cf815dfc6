package searcher

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vecgrep/vecgrep/internal/cache"
	"github.com/vecgrep/vecgrep/internal/embedder"
	"github.com/vecgrep/vecgrep/internal/storage"
	"github.com/vecgrep/vecgrep/pkg/types"
)

const (
	// MaxQueryLen caps query length in characters
	MaxQueryLen = 500

	// MinTopK and MaxTopK bound the result count
	MinTopK = 1
	MaxTopK = 20

	// DefaultTopK is applied by the tool layer when top_k is omitted
	DefaultTopK = 5
)

// Request is one search query.
type Request struct {
	Query string
	TopK  int
}

// Response carries the ranked results for a query.
type Response struct {
	Results []types.SearchResult
	Elapsed time.Duration
}

// Engine scores queries against the in-memory embedding cache. The cache
// snapshot taken at query time is the consistency boundary: indexing that
// runs concurrently affects the next query, not this one.
type Engine struct {
	cache    *cache.EmbeddingCache
	embedder embedder.Embedder
	logger   zerolog.Logger
}

// New creates a search engine over the given cache and embedder.
func New(c *cache.EmbeddingCache, emb embedder.Embedder, logger zerolog.Logger) *Engine {
	return &Engine{
		cache:    c,
		embedder: emb,
		logger:   logger.With().Str("component", "searcher").Logger(),
	}
}

// NormalizeTopK clamps k into [MinTopK, MaxTopK] regardless of input sign
// or magnitude. Defaulting an omitted parameter is the tool layer's job.
func NormalizeTopK(k int) int {
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

// ValidateQuery rejects empty, whitespace-only, and oversized queries.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return &types.ValidationError{Field: "query", Reason: "query cannot be empty"}
	}
	if len(query) > MaxQueryLen {
		return &types.ValidationError{Field: "query", Reason: "query exceeds 500 characters"}
	}
	return nil
}

// Search embeds the query and ranks all cached chunks by cosine
// similarity. Ties break by path, then start line, so identical scores
// produce a stable order.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := ValidateQuery(req.Query); err != nil {
		return nil, err
	}
	topK := NormalizeTopK(req.TopK)

	entries := e.cache.Snapshot()
	if len(entries) == 0 {
		return &Response{Results: []types.SearchResult{}, Elapsed: time.Since(start)}, nil
	}

	queryEmb, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, &types.EmbedError{Path: "query", Err: err}
	}

	scored := make([]types.SearchResult, 0, len(entries))
	for _, entry := range entries {
		scored = append(scored, types.SearchResult{
			ChunkID:    entry.ChunkID,
			FilePath:   entry.FilePath,
			Content:    entry.Content,
			StartLine:  entry.StartLine,
			EndLine:    entry.EndLine,
			Similarity: storage.CosineSimilarity(queryEmb.Vector, entry.Vector),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if scored[i].FilePath != scored[j].FilePath {
			return scored[i].FilePath < scored[j].FilePath
		}
		return scored[i].StartLine < scored[j].StartLine
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}

	elapsed := time.Since(start)
	e.logger.Debug().
		Int("candidates", len(entries)).
		Int("returned", len(scored)).
		Dur("elapsed", elapsed).
		Msg("search complete")

	return &Response{Results: scored, Elapsed: elapsed}, nil
}
