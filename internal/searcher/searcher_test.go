package searcher

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vecgrep/vecgrep/internal/cache"
	"github.com/vecgrep/vecgrep/internal/embedder"
	"github.com/vecgrep/vecgrep/pkg/types"
)

func setupEngine(t *testing.T) (*Engine, *cache.EmbeddingCache, embedder.Embedder) {
	t.Helper()

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal, CacheSize: 100})
	require.NoError(t, err)
	t.Cleanup(func() { _ = emb.Close() })

	c := cache.New()
	return New(c, emb, zerolog.Nop()), c, emb
}

func cacheChunk(t *testing.T, c *cache.EmbeddingCache, emb embedder.Embedder, id int64, path, content string, startLine int) {
	t.Helper()

	result, err := emb.GenerateEmbedding(context.Background(), embedder.EmbeddingRequest{Text: content})
	require.NoError(t, err)

	c.SetFile(path, []*types.Chunk{{
		ID:        id,
		FilePath:  path,
		Position:  0,
		Content:   content,
		StartLine: startLine,
		EndLine:   startLine + 2,
		Vector:    result.Vector,
	}})
}

func TestNormalizeTopK(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero clamps to min", 0, MinTopK},
		{"negative clamps to min", -5, MinTopK},
		{"min passes through", 1, 1},
		{"mid passes through", 10, 10},
		{"max passes through", 20, 20},
		{"excess clamps to max", 1000, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTopK(tt.in))
		})
	}
}

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, ValidateQuery("error handling in the parser"))
	assert.NoError(t, ValidateQuery(strings.Repeat("q", MaxQueryLen)))

	var verr *types.ValidationError

	err := ValidateQuery("")
	require.ErrorAs(t, err, &verr)

	err = ValidateQuery("   \t\n  ")
	require.ErrorAs(t, err, &verr)

	err = ValidateQuery(strings.Repeat("q", MaxQueryLen+1))
	require.ErrorAs(t, err, &verr)
}

func TestSearchEmptyIndex(t *testing.T) {
	engine, _, _ := setupEngine(t)

	resp, err := engine.Search(context.Background(), Request{Query: "anything", TopK: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestSearchRanking(t *testing.T) {
	engine, c, emb := setupEngine(t)
	ctx := context.Background()

	cacheChunk(t, c, emb, 1, "db.go", "func openDatabaseConnection(dsn string) (*sql.DB, error)", 10)
	cacheChunk(t, c, emb, 2, "http.go", "func handleHTTPRequest(w http.ResponseWriter, r *http.Request)", 20)
	cacheChunk(t, c, emb, 3, "math.go", "func multiplyMatrices(a, b [][]float64) [][]float64", 30)

	resp, err := engine.Search(ctx, Request{Query: "open a database connection", TopK: 3})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	// The database chunk shares the most trigrams with the query
	assert.Equal(t, "db.go", resp.Results[0].FilePath)

	// Scores are sorted descending and ranks are 1-based
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Similarity, resp.Results[i].Similarity)
	}
	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
		assert.NoError(t, r.Validate())
	}
}

func TestSearchTopKLimits(t *testing.T) {
	engine, c, emb := setupEngine(t)
	ctx := context.Background()

	for i := int64(0); i < 30; i++ {
		path := "file" + strings.Repeat("x", int(i)+1) + ".go"
		cacheChunk(t, c, emb, i+1, path, "func worker(id int) { process(id) }", 1)
	}

	t.Run("top_k respected", func(t *testing.T) {
		resp, err := engine.Search(ctx, Request{Query: "worker process", TopK: 3})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 3)
	})

	t.Run("top_k above max clamps to 20", func(t *testing.T) {
		resp, err := engine.Search(ctx, Request{Query: "worker process", TopK: 1000})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 20)
	})

	t.Run("negative top_k clamps to 1", func(t *testing.T) {
		resp, err := engine.Search(ctx, Request{Query: "worker process", TopK: -4})
		require.NoError(t, err)
		assert.Len(t, resp.Results, 1)
	})
}

func TestSearchDeterministicTieBreak(t *testing.T) {
	engine, c, emb := setupEngine(t)
	ctx := context.Background()

	// Identical content produces identical vectors, hence identical scores
	content := "func identicalBody() { return }"
	cacheChunk(t, c, emb, 1, "zz.go", content, 5)
	cacheChunk(t, c, emb, 2, "aa.go", content, 5)
	cacheChunk(t, c, emb, 3, "mm.go", content, 5)

	first, err := engine.Search(ctx, Request{Query: "identical body", TopK: 3})
	require.NoError(t, err)
	second, err := engine.Search(ctx, Request{Query: "identical body", TopK: 3})
	require.NoError(t, err)

	require.Len(t, first.Results, 3)
	assert.Equal(t, "aa.go", first.Results[0].FilePath)
	assert.Equal(t, "mm.go", first.Results[1].FilePath)
	assert.Equal(t, "zz.go", first.Results[2].FilePath)
	assert.Equal(t, first.Results, second.Results)
}

func TestSearchInvalidQuery(t *testing.T) {
	engine, c, emb := setupEngine(t)
	cacheChunk(t, c, emb, 1, "a.go", "func something()", 1)

	_, err := engine.Search(context.Background(), Request{Query: "  ", TopK: 5})
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = engine.Search(context.Background(), Request{Query: strings.Repeat("a", 501), TopK: 5})
	assert.ErrorAs(t, err, &verr)
}
