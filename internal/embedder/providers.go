package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Provider configuration
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"
	LocalModel         = "local-ngram-v1"

	// Dimensions
	LocalDimension  = 384
	OpenAIDimension = 1536
	JinaDimension   = 1024

	// Batch limits
	MaxBatchSize = 100

	// Environment variables
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
)

// httpEmbeddingProvider is the shared implementation behind the OpenAI and
// Jina providers, which expose the same request/response shape.
type httpEmbeddingProvider struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewOpenAIProvider creates an embedder backed by the OpenAI embeddings API.
func NewOpenAIProvider(apiKey string, cache *Cache) (Embedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvOpenAIAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	return &httpEmbeddingProvider{
		name:       ProviderOpenAI,
		endpoint:   "https://api.openai.com/v1/embeddings",
		apiKey:     apiKey,
		model:      DefaultOpenAIModel,
		dimension:  OpenAIDimension,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}, nil
}

// NewJinaProvider creates an embedder backed by the Jina AI embeddings API.
func NewJinaProvider(apiKey string, cache *Cache) (Embedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvJinaAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}
	return &httpEmbeddingProvider{
		name:       ProviderJina,
		endpoint:   "https://api.jina.ai/v1/embeddings",
		apiKey:     apiKey,
		model:      DefaultJinaModel,
		dimension:  JinaDimension,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
	}, nil
}

func (p *httpEmbeddingProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if p.cache != nil {
		if emb, ok := p.cache.Get(hash); ok {
			return emb, nil
		}
	}

	// Use the batch path for consistency
	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (p *httpEmbeddingProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	config := DefaultRetryConfig()
	embeddings, err := retryWithBackoff(ctx, config, func() ([]*Embedding, error) {
		return p.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d retries: %v", ErrProviderFailed, config.MaxRetries, err)
	}

	// Cache successful embeddings
	if p.cache != nil {
		for i, emb := range embeddings {
			hash := ComputeHash(req.Texts[i])
			emb.Hash = hash
			p.cache.Set(hash, emb)
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *httpEmbeddingProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    NormalizeVector(data.Embedding),
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}

	return embeddings, nil
}

func (p *httpEmbeddingProvider) Dimension() int {
	return p.dimension
}

func (p *httpEmbeddingProvider) Provider() string {
	return p.name
}

func (p *httpEmbeddingProvider) Model() string {
	return p.model
}

func (p *httpEmbeddingProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider generates offline embeddings by feature-hashing character
// trigrams into a fixed-dimension vector. Deterministic for identical input
// and requires no network or model files; similar texts share trigram mass
// and so score close under cosine similarity.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a new offline embedder.
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: LocalModel,
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	vector := hashTrigrams(req.Text, LocalDimension)

	emb := &Embedding{
		Vector:    vector,
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	if l.cache != nil {
		l.cache.Set(hash, emb)
	}

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// hashTrigrams buckets lowercased character trigrams into dim slots with a
// signed count, then L2-normalizes the result.
func hashTrigrams(text string, dim int) []float32 {
	vector := make([]float32, dim)
	lowered := strings.ToLower(text)

	runes := []rune(lowered)
	if len(runes) < 3 {
		runes = append(runes, ' ', ' ')
	}

	for i := 0; i+3 <= len(runes); i++ {
		h := fnv.New32a()
		_, _ = h.Write([]byte(string(runes[i : i+3])))
		sum := h.Sum32()
		slot := int(sum % uint32(dim))
		// High bit decides sign so buckets cancel rather than only accumulate
		if sum&0x80000000 != 0 {
			vector[slot]--
		} else {
			vector[slot]++
		}
	}

	return NormalizeVector(vector)
}
