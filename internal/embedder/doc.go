// Package embedder generates vector embeddings for code chunks and queries.
//
// Three providers are available behind the Embedder interface:
//
//   - local: offline trigram feature hashing, 384 dimensions, deterministic,
//     no network required (the default)
//   - openai: text-embedding-3-small via the OpenAI API, 1536 dimensions
//   - jina: jina-embeddings-v3 via the Jina AI API, 1024 dimensions
//
// Construct once per process and inject the instance; provider setup is the
// expensive part and the same embedder must serve both indexing and search
// so dimensions agree:
//
//	emb, err := embedder.NewFromEnv()
//	defer emb.Close()
//
// All providers L2-normalize their output, cache by content hash through a
// shared LRU, and return deterministic vectors for identical input. HTTP
// providers retry with exponential backoff and honor context cancellation.
package embedder
