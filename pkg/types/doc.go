// Package types provides shared type definitions for the VecGrep MCP server.
//
// Chunk represents a retrievable unit of source text together with its
// embedding vector:
//
//	chunk := &types.Chunk{
//	    FilePath:  "internal/auth/login.go",
//	    Position:  0,
//	    Content:   functionBody,
//	    StartLine: 12,
//	    EndLine:   48,
//	    Vector:    vec,
//	}
//
// SearchResult carries a ranked match back to the tool surface with its
// cosine similarity score.
//
// # Error Taxonomy
//
// The package defines one typed error per failure class of the indexing and
// query pipeline:
//
//   - ValidationError: rejected query input (empty or over-length text)
//   - ScanError: per-file I/O fault during traversal
//   - ChunkError: segmentation fault on one file
//   - EmbedError: vectorization fault
//   - StoreError: transactional storage fault (rolled back)
//
// All are non-fatal and aggregated into run summaries; only the MCP boundary
// converts them to display text. Use errors.As to branch on class:
//
//	var ve *types.ValidationError
//	if errors.As(err, &ve) {
//	    // reject, do not count as an indexing failure
//	}
package types
