package types

// SearchResult is a single ranked match from a similarity query.
type SearchResult struct {
	// Identification
	ChunkID int64
	Rank    int // Position in result set (1-based)

	// Scoring
	Similarity float64 // Cosine similarity, range [-1, 1]

	// Location
	FilePath  string // Relative to project root
	StartLine int
	EndLine   int

	// Content
	Content string
}

// Validate checks if the search result is well formed.
func (sr *SearchResult) Validate() error {
	if sr.ChunkID == 0 {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Similarity < -1 || sr.Similarity > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
