package types

import "errors"

// Chunk is a contiguous, retrievable unit of source text with its embedding.
// A file's chunks are always written and replaced as a complete set.
type Chunk struct {
	// Identification
	ID       int64
	FilePath string // Relative to project root
	Position int    // Ordinal within the file, 0-based

	// Content
	Content   string
	StartLine int
	EndLine   int

	// Embedding
	Vector []float32
}

// Validate checks structural integrity of the chunk before storage.
func (c *Chunk) Validate() error {
	if c.FilePath == "" {
		return errors.New("chunk file path cannot be empty")
	}

	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	if c.Position < 0 {
		return errors.New("chunk position must be non-negative")
	}

	if len(c.Vector) == 0 {
		return errors.New("chunk vector cannot be empty")
	}

	return nil
}
