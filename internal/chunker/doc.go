// Package chunker segments source files into retrievable text blocks.
//
// The chunker is language-agnostic: it splits on blank-line boundaries and
// merges adjacent paragraphs up to a line budget, which keeps functions and
// declaration groups intact without requiring a parser per language.
//
//	c := chunker.New()
//	blocks, err := c.Chunk("auth.py", content)
//	for _, b := range blocks {
//	    fmt.Printf("%d-%d: %d bytes\n", b.StartLine, b.EndLine, len(b.Text))
//	}
//
// Supported file types are declared by the chunker via Extensions(); the
// scanner restricts traversal to that set. Unsupported or binary files
// produce ErrUnsupportedFile / ErrBinaryContent, which callers treat as a
// skip, never a fatal fault.
package chunker
