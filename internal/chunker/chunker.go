package chunker

import (
	"bytes"
	"errors"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// MaxLinesPerChunk caps the size of a single chunk. Blocks are merged
	// up to this limit so small declarations share a chunk with their
	// neighbors.
	MaxLinesPerChunk = 80

	// MinLinesPerChunk avoids emitting trivial one-line fragments when a
	// larger block follows.
	MinLinesPerChunk = 3
)

var (
	// ErrUnsupportedFile is returned for files whose extension has no
	// registered support.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrBinaryContent is returned when the content does not look like text.
	ErrBinaryContent = errors.New("binary content")
)

// Block is a contiguous span of source text produced by segmentation.
// Line numbers are 1-based and inclusive.
type Block struct {
	Text      string
	StartLine int
	EndLine   int
}

// Chunker segments file content into ordered blocks. Implementations
// register the file extensions they support; the scanner restricts traversal
// to that set.
type Chunker interface {
	Chunk(path string, content []byte) ([]Block, error)
	Supports(path string) bool
	Extensions() []string
}

// defaultExtensions lists the source file types indexed out of the box.
var defaultExtensions = []string{
	".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".rs", ".java", ".kt",
	".c", ".h", ".cpp", ".hpp", ".cs", ".rb", ".php", ".swift", ".scala",
	".sh", ".sql", ".proto", ".md",
}

// LineChunker splits files on blank-line boundaries, merging adjacent
// paragraphs into chunks of at most MaxLinesPerChunk lines.
type LineChunker struct {
	maxLines int
	exts     map[string]struct{}
}

// New creates a LineChunker with the default extension registry.
func New() *LineChunker {
	return NewWithExtensions(defaultExtensions)
}

// NewWithExtensions creates a LineChunker supporting only the given
// extensions (lowercase, dot-prefixed).
func NewWithExtensions(extensions []string) *LineChunker {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &LineChunker{
		maxLines: MaxLinesPerChunk,
		exts:     exts,
	}
}

// Supports reports whether the file's extension is registered.
func (c *LineChunker) Supports(path string) bool {
	_, ok := c.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (c *LineChunker) Extensions() []string {
	out := make([]string, 0, len(c.exts))
	for ext := range c.exts {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Chunk segments content into ordered blocks. Returns ErrUnsupportedFile for
// unregistered extensions and ErrBinaryContent for non-text content; both
// are non-fatal to the caller, which skips and counts the file.
func (c *LineChunker) Chunk(path string, content []byte) ([]Block, error) {
	if !c.Supports(path) {
		return nil, ErrUnsupportedFile
	}

	if bytes.ContainsRune(content, 0) {
		return nil, ErrBinaryContent
	}

	lines := strings.Split(string(content), "\n")
	paragraphs := splitParagraphs(lines)
	if len(paragraphs) == 0 {
		return nil, nil
	}

	return c.mergeParagraphs(paragraphs), nil
}

// paragraph is a run of non-blank lines.
type paragraph struct {
	startLine int // 1-based
	endLine   int
	lines     []string
}

// splitParagraphs groups lines into runs separated by blank lines.
func splitParagraphs(lines []string) []paragraph {
	var paras []paragraph
	var cur *paragraph

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			cur = nil
			continue
		}
		if cur == nil {
			paras = append(paras, paragraph{startLine: i + 1, endLine: i + 1})
			cur = &paras[len(paras)-1]
		}
		cur.endLine = i + 1
		cur.lines = append(cur.lines, line)
	}

	return paras
}

// mergeParagraphs packs paragraphs into blocks of at most maxLines lines.
// An oversized paragraph becomes a block on its own rather than being split
// mid-declaration.
func (c *LineChunker) mergeParagraphs(paras []paragraph) []Block {
	blocks := make([]Block, 0, len(paras))

	var pending []paragraph
	pendingLines := 0

	flush := func() {
		if len(pending) == 0 {
			return
		}
		blocks = append(blocks, buildBlock(pending))
		pending = nil
		pendingLines = 0
	}

	for _, p := range paras {
		span := p.endLine - p.startLine + 1
		if pendingLines > 0 && pendingLines+span > c.maxLines {
			flush()
		}
		pending = append(pending, p)
		pendingLines += span
		if pendingLines >= c.maxLines {
			flush()
		}
	}
	flush()

	return blocks
}

// buildBlock joins a run of paragraphs, preserving the blank line between
// them so the chunk text reads like the original source.
func buildBlock(paras []paragraph) Block {
	var sb strings.Builder
	for i, p := range paras {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.Join(p.lines, "\n"))
	}
	return Block{
		Text:      sb.String(),
		StartLine: paras[0].startLine,
		EndLine:   paras[len(paras)-1].endLine,
	}
}
