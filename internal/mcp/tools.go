package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/vecgrep/vecgrep/internal/indexer"
	"github.com/vecgrep/vecgrep/internal/searcher"
)

// EnvIgnorePatterns holds comma-separated glob patterns excluded from
// indexing in addition to .gitignore rules.
const EnvIgnorePatterns = "VECGREP_IGNORE"

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultText("Error: invalid arguments"), nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultText("Error: path parameter is required"), nil
	}
	if err := validatePath(path); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: invalid path: %v", err)), nil
	}

	force, _ := args["force_reindex"].(bool)

	p, err := s.getProject(ctx, path)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
	}

	summary, err := p.indexer.Index(ctx, indexer.Options{Force: force})
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return mcp.NewToolResultText("Indexing already in progress for this project."), nil
	}
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: indexing failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatIndexSummary(summary)), nil
}

// handleSearchCode handles the search_code tool invocation. A project that
// has never been indexed is indexed first, so the first search on a fresh
// checkout just works.
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultText("Error: invalid arguments"), nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultText("Error: path parameter is required"), nil
	}
	if err := validatePath(path); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: invalid path: %v", err)), nil
	}

	query, _ := args["query"].(string)
	if err := searcher.ValidateQuery(query); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
	}

	topK := getIntDefault(args, "top_k", searcher.DefaultTopK)

	p, err := s.getProject(ctx, path)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
	}

	status, err := p.store.GetStatus(ctx)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
	}
	if !status.Exists {
		if _, err := p.indexer.Index(ctx, indexer.Options{}); err != nil && !errors.Is(err, indexer.ErrIndexInProgress) {
			return mcp.NewToolResultText(fmt.Sprintf("Error: initial indexing failed: %v", err)), nil
		}
	}

	resp, err := p.searcher.Search(ctx, searcher.Request{Query: query, TopK: topK})
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
	}

	return mcp.NewToolResultText(formatSearchResults(query, resp)), nil
}

// handleGetIndexStatus handles the get_index_status tool invocation
func (s *Server) handleGetIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultText("Error: invalid arguments"), nil
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultText("Error: path parameter is required"), nil
	}
	if err := validatePath(path); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: invalid path: %v", err)), nil
	}

	p, err := s.getProject(ctx, path)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
	}

	status, err := p.store.GetStatus(ctx)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Error: %v", err)), nil
	}

	if !status.Exists {
		return mcp.NewToolResultText(fmt.Sprintf(
			"No index found for %s. Use index_codebase to index this project.", p.root)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Index status for %s\n", p.root)
	fmt.Fprintf(&b, "Files indexed: %d\n", status.FileCount)
	fmt.Fprintf(&b, "Chunks stored: %d\n", status.ChunkCount)
	if !status.LastIndexedAt.IsZero() {
		fmt.Fprintf(&b, "Last indexed: %s\n", status.LastIndexedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "Index size: %s\n", formatBytes(status.SizeBytes))
	if p.indexer.InProgress() {
		b.WriteString("An index run is currently in progress.\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

// Formatting helpers

func formatIndexSummary(summary *indexer.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Indexed %d file(s), skipped %d unchanged, removed %d orphaned in %s.\n",
		summary.Indexed, summary.Skipped, summary.OrphansRemoved,
		summary.Duration.Round(time.Millisecond))

	if summary.Errors > 0 {
		fmt.Fprintf(&b, "%d file(s) failed:\n", summary.Errors)
		messages := summary.ErrorMessages
		if len(messages) > 5 {
			messages = messages[:5]
		}
		for _, msg := range messages {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
		if summary.Errors > 5 {
			fmt.Fprintf(&b, "  ... and %d more\n", summary.Errors-5)
		}
	}

	return b.String()
}

func formatSearchResults(query string, resp *searcher.Response) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No results for %q. The index may be empty or the query may not match any indexed content.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d result(s) for %q:\n\n", len(resp.Results), query)
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%d. %s:%d-%d (score %.4f)\n", i+1, r.FilePath, r.StartLine, r.EndLine, r.Similarity)
		b.WriteString(indentContent(r.Content))
		b.WriteString("\n")
	}
	return b.String()
}

func indentContent(content string) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for _, line := range lines {
		b.WriteString("   ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Parameter helpers

// validatePath checks that a path is an absolute, readable directory.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	return nil
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func ignorePatternsFromEnv() []string {
	raw := os.Getenv(EnvIgnorePatterns)
	if raw == "" {
		return nil
	}
	var patterns []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// Validation errors

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
