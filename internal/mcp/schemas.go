package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index a codebase directory to make it semantically searchable. Incremental: unchanged files are skipped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root directory",
				},
				"force_reindex": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index all files ignoring stored content hashes (full rebuild)",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search an indexed codebase with a natural language query. Indexes the project first if it has never been indexed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root directory",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords, max 500 characters)",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// getIndexStatusTool returns the tool definition for get_index_status
func getIndexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_index_status",
		Description: "Report indexing status and statistics for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root directory",
				},
			},
			Required: []string{"path"},
		},
	}
}
