package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/vecgrep/vecgrep/internal/cache"
	"github.com/vecgrep/vecgrep/internal/chunker"
	"github.com/vecgrep/vecgrep/internal/embedder"
	"github.com/vecgrep/vecgrep/internal/indexer"
	"github.com/vecgrep/vecgrep/internal/scanner"
	"github.com/vecgrep/vecgrep/internal/searcher"
	"github.com/vecgrep/vecgrep/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "vecgrep"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultIndexDir is the default location for per-project databases
	DefaultIndexDir = "~/.vecgrep/indices"
)

// project bundles the per-project components: durable store, warm vector
// cache, index coordinator, and search engine.
type project struct {
	root     string
	store    storage.Store
	cache    *cache.EmbeddingCache
	indexer  *indexer.Coordinator
	searcher *searcher.Engine
}

// Server wraps the MCP server with application dependencies. The embedder
// and chunker are shared across projects; stores and caches are opened
// lazily, one per project root.
type Server struct {
	mcp      *server.MCPServer
	indexDir string
	embedder embedder.Embedder
	chunker  chunker.Chunker
	logger   zerolog.Logger

	mu       sync.Mutex
	projects map[string]*project
}

// NewServer creates a new MCP server instance
func NewServer(indexDir string, logger zerolog.Logger) (*Server, error) {
	if indexDir == "" || indexDir == DefaultIndexDir {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		indexDir = filepath.Join(home, ".vecgrep", "indices")
	}

	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		indexDir: indexDir,
		embedder: emb,
		chunker:  chunker.New(),
		logger:   logger.With().Str("component", "mcp").Logger(),
		projects: make(map[string]*project),
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer s.closeProjects()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getIndexStatusTool(), s.handleGetIndexStatus)
}

// getProject returns the component bundle for a root path, opening the
// project database and warming the vector cache on first use. Roots are
// keyed by their cleaned absolute path, so equivalent spellings share one
// bundle.
func (s *Server) getProject(ctx context.Context, root string) (*project, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", root, err)
	}
	absRoot = filepath.Clean(absRoot)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.projects[absRoot]; ok {
		return p, nil
	}

	store, err := storage.Open(s.indexDir, absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open project index: %w", err)
	}

	embCache := cache.New()
	if err := embCache.Warm(ctx, store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to warm vector cache: %w", err)
	}

	scn := scanner.New(s.chunker, ignorePatternsFromEnv())

	p := &project{
		root:     absRoot,
		store:    store,
		cache:    embCache,
		indexer:  indexer.New(absRoot, store, embCache, s.chunker, s.embedder, scn, s.logger),
		searcher: searcher.New(embCache, s.embedder, s.logger),
	}
	s.projects[absRoot] = p

	s.logger.Info().Str("root", absRoot).Int("cached_chunks", embCache.Len()).Msg("project opened")
	return p, nil
}

func (s *Server) closeProjects() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.projects {
		_ = p.store.Close()
	}
	s.projects = make(map[string]*project)
	_ = s.embedder.Close()
}
