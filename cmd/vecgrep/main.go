package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/vecgrep/vecgrep/internal/embedder"
	"github.com/vecgrep/vecgrep/internal/mcp"
	"github.com/vecgrep/vecgrep/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// Environment variables
const (
	EnvIndexDir = "VECGREP_DB_PATH"
	EnvLogLevel = "VECGREP_LOG_LEVEL"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("vecgrep MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// Local .env is optional
	_ = godotenv.Load()

	// Stdout is reserved for the MCP protocol; all logging goes to stderr
	logger := newLogger()

	indexDir := os.Getenv(EnvIndexDir)
	if indexDir == "" {
		indexDir = mcp.DefaultIndexDir
	}

	logger.Info().
		Str("version", version).
		Str("driver", storage.DriverName).
		Str("embedding_provider", embedder.DetectProvider()).
		Str("index_dir", indexDir).
		Msg("vecgrep starting")

	server, err := mcp.NewServer(indexDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create MCP server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Msg("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}

	logger.Info().Msg("server stopped")
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv(EnvLogLevel); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
