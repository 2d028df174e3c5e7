// Package main provides the QA server: REST API, MCP endpoint and health check.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bull/qa-rag/internal/app"
	"github.com/bull/qa-rag/internal/config"
	"github.com/bull/qa-rag/internal/httpapi"
	mcpserver "github.com/bull/qa-rag/internal/mcp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Missing LLM credential is fatal for the server
	a, err := app.New(ctx, cfg, logger, app.Options{RequireModel: true})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	mcp, err := mcpserver.NewServer(&mcpserver.Config{
		Generator:      a.Generator,
		Index:          a.Index,
		References:     a.References,
		EmbeddingModel: a.Embedder.Model(),
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("failed to create MCP server: %v", err)
	}

	mux := http.NewServeMux()
	httpapi.New(httpapi.Config{
		Builder:   a.Builder,
		Generator: a.Generator,
		Runner:    a.Runner,
		Health:    a.Index,
		Logger:    logger,
	}).Register(mux)
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(mcp, nil))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if cfg.Server.ServerMode {
		// HTTP mode: REST and MCP over HTTP for remote clients
		logger.Info("Starting HTTP server", "addr", srv.Addr, "vector_store", a.Index.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: MCP over stdin/stdout, REST in the background
	go func() {
		logger.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	logger.Info("Starting QA MCP server (stdio mode)")
	if err := mcp.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
