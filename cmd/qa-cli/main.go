// Package main provides the qa CLI for building the knowledge base and
// generating test cases and scripts from the terminal.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/bull/qa-rag/internal/app"
	"github.com/bull/qa-rag/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "qa",
	Short: "Grounded QA test case and Selenium script generator",
	Long: `CLI for the QA knowledge base.

Environment variables:
  OPENAI_API_KEY      OpenAI API key for embeddings and generation
  LLM_API_KEY         API key for the generative model (overrides OPENAI_API_KEY)
  EMBEDDING_PROVIDER  openai or hash (default: openai)
  VECTOR_STORE        memory, sqlite or qdrant (default: sqlite)
  VECTOR_STORE_PATH   SQLite index file (default: data/vectorstore/index.db)
  QDRANT_HOST         Qdrant hostname (default: localhost)
  QDRANT_PORT         Qdrant gRPC port (default: 6334)
  STORAGE_DIR         Directory for the reference page (default: data/storage)
  GITHUB_TOKEN        GitHub token for higher rate limits (optional)
  QA_CONFIG           Optional YAML config file`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides QA_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARN or ERROR")

	rootCmd.AddCommand(ingestCmd, testCasesCmd, scriptCmd, runCmd, searchCmd, statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the components. requireModel makes a
// missing LLM credential fatal.
func setup(ctx context.Context, requireModel bool) (*app.App, error) {
	if configPath != "" {
		os.Setenv("QA_CONFIG", configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)
	return app.New(ctx, cfg, logger, app.Options{RequireModel: requireModel})
}
