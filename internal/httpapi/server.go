// Package httpapi serves the REST interface: knowledge base build, test case
// and script generation, script execution and health.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bull/qa-rag/internal/executor"
	"github.com/bull/qa-rag/internal/indexer"
	"github.com/bull/qa-rag/internal/rag"
)

const (
	// DefaultMaxUploadBytes bounds a build request's multipart body.
	DefaultMaxUploadBytes = 64 << 20

	// MaxRunTimeout caps the timeout a caller may request for a script run.
	MaxRunTimeout = 10 * time.Minute
)

// Builder builds the knowledge base.
type Builder interface {
	Build(ctx context.Context, req indexer.BuildRequest) (*indexer.BuildResult, error)
}

// Generator produces test cases and scripts.
type Generator interface {
	GenerateTestCases(ctx context.Context, req rag.TestCaseRequest) (*rag.TestCaseResponse, error)
	GenerateScript(ctx context.Context, req rag.ScriptRequest) (*rag.ScriptResponse, error)
}

// Runner executes scripts.
type Runner interface {
	Run(ctx context.Context, script string, timeout time.Duration) executor.Result
}

// Config holds handler dependencies.
type Config struct {
	Builder        Builder
	Generator      Generator
	Runner         Runner
	Health         HealthChecker
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// API holds the REST handlers.
type API struct {
	cfg    Config
	logger *slog.Logger
}

// New creates the REST handlers.
func New(cfg Config) *API {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &API{cfg: cfg, logger: cfg.Logger}
}

// Register mounts every route on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /build-knowledge-base", a.handleBuild)
	mux.HandleFunc("POST /generate-test-cases", a.handleTestCases)
	mux.HandleFunc("POST /generate-selenium-script", a.handleScript)
	mux.HandleFunc("POST /run-script", a.handleRun)
	mux.HandleFunc("GET /health", NewHealthHandler(a.cfg.Health))
	mux.HandleFunc("GET /{$}", NewLandingHandler())
}

// Handler returns a mux with every route mounted.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Register(mux)
	return mux
}
