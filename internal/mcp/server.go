package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/qa-rag/internal/rag"
	"github.com/bull/qa-rag/internal/storage"
)

// ErrMissingGenerator is returned when the server has nothing to serve.
var ErrMissingGenerator = errors.New("mcp server requires a generator")

// Generator is the read side of the knowledge base.
type Generator interface {
	Search(ctx context.Context, query string, k int) ([]storage.Hit, error)
	GenerateTestCases(ctx context.Context, req rag.TestCaseRequest) (*rag.TestCaseResponse, error)
	GenerateScript(ctx context.Context, req rag.ScriptRequest) (*rag.ScriptResponse, error)
}

// ReferenceChecker reports whether a reference page is stored.
type ReferenceChecker interface {
	Exists(ctx context.Context) (bool, error)
}

// Config holds server dependencies.
type Config struct {
	Generator      Generator
	Index          storage.Index
	References     ReferenceChecker // Optional
	EmbeddingModel string
	Version        string
	Logger         *slog.Logger
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	cfg    Config
	logger *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil || cfg.Generator == nil || cfg.Index == nil {
		return nil, ErrMissingGenerator
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}

	impl := &mcp.Implementation{
		Name:    "qa-rag-server",
		Version: version,
	}

	s := &Server{
		server: mcp.NewServer(impl, nil),
		cfg:    *cfg,
		logger: logger,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_knowledge_base",
		Description: "Semantic search over the ingested support documents. Returns the best matching chunks with their source document and score.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_test_cases",
		Description: "Generate structured QA test cases grounded on the support documents for a feature or behaviour.",
	}, s.handleTestCases)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "generate_selenium_script",
		Description: "Generate a Python Selenium script implementing one test case against the stored reference page.",
	}, s.handleScript)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the knowledge base: backend, record count, embedding model and whether a reference page is stored.",
	}, s.handleStatus)
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
