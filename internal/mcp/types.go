// Package mcp exposes the knowledge base and generators as MCP tools.
package mcp

import "github.com/bull/qa-rag/internal/rag"

// SearchInput defines the input parameters for the search_knowledge_base tool.
type SearchInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"the semantic search query over the ingested support documents"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"maximum number of chunks to return (default 5, at most 20)"`
}

// SearchOutput contains the search results.
type SearchOutput struct {
	// Results is the list of matching chunks, best first.
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching chunks found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single chunk match.
type SearchResult struct {
	Source     string  `json:"source"`
	Section    string  `json:"section,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// TestCasesInput defines the input parameters for the generate_test_cases tool.
type TestCasesInput struct {
	Query        string `json:"query" jsonschema:"the feature or behaviour to generate test cases for (3 to 512 characters)"`
	MaxTestCases int    `json:"max_test_cases,omitempty" jsonschema:"maximum number of test cases to return (default 10, at most 50)"`
}

// TestCasesOutput contains the generated test cases.
type TestCasesOutput struct {
	Query     string         `json:"query"`
	TestCases []rag.TestCase `json:"test_cases"`
	Message   string         `json:"message,omitempty"`
}

// ScriptInput defines the input parameters for the generate_selenium_script tool.
type ScriptInput struct {
	TestCase rag.TestCase `json:"test_case" jsonschema:"the test case to implement, as returned by generate_test_cases"`
}

// ScriptOutput contains the generated script.
type ScriptOutput struct {
	TestID  string `json:"test_id"`
	Script  string `json:"selenium_script"`
	Message string `json:"message,omitempty"`
}

// StatusInput defines the input parameters for the get_index_status tool.
// This tool takes no parameters.
type StatusInput struct{}

// StatusOutput describes the knowledge base.
type StatusOutput struct {
	// VectorStore is the index backend name.
	VectorStore string `json:"vector_store"`
	// TotalChunks is the number of indexed records.
	TotalChunks int `json:"total_chunks"`
	// Dimension is the established vector dimension (0 while empty).
	Dimension int `json:"dimension"`
	// EmbeddingModel names the model used for queries and ingestion.
	EmbeddingModel string `json:"embedding_model"`
	// ReferenceStored reports whether a reference page is available for scripts.
	ReferenceStored bool `json:"reference_stored"`
	// Warning is set when the knowledge base cannot serve generation yet.
	Warning string `json:"warning,omitempty"`
}
