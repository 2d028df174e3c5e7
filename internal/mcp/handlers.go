package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/qa-rag/internal/rag"
)

// handleSearch handles the search_knowledge_base tool.
// Search flow:
// 1. Embed the query and rank chunks by similarity
// 2. Return up to MaxResults chunks with source metadata
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	hits, err := s.cfg.Generator.Search(ctx, input.Query, maxResults)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
	}

	if len(hits) == 0 {
		return nil, SearchOutput{
			Results: []SearchResult{},
			Message: "No matching chunks found. Build the knowledge base or try broader search terms.",
		}, nil
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{
			Source:     h.Chunk.SourceName,
			Section:    h.Chunk.Section,
			ChunkIndex: h.Chunk.ChunkIndex,
			Score:      h.Score,
			Text:       h.Chunk.Text,
		}
	}
	return nil, SearchOutput{Results: results}, nil
}

// handleTestCases handles the generate_test_cases tool.
// An empty result is reported as a message, not a tool error.
func (s *Server) handleTestCases(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TestCasesInput,
) (*mcp.CallToolResult, TestCasesOutput, error) {
	resp, err := s.cfg.Generator.GenerateTestCases(ctx, rag.TestCaseRequest{
		Query:        input.Query,
		MaxTestCases: input.MaxTestCases,
	})
	if errors.Is(err, rag.ErrNotFound) {
		return nil, TestCasesOutput{
			Query:     input.Query,
			TestCases: []rag.TestCase{},
			Message:   err.Error(),
		}, nil
	}
	if err != nil {
		s.logger.Error("generate_test_cases failed", "error", err)
		return nil, TestCasesOutput{}, err
	}

	return nil, TestCasesOutput{Query: resp.Query, TestCases: resp.TestCases}, nil
}

// handleScript handles the generate_selenium_script tool.
func (s *Server) handleScript(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ScriptInput,
) (*mcp.CallToolResult, ScriptOutput, error) {
	resp, err := s.cfg.Generator.GenerateScript(ctx, rag.ScriptRequest{TestCase: input.TestCase})
	if errors.Is(err, rag.ErrNotFound) {
		return nil, ScriptOutput{
			TestID:  input.TestCase.TestID,
			Message: "No reference page stored. Build the knowledge base with a reference HTML document first.",
		}, nil
	}
	if err != nil {
		s.logger.Error("generate_selenium_script failed", "test_id", input.TestCase.TestID, "error", err)
		return nil, ScriptOutput{}, err
	}

	return nil, ScriptOutput{TestID: resp.TestID, Script: resp.Script}, nil
}

// handleStatus handles the get_index_status tool.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	count, err := s.cfg.Index.Count(ctx)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("index_error: failed to count records: %w", err)
	}

	out := StatusOutput{
		VectorStore:    s.cfg.Index.Name(),
		TotalChunks:    count,
		Dimension:      s.cfg.Index.Dimension(),
		EmbeddingModel: s.cfg.EmbeddingModel,
	}

	if s.cfg.References != nil {
		stored, err := s.cfg.References.Exists(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("reference_error: %w", err)
		}
		out.ReferenceStored = stored
	}

	switch {
	case count == 0:
		out.Warning = "Knowledge base is empty. Build it before generating test cases."
	case !out.ReferenceStored:
		out.Warning = "No reference page stored. Script generation is unavailable."
	}

	return nil, out, nil
}
