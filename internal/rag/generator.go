package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/qa-rag/internal/document"
	"github.com/bull/qa-rag/internal/embedding"
	"github.com/bull/qa-rag/internal/extract"
	"github.com/bull/qa-rag/internal/llm"
	"github.com/bull/qa-rag/internal/reference"
	"github.com/bull/qa-rag/internal/storage"
)

// ReferenceLoader returns the stored reference page.
type ReferenceLoader interface {
	Load(ctx context.Context) (document.Document, error)
}

// Generator runs retrieval-augmented generation over the knowledge base.
// It only reads the index.
type Generator struct {
	embedder   *embedding.Embedder
	index      storage.Index
	model      llm.Model
	references ReferenceLoader
	extractor  *extract.Extractor
	logger     *slog.Logger

	contextChars int
}

// NewGenerator creates a generator with the given components.
func NewGenerator(
	embedder *embedding.Embedder,
	index storage.Index,
	model llm.Model,
	references ReferenceLoader,
	extractor *extract.Extractor,
	logger *slog.Logger,
) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		embedder:   embedder,
		index:      index,
		model:      model,
		references: references,
		extractor:  extractor,
		logger:     logger,

		contextChars: DefaultContextChars,
	}
}

// SetContextLimit caps the grounding material per prompt to chars
// characters. Non-positive values are ignored.
func (g *Generator) SetContextLimit(chars int) {
	if chars > 0 {
		g.contextChars = chars
	}
}

// TopK returns the retrieval width for a requested number of test cases.
func TopK(count int) int {
	return min(3*count, MaxTopK)
}

// GenerateTestCases produces up to req.MaxTestCases test cases grounded on
// the chunks most similar to req.Query.
func (g *Generator) GenerateTestCases(ctx context.Context, req TestCaseRequest) (*TestCaseResponse, error) {
	// 1. Validate
	query, count, err := validateTestCaseRequest(req)
	if err != nil {
		return nil, err
	}

	// 2-3. Embed and retrieve
	hits, err := g.retrieve(ctx, query, TopK(count))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("%w: no grounding material for %q", ErrNotFound, query)
	}

	// 4. Assemble context in rank order
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}
	groundingContext, cut := truncateRunes(strings.Join(texts, "\n\n"), g.contextChars)
	if cut {
		g.logger.Warn("Truncated grounding context", "query", query, "max_chars", g.contextChars)
	}

	// 5. Invoke the model once
	raw, err := g.model.Generate(ctx, TestCasePrompt(query, count, groundingContext))
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	// 6. Parse and repair
	parsed := ParseTestCases(raw)
	if parsed.Outcome == Unparseable {
		g.logger.Error("Unusable model output", "error", parsed.Err, "raw", raw)
		return nil, &GenerationError{Raw: raw, Err: parsed.Err}
	}

	// 7. Filter and cap
	if len(parsed.Cases) == 0 {
		return nil, fmt.Errorf("%w: no valid test cases produced", ErrNotFound)
	}
	cases := parsed.Cases[:min(count, len(parsed.Cases))]

	g.logger.Info("Generated test cases",
		"query", query,
		"hits", len(hits),
		"shape", parsed.Outcome,
		"dropped", parsed.Dropped,
		"returned", len(cases))

	return &TestCaseResponse{Query: query, TestCases: cases}, nil
}

// GenerateScript produces a script implementing req.TestCase against the
// stored reference page.
func (g *Generator) GenerateScript(ctx context.Context, req ScriptRequest) (*ScriptResponse, error) {
	tc := req.TestCase
	if err := tc.Validate(); err != nil {
		return nil, err
	}

	page, err := g.references.Load(ctx)
	if errors.Is(err, reference.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load reference: %w", ErrRetrieval, err)
	}

	text, err := g.extractor.Extract(page)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}

	// Markup carries the selectors, so it gets two thirds of the budget
	markup, markupCut := truncateRunes(string(page.Content), g.contextChars*2/3)
	text, textCut := truncateRunes(text, g.contextChars-g.contextChars*2/3)
	if markupCut || textCut {
		g.logger.Warn("Truncated reference page", "test_id", tc.TestID, "max_chars", g.contextChars)
	}

	raw, err := g.model.Generate(ctx, ScriptPrompt(tc, markup, text))
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	script := StripCodeFences(raw)
	if script == "" {
		return nil, &GenerationError{Raw: raw, Err: errors.New("empty script")}
	}
	if strings.HasPrefix(script, "{") || strings.HasPrefix(script, "[") {
		g.logger.Warn("Script output looks like JSON, not code", "test_id", tc.TestID)
	}

	g.logger.Info("Generated script", "test_id", tc.TestID, "bytes", len(script))
	return &ScriptResponse{TestID: strings.TrimSpace(tc.TestID), Script: script}, nil
}

// Search returns the k chunks most similar to query.
func (g *Generator) Search(ctx context.Context, query string, k int) ([]storage.Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	if k <= 0 {
		k = 5
	}
	return g.retrieve(ctx, query, min(k, MaxTopK))
}

func (g *Generator) retrieve(ctx context.Context, query string, topK int) ([]storage.Hit, error) {
	vector, err := g.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrRetrieval, err)
	}

	hits, err := g.index.Search(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrRetrieval, err)
	}

	g.logger.Debug("Retrieved chunks", "top_k", topK, "hits", len(hits))
	return hits, nil
}

func validateTestCaseRequest(req TestCaseRequest) (string, int, error) {
	query := strings.TrimSpace(req.Query)
	if n := len([]rune(query)); n < MinQueryLength || n > MaxQueryLength {
		return "", 0, fmt.Errorf("%w: query must be %d to %d characters, got %d",
			ErrValidation, MinQueryLength, MaxQueryLength, n)
	}

	count := req.MaxTestCases
	if count == 0 {
		count = DefaultMaxTestCases
	}
	if count < 1 || count > MaxTestCases {
		return "", 0, fmt.Errorf("%w: max_test_cases must be 1 to %d, got %d",
			ErrValidation, MaxTestCases, req.MaxTestCases)
	}
	return query, count, nil
}
