package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/qa-rag/internal/chunker"
	"github.com/bull/qa-rag/internal/document"
	"github.com/bull/qa-rag/internal/embedding"
	"github.com/bull/qa-rag/internal/extract"
	"github.com/bull/qa-rag/internal/markdown"
	"github.com/bull/qa-rag/internal/storage"
)

// DocumentResult describes one successfully ingested document.
type DocumentResult struct {
	DocumentID string
	Name       string
	Kind       document.Kind
	Chunks     int
}

// BatchResult contains statistics about a batch ingestion.
type BatchResult struct {
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	Documents      []DocumentResult
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// FailedDoc represents a document that failed to ingest.
type FailedDoc struct {
	Name   string
	Reason string
	Err    error
}

// Err joins the per-document failures, or returns nil if there were none.
func (r *BatchResult) Err() error {
	errs := make([]error, 0, len(r.FailedDocs))
	for _, f := range r.FailedDocs {
		errs = append(errs, fmt.Errorf("%s: %w", f.Name, f.Err))
	}
	return errors.Join(errs...)
}

// Pipeline turns documents into indexed chunks: extract, split, embed, store.
type Pipeline struct {
	extractor *extract.Extractor
	splitter  *chunker.Splitter
	sectioner *markdown.Sectioner
	embedder  *embedding.Embedder
	index     storage.Index
	logger    *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
// A nil sectioner disables section paths for markdown chunks.
func NewPipeline(
	extractor *extract.Extractor,
	splitter *chunker.Splitter,
	sectioner *markdown.Sectioner,
	embedder *embedding.Embedder,
	index storage.Index,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		sectioner: sectioner,
		embedder:  embedder,
		index:     index,
		logger:    logger,
	}
}

// Index returns the index the pipeline writes to.
func (p *Pipeline) Index() storage.Index { return p.index }

// IngestBatch ingests documents in input order. A failing document is
// recorded and skipped; the caller decides whether failures are fatal.
func (p *Pipeline) IngestBatch(ctx context.Context, docs []document.Document) *BatchResult {
	start := time.Now()
	result := &BatchResult{TotalDocs: len(docs)}

	for _, doc := range docs {
		res, err := p.IngestDocument(ctx, doc)
		if err != nil {
			p.logger.Warn("Failed to ingest document", "name", doc.Name, "kind", doc.Kind, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Name:   doc.Name,
				Reason: err.Error(),
				Err:    err,
			})
			continue // Skip failed docs, continue with others
		}
		result.SuccessfulDocs++
		result.TotalChunks += res.Chunks
		result.Documents = append(result.Documents, *res)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result
}

// IngestDocument handles the full pipeline for a single document. Records
// are added in chunk order, each visible as soon as it is added. If ctx is
// cancelled mid-way the records already added stay in the index.
func (p *Pipeline) IngestDocument(ctx context.Context, doc document.Document) (*DocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Extract normalized text
	text, err := p.extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	// 2. Split into chunks
	chunks := p.splitter.Split(text)
	p.logger.Debug("Chunked document", "name", doc.Name, "chunks", len(chunks))

	sections := p.sections(doc, text)

	// 3. Generate embeddings for all chunks
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	// 4. Store records in chunk order
	docID := uuid.New().String()
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("Ingestion interrupted", "name", doc.Name, "stored", i, "total", len(chunks))
			return nil, err
		}

		record := document.Chunk{
			DocumentID: docID,
			ChunkIndex: i,
			SourceName: doc.Name,
			Section:    markdown.PathAt(sections, c.Offset),
			Text:       c.Text,
		}
		if err := p.index.Add(ctx, embeddings[i], record); err != nil {
			return nil, fmt.Errorf("store chunk %d: %w", i, err)
		}
	}

	p.logger.Info("Indexed document", "name", doc.Name, "kind", doc.Kind, "chunks", len(chunks))
	return &DocumentResult{
		DocumentID: docID,
		Name:       doc.Name,
		Kind:       doc.Kind,
		Chunks:     len(chunks),
	}, nil
}

// sections returns heading sections for markdown documents. Failures only
// cost the section labels.
func (p *Pipeline) sections(doc document.Document, text string) []markdown.Section {
	if p.sectioner == nil || doc.Kind != document.Markdown {
		return nil
	}
	sections, err := p.sectioner.Sections([]byte(text))
	if err != nil {
		p.logger.Warn("Section detection failed", "name", doc.Name, "error", err)
		return nil
	}
	return sections
}
