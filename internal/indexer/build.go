package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bull/qa-rag/internal/document"
	"github.com/bull/qa-rag/internal/extract"
	"github.com/bull/qa-rag/internal/reference"
)

var (
	ErrInvalidRequest   = errors.New("invalid build request")
	ErrIngestionFailed  = errors.New("one or more documents failed to ingest")
	errNoSupport        = fmt.Errorf("%w: at least one support document is required", ErrInvalidRequest)
	errMissingReference = fmt.Errorf("%w: a markup reference document is required", ErrInvalidRequest)
)

// BuildRequest is a knowledge base build: support documents to index and the
// markup page scripts are generated against.
type BuildRequest struct {
	Support         []document.Document
	Reference       document.Document
	ContinueOnError bool
}

// BuildResult summarises a build.
type BuildResult struct {
	Documents int
	Chunks    int
	IndexName string
	Failed    []FailedDoc
}

// Builder runs knowledge base builds.
type Builder struct {
	pipeline   *Pipeline
	references *reference.Store
}

// NewBuilder creates a builder; references may be nil to skip storing the page.
func NewBuilder(pipeline *Pipeline, references *reference.Store) *Builder {
	return &Builder{pipeline: pipeline, references: references}
}

// Build validates req, stores the reference page and ingests the support
// documents. Unless ContinueOnError is set, any failed document makes Build
// return ErrIngestionFailed alongside the partial result.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// 1. Store the reference page
	if b.references != nil {
		if err := b.references.Save(ctx, req.Reference); err != nil {
			return nil, fmt.Errorf("store reference: %w", err)
		}
	}

	// 2. Ingest support documents
	batch := b.pipeline.IngestBatch(ctx, req.Support)

	result := &BuildResult{
		Documents: batch.SuccessfulDocs,
		Chunks:    batch.TotalChunks,
		IndexName: b.pipeline.Index().Name(),
		Failed:    batch.FailedDocs,
	}

	if len(batch.FailedDocs) > 0 && !req.ContinueOnError {
		return result, fmt.Errorf("%w: %w", ErrIngestionFailed, batch.Err())
	}
	return result, nil
}

func validate(req BuildRequest) error {
	if len(req.Support) == 0 {
		return errNoSupport
	}
	for _, doc := range req.Support {
		if !doc.Kind.IsSupport() {
			return fmt.Errorf("%w: support document %s has kind %s", extract.ErrUnsupportedKind, doc.Name, doc.Kind)
		}
	}

	if req.Reference.Name == "" && len(req.Reference.Content) == 0 {
		return errMissingReference
	}
	if req.Reference.Kind != document.Markup {
		return fmt.Errorf("%w: reference document %s has kind %s", extract.ErrUnsupportedKind, req.Reference.Name, req.Reference.Kind)
	}
	if strings.TrimSpace(string(req.Reference.Content)) == "" {
		return fmt.Errorf("%w: reference document %s is empty", ErrInvalidRequest, req.Reference.Name)
	}
	return nil
}
