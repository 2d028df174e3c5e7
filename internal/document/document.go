// Package document defines the documents and chunks that flow through ingestion.
package document

import (
	"path/filepath"
	"strings"
)

// Kind is the declared format of a document.
type Kind string

const (
	Unknown        Kind = ""
	PlainText      Kind = "plain-text"
	Markdown       Kind = "markdown"
	StructuredData Kind = "structured-data"
	PageBased      Kind = "page-based-document"
	Markup         Kind = "markup-page"
)

// Document is a named blob of bytes with a declared kind.
// It is consumed once by extraction and never retained by the core.
type Document struct {
	Name    string // Display name, usually the uploaded filename
	Kind    Kind
	Content []byte
}

// Chunk is a contiguous span of one document's normalized text.
// Chunks are created once by the indexer and never mutated.
type Chunk struct {
	DocumentID string `json:"document_id"` // Generated once per document
	ChunkIndex int    `json:"chunk_index"` // 0-based, contiguous per document
	SourceName string `json:"source_name"` // Originating document's display name
	Section    string `json:"section,omitempty"`
	Text       string `json:"text"`
}

var extensionKinds = map[string]Kind{
	".txt":      PlainText,
	".text":     PlainText,
	".md":       Markdown,
	".markdown": Markdown,
	".json":     StructuredData,
	".pdf":      PageBased,
	".html":     Markup,
	".htm":      Markup,
}

// KindFromName infers a document kind from its filename extension.
// Returns Unknown for unrecognized extensions.
func KindFromName(name string) Kind {
	return extensionKinds[strings.ToLower(filepath.Ext(name))]
}

// New builds a document whose kind is inferred from the name.
func New(name string, content []byte) Document {
	return Document{Name: name, Kind: KindFromName(name), Content: content}
}

// SupportKinds are the kinds accepted as support documents for a knowledge base build.
var SupportKinds = []Kind{Markdown, PlainText, StructuredData, PageBased}

// IsSupport reports whether k may be ingested as a support document.
func (k Kind) IsSupport() bool {
	for _, s := range SupportKinds {
		if k == s {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	if k == Unknown {
		return "unknown"
	}
	return string(k)
}
