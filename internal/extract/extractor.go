// Package extract normalizes documents of each supported kind into plain text.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bull/qa-rag/internal/document"
)

var (
	ErrUnsupportedKind = errors.New("unsupported document kind")
	ErrEmptyContent    = errors.New("no extractable text")
)

// ParseError reports a document that could not be turned into text.
// It is fatal to that document only.
type ParseError struct {
	Source string
	Kind   document.Kind
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFunc converts raw document bytes into text.
type ParseFunc func(content []byte) (string, error)

// Extractor dispatches documents to a ParseFunc by kind.
type Extractor struct {
	parsers map[document.Kind]ParseFunc
}

// NewExtractor creates an extractor with parsers for every built-in kind.
func NewExtractor() *Extractor {
	return &Extractor{
		parsers: map[document.Kind]ParseFunc{
			document.PlainText:      parseText,
			document.Markdown:       parseText,
			document.StructuredData: parseJSON,
			document.PageBased:      parsePDF,
			document.Markup:         parseHTML,
		},
	}
}

// Register replaces the parser used for a kind.
func (e *Extractor) Register(kind document.Kind, fn ParseFunc) {
	e.parsers[kind] = fn
}

// Extract returns the normalized text of doc.
// Unknown kinds, undecodable content and empty results all fail with *ParseError.
func (e *Extractor) Extract(doc document.Document) (string, error) {
	parse, ok := e.parsers[doc.Kind]
	if !ok {
		return "", &ParseError{Source: doc.Name, Kind: doc.Kind, Err: ErrUnsupportedKind}
	}

	text, err := parse(doc.Content)
	if err != nil {
		return "", &ParseError{Source: doc.Name, Kind: doc.Kind, Err: err}
	}

	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Source: doc.Name, Kind: doc.Kind, Err: ErrEmptyContent}
	}

	return text, nil
}
