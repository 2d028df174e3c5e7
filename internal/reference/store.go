// Package reference persists the markup page that scripts are generated against.
package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/bull/qa-rag/internal/document"
)

// FileName is the name the reference page is stored under.
const FileName = "checkout.html"

var (
	ErrNotFound  = errors.New("reference document not found")
	ErrNotMarkup = errors.New("reference document must be a markup page")
)

// Store keeps a single reference page under a base location. Any location
// supported by afs works (local path, file://, mem://).
type Store struct {
	fs      afs.Service
	baseURL string
}

// NewStore creates a store rooted at baseURL.
func NewStore(baseURL string) *Store {
	return &Store{fs: afs.New(), baseURL: baseURL}
}

// URL returns the location of the stored page.
func (s *Store) URL() string {
	return url.Join(s.baseURL, FileName)
}

// Save replaces the stored page with doc.
func (s *Store) Save(ctx context.Context, doc document.Document) error {
	if doc.Kind != document.Markup {
		return fmt.Errorf("%w: %s is %s", ErrNotMarkup, doc.Name, doc.Kind)
	}
	if err := s.fs.Upload(ctx, s.URL(), file.DefaultFileOsMode, bytes.NewReader(doc.Content)); err != nil {
		return fmt.Errorf("failed to store reference document: %w", err)
	}
	return nil
}

// Load returns the stored page, or ErrNotFound if none was saved.
func (s *Store) Load(ctx context.Context) (document.Document, error) {
	URL := s.URL()
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to check reference document: %w", err)
	}
	if !exists {
		return document.Document{}, ErrNotFound
	}

	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to read reference document: %w", err)
	}
	return document.Document{Name: FileName, Kind: document.Markup, Content: data}, nil
}

// Exists reports whether a page has been saved.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	return s.fs.Exists(ctx, s.URL())
}
