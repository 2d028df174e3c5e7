package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/bull/qa-rag/internal/document"
)

// ErrInvalidSource is returned for a malformed repository source.
var ErrInvalidSource = errors.New("source must be owner/repo[/path][@ref]")

// Source is a directory in a GitHub repository.
type Source struct {
	Owner string
	Repo  string
	Path  string // Directory within the repository, "" for the root
	Ref   string // Branch, tag or commit; "" for the default branch
}

// ParseSource parses "owner/repo[/path][@ref]".
func ParseSource(s string) (Source, error) {
	var src Source
	s = strings.TrimSpace(s)
	if at := strings.LastIndexByte(s, '@'); at >= 0 {
		src.Ref = s[at+1:]
		s = s[:at]
	}

	parts := strings.SplitN(strings.Trim(s, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, s)
	}
	src.Owner, src.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		src.Path = strings.Trim(parts[2], "/")
	}
	return src, nil
}

func (s Source) String() string {
	out := path.Join(s.Owner, s.Repo, s.Path)
	if s.Ref != "" {
		out += "@" + s.Ref
	}
	return out
}

// Fetcher handles fetching support documents from a repository directory
type Fetcher struct {
	client *Client
	source Source
	logger *slog.Logger
}

// NewFetcher creates a new document fetcher
func NewFetcher(client *Client, source Source, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, source: source, logger: logger}
}

// ListDocs recursively lists the files under the source directory whose
// kind may be ingested as support documents.
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.source.Path, "")
}

// listDocsRecursive recursively traverses directories to find supported files
func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		fullPath,
		f.options(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if document.KindFromName(*item.Name).IsSupport() {
				docs = append(docs, itemRelPath)
			}

		case "dir":
			subDocs, err := f.listDocsRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// FetchDoc fetches one file as a document named by its relative path.
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (document.Document, error) {
	fullPath := path.Join(f.source.Path, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(
		ctx,
		f.source.Owner,
		f.source.Repo,
		fullPath,
		f.options(),
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return document.Document{}, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return document.Document{}, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	return document.New(relativePath, content), nil
}

// FetchAll lists and fetches every supported file under the source directory.
func (f *Fetcher) FetchAll(ctx context.Context) ([]document.Document, error) {
	paths, err := f.ListDocs(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := f.FetchDoc(ctx, p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	f.logger.Info("Fetched support documents", "source", f.source.String(), "documents", len(docs))
	return docs, nil
}

func (f *Fetcher) options() *github.RepositoryContentGetOptions {
	if f.source.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.source.Ref}
}
