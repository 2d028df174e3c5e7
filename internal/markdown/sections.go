// Package markdown locates heading sections in markdown text so that chunks
// can carry the heading hierarchy they were cut from.
package markdown

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// DefaultMaxDepth is the deepest heading level that opens a new section.
const DefaultMaxDepth = 3

// Section is a heading and the byte offset of the line it starts on.
type Section struct {
	Path   string // Hierarchy: "# Checkout > ## Discounts"
	Offset int
}

// Sectioner extracts heading sections using the goldmark parser.
type Sectioner struct {
	parser   goldmark.Markdown
	maxDepth int
}

// NewSectioner creates a sectioner that splits at H1 through H3.
func NewSectioner() *Sectioner {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Sectioner{
		parser:   md,
		maxDepth: DefaultMaxDepth,
	}
}

// Sections returns the document's heading sections ordered by offset.
// A document without headings has no sections.
func (s *Sectioner) Sections(source []byte) ([]Section, error) {
	doc := s.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(s.maxDepth),
		toc.Compact(true), // Remove empty items
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var sections []Section
	collectSections(doc, source, tree.Items, nil, &sections)

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Offset < sections[j].Offset
	})
	return sections, nil
}

// PathAt returns the path of the section containing offset, or "" if the
// offset precedes the first heading.
func PathAt(sections []Section, offset int) string {
	i := sort.Search(len(sections), func(i int) bool {
		return sections[i].Offset > offset
	})
	if i == 0 {
		return ""
	}
	return sections[i-1].Path
}

// collectSections recursively walks TOC items, recording each heading's path and offset.
func collectSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]Section) {
	for _, item := range items {
		currentPath := append(append([]string(nil), ancestors...), string(item.Title))

		headerNode := findHeaderByID(doc, string(item.ID))
		if headerNode != nil && headerNode.Lines().Len() > 0 {
			*sections = append(*sections, Section{
				Path:   formatHeaderPath(currentPath),
				Offset: lineStart(source, headerNode.Lines().At(0).Start),
			})
		}

		if len(item.Items) > 0 {
			collectSections(doc, source, item.Items, currentPath, sections)
		}
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Checkout", "Discounts"] -> "# Checkout > ## Discounts"
func formatHeaderPath(path []string) string {
	parts := make([]string, 0, len(path))
	for i, segment := range path {
		parts = append(parts, fmt.Sprintf("%s %s", strings.Repeat("#", i+1), segment))
	}
	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok {
				if b, isBytes := headingID.([]byte); isBytes && string(b) == id {
					found = n
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// lineStart moves pos back to the first byte of its line, so the "#" marker
// belongs to the section it opens.
func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	if i := bytes.LastIndexByte(source[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}
