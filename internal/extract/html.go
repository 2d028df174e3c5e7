package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Elements whose subtrees never contribute visible text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// parseHTML returns one trimmed line per visible text line, in document order.
func parseHTML(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", errInvalidUTF8
	}

	root, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var lines []string
	collectText(root, &lines)
	return strings.Join(lines, "\n"), nil
}

// collectText walks the node tree depth-first, appending non-empty trimmed lines.
func collectText(n *html.Node, lines *[]string) {
	switch n.Type {
	case html.ElementNode:
		if skippedElements[n.Data] {
			return
		}
	case html.TextNode:
		for _, line := range strings.Split(n.Data, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				*lines = append(*lines, line)
			}
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}
