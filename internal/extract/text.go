package extract

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

var (
	errInvalidUTF8 = errors.New("content is not valid UTF-8")
	errInvalidJSON = errors.New("content is not valid JSON")
)

// canonicalJSON pretty-prints with sorted keys so chunk boundaries are
// identical across runs regardless of the source key order.
var canonicalJSON = &pretty.Options{
	Width:    80,
	Prefix:   "",
	Indent:   "  ",
	SortKeys: true,
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// parseText handles plain text and markdown: validated, line endings normalized, trimmed.
func parseText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", errInvalidUTF8
	}
	return strings.TrimSpace(newlines.Replace(string(content))), nil
}

// parseJSON validates and canonicalizes structured data.
func parseJSON(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", errInvalidUTF8
	}
	if !gjson.ValidBytes(content) {
		return "", errInvalidJSON
	}
	out := pretty.PrettyOptions(content, canonicalJSON)
	return strings.TrimSpace(string(out)), nil
}
