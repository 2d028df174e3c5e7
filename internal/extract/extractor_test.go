package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/bull/qa-rag/internal/document"
)

func TestExtract_PlainTextNormalizesLineEndings(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract(document.Document{
		Name:    "notes.txt",
		Kind:    document.PlainText,
		Content: []byte("  line one\r\nline two\rline three\n\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\nline three", text)
}

func TestExtract_MarkdownKeepsMarkup(t *testing.T) {
	e := NewExtractor()

	text, err := e.Extract(document.New("product_specs.md", []byte("# Discounts\n\nCode **SAVE15** gives 15% off.\n")))
	require.NoError(t, err)
	assert.Equal(t, "# Discounts\n\nCode **SAVE15** gives 15% off.", text)
}

func TestExtract_InvalidUTF8(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(document.New("bad.txt", []byte{0xff, 0xfe, 0xfd}))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "bad.txt", parseErr.Source)
	assert.Equal(t, document.PlainText, parseErr.Kind)
}

func TestExtract_UnknownKind(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(document.New("archive.zip", []byte("PK")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedKind))

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestExtract_EmptyAfterNormalization(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(document.New("blank.md", []byte(" \n\t\r\n ")))
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtract_JSONCanonicalKeyOrder(t *testing.T) {
	e := NewExtractor()

	a, err := e.Extract(document.New("a.json", []byte(`{"zeta": 1, "alpha": {"y": true, "x": [1, 2]}}`)))
	require.NoError(t, err)
	b, err := e.Extract(document.New("b.json", []byte(`{"alpha":{"x":[1,2],"y":true},"zeta":1}`)))
	require.NoError(t, err)

	assert.Equal(t, a, b, "key order in the source must not change the extracted text")
	assert.Less(t, strings.Index(a, `"alpha"`), strings.Index(a, `"zeta"`))
	assert.Less(t, strings.Index(a, `"x"`), strings.Index(a, `"y"`))
	assert.True(t, gjson.Valid(a), "canonical output must still be valid JSON")
}

func TestExtract_JSONCorrupt(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(document.New("broken.json", []byte(`{"items": [1, 2,`)))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, errInvalidJSON)
}

func TestExtract_HTMLVisibleTextOnly(t *testing.T) {
	e := NewExtractor()
	page := `<!DOCTYPE html>
<html>
<head>
  <title>Checkout</title>
  <style>.pay { color: red; }</style>
  <script>var total = 10;</script>
</head>
<body>
  <h1>  Shopping Cart </h1>
  <!-- promo banner disabled -->
  <p>Total:
     <span id="total">$10.00</span></p>
  <noscript>Enable JavaScript</noscript>
  <button id="pay-now">Pay Now</button>
</body>
</html>`

	text, err := e.Extract(document.New("checkout.html", []byte(page)))
	require.NoError(t, err)
	assert.Equal(t, "Checkout\nShopping Cart\nTotal:\n$10.00\nPay Now", text)
}

func TestExtract_HTMLWithoutVisibleText(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(document.New("empty.html", []byte("<html><head><script>x()</script></head><body>  </body></html>")))
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtract_PDFUnreadable(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(document.New("manual.pdf", []byte("this is not a pdf")))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, document.PageBased, parseErr.Kind)
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor()
	docs := []document.Document{
		document.New("a.txt", []byte("alpha\r\nbeta")),
		document.New("b.json", []byte(`{"b":[3,2,1],"a":null}`)),
		document.New("c.html", []byte("<p>one</p><p>two</p>")),
	}

	for _, doc := range docs {
		first, err := e.Extract(doc)
		require.NoError(t, err)
		second, err := e.Extract(doc)
		require.NoError(t, err)
		assert.Equal(t, first, second, doc.Name)
	}
}

func TestExtract_RegisterOverridesParser(t *testing.T) {
	e := NewExtractor()
	e.Register(document.PageBased, func(content []byte) (string, error) {
		return "page one", nil
	})

	text, err := e.Extract(document.New("manual.pdf", []byte("%PDF-1.7")))
	require.NoError(t, err)
	assert.Equal(t, "page one", text)
}
