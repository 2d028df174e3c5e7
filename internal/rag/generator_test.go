package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/qa-rag/internal/document"
	"github.com/bull/qa-rag/internal/embedding"
	"github.com/bull/qa-rag/internal/extract"
	"github.com/bull/qa-rag/internal/reference"
	"github.com/bull/qa-rag/internal/storage"
)

// fakeModel returns a canned response and records prompts.
type fakeModel struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (m *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

func (m *fakeModel) Name() string { return "fake" }

// spyIndex records the topK of every search.
type spyIndex struct {
	storage.Index
	topKs []int
	err   error
}

func (s *spyIndex) Search(ctx context.Context, vector []float32, topK int) ([]storage.Hit, error) {
	s.topKs = append(s.topKs, topK)
	if s.err != nil {
		return nil, s.err
	}
	return s.Index.Search(ctx, vector, topK)
}

type fakeReferences struct {
	doc document.Document
	err error
}

func (f fakeReferences) Load(context.Context) (document.Document, error) {
	return f.doc, f.err
}

const checkoutPage = `<html><head><script>var x = 1;</script></head>
<body><h1>Checkout</h1><button id="pay-now">Pay Now</button></body></html>`

type fixture struct {
	gen   *Generator
	model *fakeModel
	index *spyIndex
}

func newFixture(t *testing.T, chunks []string, refs ReferenceLoader) *fixture {
	t.Helper()

	provider, err := embedding.NewHashProvider(64)
	require.NoError(t, err)
	embedder := embedding.NewEmbedder(provider)

	mem := storage.NewMemoryIndex(0)
	if len(chunks) > 0 {
		vectors, err := embedder.GenerateEmbeddings(context.Background(), chunks)
		require.NoError(t, err)
		for i, text := range chunks {
			chunk := document.Chunk{DocumentID: "doc-1", ChunkIndex: i, SourceName: "specs.md", Text: text}
			require.NoError(t, mem.Add(context.Background(), vectors[i], chunk))
		}
	}

	if refs == nil {
		refs = fakeReferences{doc: document.New("checkout.html", []byte(checkoutPage))}
	}

	f := &fixture{model: &fakeModel{}, index: &spyIndex{Index: mem}}
	f.gen = NewGenerator(embedder, f.index, f.model, refs, extract.NewExtractor(), nil)
	return f
}

var specChunks = []string{
	"The discount code SAVE15 applies a 15% discount to the cart total.",
	"Express shipping costs $10 and standard shipping is free.",
	"Payment can be made by credit card or PayPal.",
}

func TestGenerateTestCases_Validation(t *testing.T) {
	f := newFixture(t, specChunks, nil)

	tests := []struct {
		name string
		req  TestCaseRequest
	}{
		{"empty query", TestCaseRequest{Query: ""}},
		{"whitespace query", TestCaseRequest{Query: "   "}},
		{"short query", TestCaseRequest{Query: " ab "}},
		{"long query", TestCaseRequest{Query: strings.Repeat("q", MaxQueryLength+1)}},
		{"negative count", TestCaseRequest{Query: "discount", MaxTestCases: -1}},
		{"count too large", TestCaseRequest{Query: "discount", MaxTestCases: MaxTestCases + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.gen.GenerateTestCases(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, f.index.topKs, "validation failures must not reach the index")
	assert.Empty(t, f.model.prompts)
}

func TestGenerateTestCases_EmptyIndex(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "discount codes", MaxTestCases: 5})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.model.prompts, "model must not be called without grounding material")
}

func TestGenerateTestCases_TopK(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.model.response = twoCases

	for _, count := range []int{1, 5, 6, 7, 50} {
		_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "discount", MaxTestCases: count})
		require.NoError(t, err)
	}
	_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "discount"})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 15, 18, 20, 20, 20}, f.index.topKs)
}

func TestGenerateTestCases_ContextInRankOrder(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.model.response = twoCases

	resp, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "  discount code SAVE15  ", MaxTestCases: 5})
	require.NoError(t, err)
	assert.Equal(t, "discount code SAVE15", resp.Query)

	require.Len(t, f.model.prompts, 1)
	prompt := f.model.prompts[0]
	assert.Contains(t, prompt, specChunks[0]+"\n\n")
	assert.Contains(t, prompt, "at most 5 test cases")
	assert.Contains(t, prompt, `"discount code SAVE15"`)
	// The best match comes first.
	assert.Less(t, strings.Index(prompt, specChunks[0]), strings.Index(prompt, specChunks[1]))
}

func TestGenerateTestCases_TruncatesPreservingOrder(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.model.response = twoCases

	resp, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "checkout", MaxTestCases: 1})
	require.NoError(t, err)
	require.Len(t, resp.TestCases, 1)
	assert.Equal(t, "TC-1", resp.TestCases[0].TestID)
}

func TestGenerateTestCases_WrapperAccepted(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.model.response = "```json\n{\"test_cases\": " + twoCases + "}\n```"

	resp, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "checkout", MaxTestCases: 5})
	require.NoError(t, err)
	assert.Len(t, resp.TestCases, 2)
}

func TestGenerateTestCases_NoValidCases(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.model.response = `[{"test_id": "TC-1", "feature": "", "test_scenario": "x", "expected_result": "y"}]`

	_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "checkout"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrGeneration)
}

func TestGenerateTestCases_UnparseableKeepsRaw(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.model.response = "I could not find any test cases."

	_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "checkout"})

	require.ErrorIs(t, err, ErrGeneration)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, f.model.response, genErr.Raw)
}

func TestGenerateTestCases_ModelFailure(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.model.err = errors.New("upstream 500")

	_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "checkout"})
	assert.ErrorIs(t, err, ErrGeneration)
}

func TestGenerateTestCases_RetrievalFailure(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	f.index.err = errors.New("index offline")

	_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "checkout"})
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGenerateTestCases_EmbeddingFailure(t *testing.T) {
	f := newFixture(t, specChunks, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.gen.GenerateTestCases(ctx, TestCaseRequest{Query: "checkout"})
	assert.ErrorIs(t, err, ErrRetrieval)
}

var payCase = TestCase{
	TestID:         "TC-7",
	Feature:        "Payment",
	TestScenario:   "Click Pay Now with a valid card",
	ExpectedResult: "Payment Successful! is shown",
}

func TestGenerateScript(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.model.response = "```python\nfrom selenium import webdriver\ndriver = webdriver.Chrome()\n```"

	resp, err := f.gen.GenerateScript(context.Background(), ScriptRequest{TestCase: payCase})
	require.NoError(t, err)
	assert.Equal(t, "TC-7", resp.TestID)
	assert.Equal(t, "from selenium import webdriver\ndriver = webdriver.Chrome()", resp.Script)

	require.Len(t, f.model.prompts, 1)
	prompt := f.model.prompts[0]
	assert.Contains(t, prompt, `id="pay-now"`)
	assert.Contains(t, prompt, "Pay Now\n")
	assert.Contains(t, prompt, payCase.TestScenario)
	assert.Empty(t, f.index.topKs, "script generation must not query the index")
}

func TestGenerateScript_InteriorFenceKept(t *testing.T) {
	f := newFixture(t, nil, nil)
	script := "from selenium import webdriver\n\n" +
		"def helper():\n" +
		"    \"\"\"Example:\n    ```\n    helper()\n    ```\n    \"\"\"\n" +
		"    print('OK')"
	f.model.response = script

	resp, err := f.gen.GenerateScript(context.Background(), ScriptRequest{TestCase: payCase})
	require.NoError(t, err)
	assert.Equal(t, script, resp.Script)
}

func TestGenerateScript_LargePageKeepsInstructions(t *testing.T) {
	page := "<html><body><style>" + strings.Repeat("é", 5000) + "</style>" +
		`<button id="pay-now">Pay Now</button>` + strings.Repeat("<p>ü</p>", 2000) + "</body></html>"
	f := newFixture(t, nil, fakeReferences{doc: document.New("checkout.html", []byte(page))})
	f.gen.SetContextLimit(900)
	f.model.response = "print('OK')"

	_, err := f.gen.GenerateScript(context.Background(), ScriptRequest{TestCase: payCase})
	require.NoError(t, err)

	prompt := f.model.prompts[0]
	assert.True(t, utf8.ValidString(prompt))
	assert.True(t, strings.HasSuffix(prompt, "Respond ONLY with the code, no explanations."))
	assert.Less(t, utf8.RuneCountInString(prompt), 900+1000, "payload bounded by the limit")
}

func TestGenerateTestCases_LargeContextKeepsInstructions(t *testing.T) {
	chunks := []string{
		"Discount codes: " + strings.Repeat("réduction ", 300),
		"Discount rules: " + strings.Repeat("ß", 3000),
	}
	f := newFixture(t, chunks, nil)
	f.gen.SetContextLimit(500)
	f.model.response = twoCases

	_, err := f.gen.GenerateTestCases(context.Background(), TestCaseRequest{Query: "discount codes"})
	require.NoError(t, err)

	prompt := f.model.prompts[0]
	assert.True(t, utf8.ValidString(prompt))
	assert.True(t, strings.HasSuffix(prompt, "Respond ONLY with a valid JSON array."))
	assert.Less(t, utf8.RuneCountInString(prompt), 500+1000)
}

func TestTruncateRunes(t *testing.T) {
	s, cut := truncateRunes("héllo", 2)
	assert.True(t, cut)
	assert.Equal(t, "hé", s)

	s, cut = truncateRunes("héllo", 5)
	assert.False(t, cut)
	assert.Equal(t, "héllo", s)

	s, cut = truncateRunes("héllo", 0)
	assert.False(t, cut)
	assert.Equal(t, "héllo", s)
}

func TestGenerateScript_JSONLookingOutputIsReturned(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.model.response = `{"script": "print(1)"}`

	resp, err := f.gen.GenerateScript(context.Background(), ScriptRequest{TestCase: payCase})
	require.NoError(t, err)
	assert.Equal(t, `{"script": "print(1)"}`, resp.Script)
}

func TestGenerateScript_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tc       TestCase
		refs     ReferenceLoader
		response string
		wantErr  error
	}{
		{
			name:    "blank field",
			tc:      TestCase{TestID: "TC-1", Feature: "x", TestScenario: " ", ExpectedResult: "y"},
			wantErr: ErrValidation,
		},
		{
			name:    "no reference",
			tc:      payCase,
			refs:    fakeReferences{err: reference.ErrNotFound},
			wantErr: ErrNotFound,
		},
		{
			name:    "reference unreadable",
			tc:      payCase,
			refs:    fakeReferences{err: errors.New("disk gone")},
			wantErr: ErrRetrieval,
		},
		{
			name:    "reference without text",
			tc:      payCase,
			refs:    fakeReferences{doc: document.New("checkout.html", []byte("<html><script>x()</script></html>"))},
			wantErr: extract.ErrEmptyContent,
		},
		{
			name:     "empty script",
			tc:       payCase,
			response: "```python\n```",
			wantErr:  ErrGeneration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, tt.refs)
			f.model.response = tt.response

			_, err := f.gen.GenerateScript(context.Background(), ScriptRequest{TestCase: tt.tc})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t, specChunks, nil)

	hits, err := f.gen.Search(context.Background(), "express shipping cost", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, specChunks[1], hits[0].Chunk.Text)

	_, err = f.gen.Search(context.Background(), " ", 2)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.gen.Search(context.Background(), "shipping", 100)
	require.NoError(t, err)
	assert.Equal(t, MaxTopK, f.index.topKs[len(f.index.topKs)-1])
}
