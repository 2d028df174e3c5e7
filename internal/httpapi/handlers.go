package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bull/qa-rag/internal/document"
	"github.com/bull/qa-rag/internal/indexer"
	"github.com/bull/qa-rag/internal/rag"
)

// BuildResponse reports a knowledge base build.
type BuildResponse struct {
	Message         string           `json:"message"`
	NumDocuments    int              `json:"num_documents"`
	NumChunks       int              `json:"num_chunks"`
	VectorStore     string           `json:"vector_store"`
	FailedDocuments []FailedDocument `json:"failed_documents"`
}

// BuildFailure is the error body of a build that stopped on failed
// documents. Documents reported in NumDocuments are already indexed.
type BuildFailure struct {
	ErrorResponse
	NumDocuments    int              `json:"num_documents"`
	NumChunks       int              `json:"num_chunks"`
	VectorStore     string           `json:"vector_store"`
	FailedDocuments []FailedDocument `json:"failed_documents"`
}

// FailedDocument names a support document that was not ingested.
type FailedDocument struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// RunRequest asks for a script to be executed.
type RunRequest struct {
	Script         string `json:"script"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func (a *API) handleBuild(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.cfg.MaxUploadBytes); err != nil {
		writeError(w, fmt.Errorf("%w: invalid multipart form: %w", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	support, err := readUploads(r.MultipartForm.File["support_docs"])
	if err != nil {
		writeError(w, err)
		return
	}
	if len(support) == 0 {
		writeError(w, fmt.Errorf("%w: at least one support document is required", errBadRequest))
		return
	}

	refs, err := readUploads(r.MultipartForm.File["checkout_html"])
	if err != nil {
		writeError(w, err)
		return
	}
	if len(refs) != 1 {
		writeError(w, fmt.Errorf("%w: exactly one checkout_html file is required, got %d", errBadRequest, len(refs)))
		return
	}

	continueOnError, _ := strconv.ParseBool(r.FormValue("continue_on_error"))

	a.logger.Info("Building knowledge base", "support_docs", len(support), "reference", refs[0].Name)

	result, err := a.cfg.Builder.Build(r.Context(), indexer.BuildRequest{
		Support:         support,
		Reference:       refs[0],
		ContinueOnError: continueOnError,
	})
	if err != nil {
		a.logger.Error("Failed to build knowledge base", "error", err)
		if result == nil {
			writeError(w, err)
			return
		}
		writeJSON(w, statusFor(err), BuildFailure{
			ErrorResponse:   ErrorResponse{Detail: err.Error()},
			NumDocuments:    result.Documents,
			NumChunks:       result.Chunks,
			VectorStore:     result.IndexName,
			FailedDocuments: failedDocuments(result.Failed),
		})
		return
	}

	writeJSON(w, http.StatusOK, BuildResponse{
		Message:         "Knowledge base built successfully.",
		NumDocuments:    result.Documents,
		NumChunks:       result.Chunks,
		VectorStore:     result.IndexName,
		FailedDocuments: failedDocuments(result.Failed),
	})
}

func failedDocuments(docs []indexer.FailedDoc) []FailedDocument {
	failed := make([]FailedDocument, len(docs))
	for i, f := range docs {
		failed[i] = FailedDocument{Name: f.Name, Reason: f.Reason}
	}
	return failed
}

func readUploads(headers []*multipart.FileHeader) ([]document.Document, error) {
	docs := make([]document.Document, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		docs = append(docs, document.New(fh.Filename, content))
	}
	return docs, nil
}

func (a *API) handleTestCases(w http.ResponseWriter, r *http.Request) {
	var req rag.TestCaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	a.logger.Info("Generate test cases called", "query", req.Query, "max_test_cases", req.MaxTestCases)

	resp, err := a.cfg.Generator.GenerateTestCases(r.Context(), req)
	if err != nil {
		a.logError("Error during test case generation", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleScript(w http.ResponseWriter, r *http.Request) {
	var req rag.ScriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	a.logger.Info("Generate selenium script called", "test_id", req.TestCase.TestID)

	resp, err := a.cfg.Generator.GenerateScript(r.Context(), req)
	if err != nil {
		a.logError("Error during Selenium script generation", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Script) == "" {
		writeError(w, fmt.Errorf("%w: script is required", errBadRequest))
		return
	}
	if req.TimeoutSeconds < 0 {
		writeError(w, fmt.Errorf("%w: timeout_seconds must not be negative", errBadRequest))
		return
	}

	timeout := min(time.Duration(req.TimeoutSeconds)*time.Second, MaxRunTimeout)
	res := a.cfg.Runner.Run(r.Context(), req.Script, timeout)
	writeJSON(w, http.StatusOK, res)
}

// logError logs err, including the raw model output for generation failures.
func (a *API) logError(msg string, err error) {
	var genErr *rag.GenerationError
	if errors.As(err, &genErr) && genErr.Raw != "" {
		a.logger.Error(msg, "error", err, "raw", genErr.Raw)
		return
	}
	a.logger.Error(msg, "error", err)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}
