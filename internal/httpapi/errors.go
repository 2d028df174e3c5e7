package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bull/qa-rag/internal/embedding"
	"github.com/bull/qa-rag/internal/extract"
	"github.com/bull/qa-rag/internal/indexer"
	"github.com/bull/qa-rag/internal/rag"
	"github.com/bull/qa-rag/internal/storage"
)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps an error category to an HTTP status. Checks run in order,
// so a wrapped cause decides before the generic wrapper.
func statusFor(err error) int {
	var (
		parseErr *extract.ParseError
		embedErr *embedding.EmbeddingError
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, rag.ErrValidation),
		errors.Is(err, indexer.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrUnsupportedKind):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, storage.ErrDimensionMismatch):
		return http.StatusInternalServerError
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, rag.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rag.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, rag.ErrRetrieval),
		errors.As(err, &embedErr),
		errors.Is(err, storage.ErrQdrantUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Detail: err.Error()})
}
