package httpapi

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status      string `json:"status"`
	VectorStore string `json:"vector_store"`
	Records     int    `json:"records"`
	Timestamp   string `json:"timestamp"`
}

// HealthChecker is the index checked by the health endpoint.
type HealthChecker interface {
	Count(ctx context.Context) (int, error)
	Name() string
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It reads the index count and returns 503 when it cannot be read.
func NewHealthHandler(index HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Create context with 3-second timeout for health check
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if index == nil {
			writeJSON(w, http.StatusOK, response)
			return
		}

		response.VectorStore = index.Name()
		n, err := index.Count(ctx)
		if err != nil {
			response.Status = "unhealthy"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}

		response.Records = n
		writeJSON(w, http.StatusOK, response)
	}
}
