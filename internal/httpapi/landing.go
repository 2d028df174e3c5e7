package httpapi

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QA RAG Server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; display: flex; justify-content: center; padding: 3rem 0; }
  .card { max-width: 640px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; }
  h1 { font-size: 1.6rem; margin: 0 0 0.5rem; }
  .subtitle { color: #94a3b8; margin-bottom: 1.5rem; }
  .endpoint { font-family: "SF Mono", Menlo, monospace; font-size: 0.9rem; color: #a5b4fc; }
  p { margin: 0.4rem 0; }
</style>
</head>
<body>
<div class="card">
  <h1>QA RAG Server</h1>
  <p class="subtitle">Builds a knowledge base from project documents and generates grounded test cases and Selenium scripts.</p>
  <p><span class="endpoint">POST /build-knowledge-base</span> multipart support_docs + checkout_html</p>
  <p><span class="endpoint">POST /generate-test-cases</span> {query, max_test_cases}</p>
  <p><span class="endpoint">POST /generate-selenium-script</span> {test_case}</p>
  <p><span class="endpoint">POST /run-script</span> {script, timeout_seconds}</p>
  <p><span class="endpoint">/mcp</span> MCP Streamable HTTP</p>
  <p><a class="endpoint" href="/health">GET /health</a></p>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
