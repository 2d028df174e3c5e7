package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/bull/qa-rag/internal/document"
	"github.com/bull/qa-rag/internal/executor"
	ghclient "github.com/bull/qa-rag/internal/github"
	"github.com/bull/qa-rag/internal/indexer"
	"github.com/bull/qa-rag/internal/rag"
)

var (
	referencePath   string
	githubSource    string
	continueOnError bool

	maxTestCases int
	outPath      string

	testCasePath string
	testCaseID   string

	runTimeout time.Duration

	searchK int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [support files...]",
	Short: "Build the knowledge base from support documents and a reference page",
	Long: `Ingests support documents into the vector index and stores the reference page.

This command:
1. Reads local support documents (.md, .txt, .json, .pdf)
2. Optionally fetches more from a GitHub directory (--github owner/repo/path[@ref])
3. Stores the reference HTML page used for script generation
4. Extracts, chunks, embeds and indexes every support document`,
	RunE: runIngest,
}

var testCasesCmd = &cobra.Command{
	Use:   "testcases <query>",
	Short: "Generate test cases grounded on the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestCases,
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Generate a Selenium script for a test case",
	Long: `Generates a Python Selenium script for one test case against the stored reference page.

--test-case accepts a single test case object, a list of test cases, or the
output of the testcases command. Use --id to pick one from a list.`,
	RunE: runScript,
}

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Execute a generated script",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the chunks most similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base status",
	RunE:  runStatus,
}

func init() {
	ingestCmd.Flags().StringVar(&referencePath, "reference", "", "reference HTML page (required)")
	ingestCmd.Flags().StringVar(&githubSource, "github", "", "GitHub directory with more support documents (owner/repo/path[@ref])")
	ingestCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep going when a document fails")
	ingestCmd.MarkFlagRequired("reference")

	testCasesCmd.Flags().IntVarP(&maxTestCases, "max", "n", rag.DefaultMaxTestCases, "maximum number of test cases")
	testCasesCmd.Flags().StringVarP(&outPath, "out", "o", "", "write JSON to file instead of stdout")

	scriptCmd.Flags().StringVar(&testCasePath, "test-case", "", "JSON file with the test case (required)")
	scriptCmd.Flags().StringVar(&testCaseID, "id", "", "test_id to pick when the file holds several test cases")
	scriptCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the script to file instead of stdout")
	scriptCmd.MarkFlagRequired("test-case")

	runCmd.Flags().DurationVar(&runTimeout, "timeout", executor.DefaultTimeout, "execution timeout")

	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 5, "number of chunks to show")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	support := make([]document.Document, 0, len(args))
	for _, p := range args {
		doc, err := readDocument(p)
		if err != nil {
			return err
		}
		support = append(support, doc)
	}

	ref, err := readDocument(referencePath)
	if err != nil {
		return err
	}

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if githubSource != "" {
		src, err := ghclient.ParseSource(githubSource)
		if err != nil {
			return err
		}
		client, err := ghclient.NewClient(a.Config.GitHubToken)
		if err != nil {
			return fmt.Errorf("failed to create GitHub client: %w", err)
		}
		fmt.Printf("Fetching support documents from %s...\n", src)
		docs, err := ghclient.NewFetcher(client, src, a.Logger).FetchAll(ctx)
		if err != nil {
			return err
		}
		support = append(support, docs...)
	}

	fmt.Printf("Ingesting %d support documents into %s...\n", len(support), a.Index.Name())

	result, err := a.Builder.Build(ctx, indexer.BuildRequest{
		Support:         support,
		Reference:       ref,
		ContinueOnError: continueOnError,
	})
	if result != nil {
		fmt.Println()
		fmt.Println("Build complete!")
		fmt.Printf("  Documents: %d/%d\n", result.Documents, len(support))
		fmt.Printf("  Chunks: %d\n", result.Chunks)
		fmt.Printf("  Vector store: %s\n", result.IndexName)
		fmt.Printf("  Reference: %s\n", a.References.URL())

		if len(result.Failed) > 0 {
			fmt.Println()
			fmt.Println("Failed documents:")
			for _, failed := range result.Failed {
				fmt.Printf("  - %s: %s\n", failed.Name, failed.Reason)
			}
		}
		fmt.Println()
		fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	}
	return err
}

func runTestCases(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Generator.GenerateTestCases(cmd.Context(), rag.TestCaseRequest{
		Query:        args[0],
		MaxTestCases: maxTestCases,
	})
	if err != nil {
		return err
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return writeOutput(pretty.Pretty(data))
}

func runScript(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(testCasePath)
	if err != nil {
		return err
	}
	tc, err := selectTestCase(raw, testCaseID)
	if err != nil {
		return err
	}

	a, err := setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Generator.GenerateScript(cmd.Context(), rag.ScriptRequest{TestCase: tc})
	if err != nil {
		return err
	}
	return writeOutput([]byte(resp.Script + "\n"))
}

func runRun(cmd *cobra.Command, args []string) error {
	script, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	a, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Runner.Run(cmd.Context(), string(script), runTimeout)
	fmt.Fprint(os.Stdout, res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)

	switch o := res.Outcome.(type) {
	case executor.Completed:
		if o.ExitCode != 0 {
			return fmt.Errorf("script failed with exit code %d", o.ExitCode)
		}
		fmt.Println("PASS")
		return nil
	default:
		return errors.New(res.Error)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	vector, err := a.Embedder.EmbedQuery(ctx, args[0])
	if err != nil {
		return err
	}
	hits, err := a.Index.Search(ctx, vector, min(searchK, rag.MaxTopK))
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No matching chunks found.")
		return nil
	}
	for i, h := range hits {
		fmt.Printf("%d. %s #%d (score %.3f)", i+1, h.Chunk.SourceName, h.Chunk.ChunkIndex, h.Score)
		if h.Chunk.Section != "" {
			fmt.Printf(" %s", h.Chunk.Section)
		}
		fmt.Println()
		fmt.Printf("   %s\n", truncate(h.Chunk.Text, 200))
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.Index.Count(ctx)
	if err != nil {
		return err
	}
	stored, err := a.References.Exists(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Vector store: %s\n", a.Index.Name())
	fmt.Printf("Chunks: %d\n", count)
	fmt.Printf("Embedding model: %s (dimension %d)\n", a.Embedder.Model(), a.Embedder.Dimension())
	fmt.Printf("Reference page: %t (%s)\n", stored, a.References.URL())
	return nil
}

func readDocument(path string) (document.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return document.Document{}, err
	}
	return document.New(filepath.Base(path), content), nil
}

// selectTestCase reads one test case from a test case object, a list of
// them, or a {"test_cases": [...]} response.
func selectTestCase(raw []byte, id string) (rag.TestCase, error) {
	if !gjson.ValidBytes(raw) {
		return rag.TestCase{}, errors.New("test case file is not valid JSON")
	}

	root := gjson.ParseBytes(raw)
	if root.IsObject() && !root.Get("test_cases").Exists() {
		var tc rag.TestCase
		if err := json.Unmarshal(raw, &tc); err != nil {
			return rag.TestCase{}, err
		}
		return tc, nil
	}

	parsed := rag.ParseTestCases(string(raw))
	if parsed.Outcome == rag.Unparseable || len(parsed.Cases) == 0 {
		return rag.TestCase{}, errors.New("no test cases found in file")
	}
	if id == "" {
		return parsed.Cases[0], nil
	}
	for _, tc := range parsed.Cases {
		if tc.TestID == id {
			return tc, nil
		}
	}
	return rag.TestCase{}, fmt.Errorf("test case %q not found", id)
}

func writeOutput(data []byte) error {
	if outPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", outPath)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
